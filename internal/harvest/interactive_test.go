package harvest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/law-makers/pdfharvest/internal/browser"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInteractive(t *testing.T, tab *fakeTab) (*InteractiveSink, *fakeOpener, *[]time.Duration) {
	t.Helper()
	opener := &fakeOpener{next: func() *fakeTab { return tab }}
	s, err := NewInteractiveSink(InteractiveOptions{
		Opener:      opener,
		DownloadDir: t.TempDir(),
		Modifier:    browser.ModCtrl,
		SaveDelay:   time.Second,
	})
	require.NoError(t, err)

	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return s, opener, &slept
}

var pdfPage = &models.Page{StatusCode: 200, ContentType: "application/pdf"}

func TestInteractive_SavesPDF(t *testing.T) {
	tab := &fakeTab{page: pdfPage, completed: true}
	s, opener, slept := newTestInteractive(t, tab)

	outcome, err := s.Accept(context.Background(), models.LinkRecord{URL: "https://x/a.pdf", Lang: "fr"})
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeSaved, outcome)
	assert.True(t, tab.front)
	assert.Equal(t, []string{"ctrl+s"}, tab.pressed)
	assert.Equal(t, []time.Duration{time.Second}, *slept)
	assert.True(t, tab.closed)
	assert.Equal(t, "fr", filepath.Base(tab.downloadDir))
	assert.True(t, filepath.IsAbs(tab.downloadDir))
	assert.Len(t, opener.tabs, 1)
}

func TestInteractive_UnverifiedSave(t *testing.T) {
	tab := &fakeTab{page: pdfPage}
	s, _, _ := newTestInteractive(t, tab)

	outcome, err := s.Accept(context.Background(), models.LinkRecord{URL: "https://x/a.pdf", Lang: "it"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeSaveUnverified, outcome)
}

func TestInteractive_NotPDF(t *testing.T) {
	tab := &fakeTab{page: &models.Page{StatusCode: 200, ContentType: "text/html"}}
	s, _, slept := newTestInteractive(t, tab)

	outcome, err := s.Accept(context.Background(), models.LinkRecord{URL: "https://x/page", Lang: "it"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNotPDF, outcome)
	assert.Empty(t, tab.pressed)
	assert.Empty(t, *slept)
	assert.True(t, tab.closed)
}

func TestInteractive_DirectDownloadIsNotFailure(t *testing.T) {
	tab := &fakeTab{navErr: errors.New("net::ERR_ABORTED")}
	s, _, _ := newTestInteractive(t, tab)

	outcome, err := s.Accept(context.Background(), models.LinkRecord{URL: "https://x/a.pdf", Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeDirectDownload, outcome)
	assert.True(t, tab.closed)
}

func TestInteractive_NavigationFailureSkipsLink(t *testing.T) {
	tab := &fakeTab{navErr: errors.New("net::ERR_CONNECTION_RESET")}
	s, _, _ := newTestInteractive(t, tab)

	outcome, err := s.Accept(context.Background(), models.LinkRecord{URL: "https://x/a.pdf", Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFailed, outcome)
}

func TestInteractive_KeystrokeFailure(t *testing.T) {
	tab := &fakeTab{page: pdfPage, pressErr: errors.New("no display")}
	s, _, slept := newTestInteractive(t, tab)

	outcome, err := s.Accept(context.Background(), models.LinkRecord{URL: "https://x/a.pdf", Lang: "de"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeFailed, outcome)
	assert.Empty(t, *slept)
}

func TestInteractive_WithHarvester(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML(nil, download("/a.pdf", "Download"), download("/b.pdf", "Download"))
	b.pages["https://x/fr/f/1"] = pageHTML(nil, download("/a.pdf", "Download"))

	s, opener, _ := newTestInteractive(t, nil)
	opener.next = func() *fakeTab { return &fakeTab{page: pdfPage, completed: true} }

	h, err := New(b, Options{Plan: testPlan(), Sink: s})
	require.NoError(t, err)

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, opener.tabs, 2, "one tab per new link")
	assert.Equal(t, 2, run.Stats.Outcomes[models.OutcomeSaved])
	for _, tab := range opener.tabs {
		assert.True(t, tab.closed)
	}
}

func TestNewInteractiveSink_RequiresOpener(t *testing.T) {
	_, err := NewInteractiveSink(InteractiveOptions{})
	assert.Error(t, err)
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), 0))
}

func TestRun_RoutesPageDownloadsPerLanguage(t *testing.T) {
	dir := t.TempDir()
	b := &dirBrowser{fakeBrowser: newFakeBrowser()}

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}, DownloadDir: dir})
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(dir, "it"), filepath.Join(dir, "fr")}, b.dirs, "set once per language, before its pages")
	assert.DirExists(t, filepath.Join(dir, "fr"))
}

func TestRun_NoDownloadDirLeavesEngineAlone(t *testing.T) {
	b := &dirBrowser{fakeBrowser: newFakeBrowser()}

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, b.dirs)
}
