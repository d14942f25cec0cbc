package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_DuplicateAcrossPagesRecordedOnce(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML(nil, download("https://x/y.pdf", "Download"))
	b.pages["https://x/it/f/2"] = pageHTML(nil, download("https://x/y.pdf", "Download"), download("https://x/y.pdf", "Download"))

	sink := &recordingSink{}
	h, err := New(b, Options{Plan: testPlan(), Sink: sink})
	require.NoError(t, err)

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://x/y.pdf"}, urls(run.Records()))
	assert.Len(t, sink.accepted, 1)
	assert.Equal(t, 2, run.Stats.Duplicates)
}

func TestRun_FiltersLabelsAndVersions(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML(nil,
		download("/a.pdf", "Download PDF"),
		download("/b.pdf", "Téléchargement"),
		download("/c.pdf?version=2", "Download"),
		download("/d.pdf", "Open"),
		`<a class="btn" href="/e.pdf">Download</a>`,
		`<a class="btn btn-default">Download</a>`,
	)

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://x/a.pdf", "https://x/b.pdf"}, urls(run.Records()))
}

func TestRun_OrderIsLanguagesOuterPagesInner(t *testing.T) {
	b := newFakeBrowser()
	for _, lang := range []string{"it", "fr"} {
		for _, page := range []string{"1", "2", "3"} {
			b.pages["https://x/"+lang+"/f/"+page] = pageHTML(nil, download("/"+lang+"-"+page+".pdf", "Download"))
		}
	}

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://x/it/f/1", "https://x/it/f/2", "https://x/it/f/3",
		"https://x/fr/f/1", "https://x/fr/f/2", "https://x/fr/f/3",
	}, b.visited)
	assert.Equal(t, []string{
		"https://x/it-1.pdf", "https://x/it-2.pdf", "https://x/it-3.pdf",
		"https://x/fr-1.pdf", "https://x/fr-2.pdf", "https://x/fr-3.pdf",
	}, urls(run.Records()))
	assert.Equal(t, "fr", run.Records()[3].Lang)
}

func TestRun_BenignAbortContinues(t *testing.T) {
	b := newFakeBrowser()
	b.errs["https://x/it/f/1"] = errors.New("net::ERR_ABORTED at https://x/it/f/1")
	b.pages["https://x/it/f/2"] = pageHTML(nil, download("/z.pdf", "Download"))

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.PagesDownloaded)
	assert.Zero(t, run.Stats.PagesFailed)
	assert.Equal(t, []string{"https://x/z.pdf"}, urls(run.Records()))
}

func TestRun_NavigationFailureSkipsPage(t *testing.T) {
	b := newFakeBrowser()
	b.errs["https://x/it/f/1"] = errors.New("net::ERR_NAME_NOT_RESOLVED")
	b.pages["https://x/it/f/2"] = pageHTML(nil, download("/z.pdf", "Download"))

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, run.Stats.PagesFailed)
	assert.Equal(t, 6, run.Stats.Pages)
	assert.Len(t, b.visited, 6)
	assert.Equal(t, []string{"https://x/z.pdf"}, urls(run.Records()))
}

func TestRun_BannedBreadcrumbExcludedForAllLinks(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML(
		[]string{
			crumb("/it/f/5543", "Home"),
			crumb("/it/f/5600", "  AVS \n  prestazioni "),
			crumb("/it/f/5621", "Rendite"),
		},
		download("/a.pdf", "Download"),
		download("/b.pdf", "Download"),
	)

	h, err := New(b, Options{
		Plan:      testPlan(),
		Annotator: NewBreadcrumbAnnotator(testPlan().Banned),
		Sink:      &recordingSink{},
	})
	require.NoError(t, err)
	require.True(t, h.Tagged())

	run, err := h.Run(context.Background())
	require.NoError(t, err)

	records := run.Records()
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "ahv_services", r.Tag)
		assert.Equal(t, "AVS_prestazioni, Rendite", r.Subtopics)
	}
}

func TestRun_PlainRecordsCarryNoAnnotation(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML([]string{crumb("/it/f/1", "Topic")}, download("/a.pdf", "Download"))

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)
	assert.False(t, h.Tagged())

	run, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, run.Records(), 1)
	assert.Empty(t, run.Records()[0].Tag)
	assert.Empty(t, run.Records()[0].Subtopics)
}

func TestRun_RunsAreIsolated(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML(nil, download("/a.pdf", "Download"))

	h, err := New(b, Options{Plan: testPlan(), Sink: &recordingSink{}})
	require.NoError(t, err)

	first, err := h.Run(context.Background())
	require.NoError(t, err)
	second, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, urls(first.Records()), urls(second.Records()))
	assert.Len(t, second.Records(), 1)
}

func TestRun_SinkFinishErrorAborts(t *testing.T) {
	sink := &recordingSink{finishErr: errors.New("disk full")}
	h, err := New(newFakeBrowser(), Options{Plan: testPlan(), Sink: sink})
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_StopsWhenContextCancelled(t *testing.T) {
	b := newFakeBrowser()
	ctx, cancel := context.WithCancel(context.Background())

	sink := &recordingSink{}
	h, err := New(b, Options{
		Plan:   testPlan(),
		Sink:   sink,
		OnPage: func(models.Target) { cancel() },
	})
	require.NoError(t, err)

	_, err = h.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, b.visited, 1)
	assert.Zero(t, sink.finishes)
}

func TestRun_OnPageCalledForEveryTarget(t *testing.T) {
	b := newFakeBrowser()
	b.errs["https://x/fr/f/3"] = errors.New("boom")

	var seen []models.Target
	h, err := New(b, Options{
		Plan:   testPlan(),
		Sink:   &recordingSink{},
		OnPage: func(tg models.Target) { seen = append(seen, tg) },
	})
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, seen, 6)
}

func TestRun_BatchSinkWritesTaggedJSON(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/1"] = pageHTML([]string{crumb("/it/f/9", "Topic A")}, download("/a.pdf", "Download"))
	b.pages["https://x/fr/f/3"] = pageHTML(nil, download("/a.pdf", "Download"), download("/b.pdf", "Téléchargement"))

	path := filepath.Join(t.TempDir(), "sources", "pdf_urls.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`["stale"]`), 0644))

	h, err := New(b, Options{
		Plan:      testPlan(),
		Annotator: NewBreadcrumbAnnotator(nil),
		Sink:      NewBatchSink(path, true),
	})
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []map[string]string{
		{"url": "https://x/a.pdf", "tag": "ahv_services", "subtopics": "Topic_A"},
		{"url": "https://x/b.pdf", "tag": "iv_services", "subtopics": ""},
	}, got)
}

func TestRun_BatchSinkWritesPlainJSON(t *testing.T) {
	b := newFakeBrowser()
	b.pages["https://x/it/f/2"] = pageHTML(nil, download("/a.pdf", "Download"), download("/b.pdf", "Download"))

	path := filepath.Join(t.TempDir(), "out", "urls.json")
	h, err := New(b, Options{Plan: testPlan(), Sink: NewBatchSink(path, false)})
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []string{"https://x/a.pdf", "https://x/b.pdf"}, got)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{Plan: testPlan(), Sink: &recordingSink{}})
	assert.Error(t, err)

	_, err = New(newFakeBrowser(), Options{Plan: testPlan()})
	assert.Error(t, err)

	bad := testPlan()
	bad.Languages = nil
	_, err = New(newFakeBrowser(), Options{Plan: bad, Sink: &recordingSink{}})
	assert.Error(t, err)
}
