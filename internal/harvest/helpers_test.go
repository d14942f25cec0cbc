package harvest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/law-makers/pdfharvest/internal/browser"
	"github.com/law-makers/pdfharvest/pkg/models"
)

// fakeBrowser serves canned HTML per URL
type fakeBrowser struct {
	pages   map[string]string
	errs    map[string]error
	visited []string
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{pages: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeBrowser) Name() string { return "fake" }
func (f *fakeBrowser) Close() error { return nil }

func (f *fakeBrowser) Navigate(_ context.Context, url string) (*models.Page, error) {
	f.visited = append(f.visited, url)
	if err, ok := f.errs[url]; ok {
		return nil, browser.Classify(url, err)
	}
	html, ok := f.pages[url]
	if !ok {
		html = "<html><body></body></html>"
	}
	return &models.Page{URL: url, StatusCode: 200, ContentType: "text/html", HTML: html}, nil
}

// recordingSink keeps everything it is given
type recordingSink struct {
	accepted  []models.LinkRecord
	finished  []models.LinkRecord
	finishErr error
	finishes  int
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Accept(_ context.Context, rec models.LinkRecord) (models.Outcome, error) {
	s.accepted = append(s.accepted, rec)
	return models.OutcomeRecorded, nil
}

func (s *recordingSink) Finish(_ context.Context, records []models.LinkRecord) error {
	s.finishes++
	s.finished = records
	return s.finishErr
}

func testPlan() Plan {
	p := DefaultPlan()
	p.BaseURL = "https://x/"
	p.Languages = []string{"it", "fr"}
	p.Groups = []TagGroup{
		{Tag: "ahv_services", Pages: []string{"1", "2"}},
		{Tag: "iv_services", Pages: []string{"3"}},
	}
	return p
}

func download(href, text string) string {
	return fmt.Sprintf(`<a class="btn btn-default" href="%s">%s</a>`, href, text)
}

func crumb(href, text string) string {
	return fmt.Sprintf(`<li><a href="%s">%s</a></li>`, href, text)
}

func pageHTML(crumbs []string, anchors ...string) string {
	return `<html><body><ol class="breadcrumb">` + strings.Join(crumbs, "") +
		`</ol><main>` + strings.Join(anchors, "\n") + `</main></body></html>`
}

func urls(records []models.LinkRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.URL
	}
	return out
}

// fakeTab is a scripted secondary tab
type fakeTab struct {
	page        *models.Page
	navErr      error
	completed   bool
	pressErr    error
	downloadDir string
	pressed     []string
	front       bool
	closed      bool
}

func (t *fakeTab) Navigate(_ context.Context, url string) (*models.Page, error) {
	if t.navErr != nil {
		return nil, browser.Classify(url, t.navErr)
	}
	p := *t.page
	p.URL = url
	return &p, nil
}

func (t *fakeTab) SetDownloadDir(_ context.Context, dir string) error {
	t.downloadDir = dir
	return nil
}

func (t *fakeTab) BringToFront(context.Context) error {
	t.front = true
	return nil
}

func (t *fakeTab) PressKey(_ context.Context, key string, mod browser.Modifier) error {
	if t.pressErr != nil {
		return t.pressErr
	}
	t.pressed = append(t.pressed, mod.String()+"+"+key)
	return nil
}

func (t *fakeTab) DownloadCompleted(string) bool { return t.completed }

func (t *fakeTab) Close() error {
	t.closed = true
	return nil
}

type fakeOpener struct {
	mu   sync.Mutex
	tabs []*fakeTab
	next func() *fakeTab
}

func (o *fakeOpener) OpenTab(context.Context) (browser.Tab, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.next()
	o.tabs = append(o.tabs, t)
	return t, nil
}

// dirBrowser is a fakeBrowser whose own navigations can download
type dirBrowser struct {
	*fakeBrowser
	dirs []string
}

func (b *dirBrowser) SetDownloadDir(_ context.Context, dir string) error {
	b.dirs = append(b.dirs, dir)
	return nil
}
