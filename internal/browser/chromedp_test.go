package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
)

func newTestChrome(t *testing.T) *Chrome {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Chrome test in short mode")
	}
	if FindChrome("") == "" {
		t.Skip("Chrome not available")
	}
	c, err := NewChrome(ChromeOptions{Headless: true, NavTimeout: 20 * time.Second})
	if err != nil {
		t.Skipf("Chrome failed to start: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestChrome_NavigateRendersScriptLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><div id="x"></div><script>
document.getElementById("x").innerHTML = '<a class="btn btn-default" href="/doc.pdf">Download</a>';
</script></body></html>`)
	}))
	defer server.Close()

	c := newTestChrome(t)
	p, err := c.Navigate(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if !strings.Contains(p.HTML, "/doc.pdf") {
		t.Errorf("rendered HTML missing scripted link: %s", p.HTML)
	}
	if p.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", p.StatusCode)
	}
	if !strings.Contains(p.ContentType, "text/html") {
		t.Errorf("ContentType = %q", p.ContentType)
	}
}

func TestChrome_AttachmentNavigationIsBenign(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="a.bin"`)
		w.Write([]byte("data"))
	}))
	defer server.Close()

	c := newTestChrome(t)
	tab, err := c.OpenTab(context.Background())
	if err != nil {
		t.Fatalf("OpenTab: %v", err)
	}
	defer tab.Close()
	if err := tab.SetDownloadDir(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("SetDownloadDir: %v", err)
	}

	_, err = tab.Navigate(context.Background(), server.URL+"/a.bin")
	if !IsBenignAbort(err) {
		t.Fatalf("expected benign abort, got %v", err)
	}
}

func TestChrome_ClosedBrowser(t *testing.T) {
	c := newTestChrome(t)
	c.Close()
	if _, err := c.Navigate(context.Background(), "about:blank"); err != ErrBrowserClosed {
		t.Errorf("err = %v, want ErrBrowserClosed", err)
	}
	if err := c.SetDownloadDir(context.Background(), t.TempDir()); err != ErrBrowserClosed {
		t.Errorf("SetDownloadDir err = %v, want ErrBrowserClosed", err)
	}
}

func TestChromeTab_IdleOnlyForCurrentDocument(t *testing.T) {
	tab := &chromeTab{idle: make(chan struct{}, 1), downloads: map[string]*download{}, mainFrame: "main"}
	idle := func() bool {
		select {
		case <-tab.idle:
			return true
		default:
			return false
		}
	}
	lifecycle := func(frame cdp.FrameID, loader cdp.LoaderID) *page.EventLifecycleEvent {
		return &page.EventLifecycleEvent{FrameID: frame, LoaderID: loader, Name: "networkIdle"}
	}

	tab.reset()

	// Late events from the previous page arrive before the new response
	tab.onEvent(lifecycle("iframe", "old-iframe"))
	tab.onEvent(lifecycle("main", "old"))
	if idle() {
		t.Fatal("idle accepted before the document response")
	}

	tab.onEvent(&network.EventResponseReceived{
		FrameID:  "iframe",
		LoaderID: "iframe-loader",
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200},
	})
	tab.onEvent(&network.EventResponseReceived{
		FrameID:  "main",
		LoaderID: "new",
		Type:     network.ResourceTypeDocument,
		Response: &network.Response{Status: 200, MimeType: "text/html"},
	})
	if tab.doc == nil || tab.doc.MimeType != "text/html" {
		t.Fatalf("main document not recorded: %+v", tab.doc)
	}

	tab.onEvent(lifecycle("iframe", "iframe-loader"))
	tab.onEvent(lifecycle("main", "old"))
	if idle() {
		t.Fatal("idle accepted for a frame or loader other than the current document")
	}

	tab.onEvent(&page.EventLifecycleEvent{FrameID: "main", LoaderID: "new", Name: "load"})
	if idle() {
		t.Fatal("load event treated as idle")
	}

	tab.onEvent(lifecycle("main", "new"))
	if !idle() {
		t.Error("idle of the current document was not signalled")
	}
}

func TestKeyDefinition(t *testing.T) {
	cases := []struct {
		key  string
		code string
		vk   int64
	}{
		{"s", "KeyS", 83},
		{"S", "KeyS", 83},
		{"1", "Digit1", 49},
		{"Enter", "Enter", 0},
	}
	for _, c := range cases {
		code, vk := keyDefinition(c.key)
		if code != c.code || vk != c.vk {
			t.Errorf("keyDefinition(%q) = %q, %d; want %q, %d", c.key, code, vk, c.code, c.vk)
		}
	}
}

func TestChromeCandidates(t *testing.T) {
	linux := chromeCandidates("linux", "/home/u")
	if len(linux) == 0 || linux[0] != "/usr/bin/google-chrome-stable" {
		t.Errorf("unexpected linux candidates: %v", linux)
	}
	mac := chromeCandidates("darwin", "")
	if !strings.Contains(mac[0], "Google Chrome.app") {
		t.Errorf("unexpected darwin candidates: %v", mac)
	}
}
