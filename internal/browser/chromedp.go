// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/law-makers/pdfharvest/internal/ratelimit"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
)

// ChromeOptions configures the Chrome engine
type ChromeOptions struct {
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
	NavTimeout time.Duration
	Limiter    ratelimit.RateLimiter
	ExtraArgs  []chromedp.ExecAllocatorOption
}

// Chrome drives one Chrome instance over the DevTools protocol. Harvest
// navigations reuse a single primary tab; OpenTab creates throwaway tabs.
type Chrome struct {
	opts        ChromeOptions
	allocCancel context.CancelFunc
	primary     *chromeTab
	mu          sync.Mutex
	closed      bool
}

// NewChrome launches Chrome and opens the primary tab
func NewChrome(opts ChromeOptions) (*Chrome, error) {
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 60 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	primary := newChromeTab(browserCtx, browserCancel, opts)

	// First Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("%w: %v", ErrBrowserNotFound, err)
	}

	log.Info().Bool("headless", opts.Headless).Msg("Chrome ready")

	return &Chrome{
		opts:        opts,
		allocCancel: allocCancel,
		primary:     primary,
	}, nil
}

func allocatorOptions(opts ChromeOptions) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("mute-audio", true),
	}

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if path := FindChrome(opts.ChromePath); path != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(path)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	return append(allocOpts, opts.ExtraArgs...)
}

// Name returns the engine name
func (c *Chrome) Name() string {
	return string(models.EngineChrome)
}

// Navigate loads url in the primary tab
func (c *Chrome) Navigate(ctx context.Context, url string) (*models.Page, error) {
	if c.isClosed() {
		return nil, ErrBrowserClosed
	}
	return c.primary.Navigate(ctx, url)
}

// SetDownloadDir routes downloads started by the primary tab into dir, for
// content pages that turn into direct downloads.
func (c *Chrome) SetDownloadDir(ctx context.Context, dir string) error {
	if c.isClosed() {
		return ErrBrowserClosed
	}
	return c.primary.SetDownloadDir(ctx, dir)
}

// OpenTab opens a new tab in the same browser
func (c *Chrome) OpenTab(ctx context.Context) (Tab, error) {
	if c.isClosed() {
		return nil, ErrBrowserClosed
	}

	tabCtx, cancel := chromedp.NewContext(c.primary.ctx)
	tab := newChromeTab(tabCtx, cancel, c.opts)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	stop := context.AfterFunc(ctx, cancel)
	tab.stop = stop

	return tab, nil
}

// Close shuts down the browser
func (c *Chrome) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.primary.cancel()
	c.allocCancel()
	log.Debug().Msg("Chrome closed")
	return nil
}

func (c *Chrome) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type download struct {
	url   string
	state cdpbrowser.DownloadProgressState
}

// chromeTab is one page target. Listener callbacks run on chromedp's event
// goroutines, so everything they touch is guarded by mu.
type chromeTab struct {
	ctx        context.Context
	cancel     context.CancelFunc
	stop       func() bool
	navTimeout time.Duration
	limiter    ratelimit.RateLimiter

	idle chan struct{}

	mu        sync.Mutex
	doc       *network.Response
	mainFrame cdp.FrameID
	loader    cdp.LoaderID
	downloads map[string]*download
}

func newChromeTab(ctx context.Context, cancel context.CancelFunc, opts ChromeOptions) *chromeTab {
	t := &chromeTab{
		ctx:        ctx,
		cancel:     cancel,
		navTimeout: opts.NavTimeout,
		limiter:    opts.Limiter,
		idle:       make(chan struct{}, 1),
		downloads:  make(map[string]*download),
	}
	chromedp.ListenTarget(ctx, t.onEvent)
	// Download events may arrive on the browser session instead of the tab's
	chromedp.ListenBrowser(ctx, t.onDownloadEvent)
	return t
}

func (t *chromeTab) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument {
			return
		}
		t.mu.Lock()
		if t.doc == nil && t.mainFrame != "" && e.FrameID == t.mainFrame {
			t.doc = e.Response
			t.loader = e.LoaderID
		}
		t.mu.Unlock()

	case *page.EventLifecycleEvent:
		if e.Name != "networkIdle" {
			return
		}
		// Only the idle of the document this navigation loaded counts
		t.mu.Lock()
		current := t.loader != "" && e.FrameID == t.mainFrame && e.LoaderID == t.loader
		t.mu.Unlock()
		if !current {
			return
		}
		select {
		case t.idle <- struct{}{}:
		default:
		}

	default:
		t.onDownloadEvent(ev)
	}
}

func (t *chromeTab) onDownloadEvent(ev interface{}) {
	switch e := ev.(type) {
	case *cdpbrowser.EventDownloadWillBegin:
		t.mu.Lock()
		if _, ok := t.downloads[e.GUID]; !ok {
			t.downloads[e.GUID] = &download{url: e.URL, state: cdpbrowser.DownloadProgressStateInProgress}
			log.Debug().Str("url", e.URL).Str("file", e.SuggestedFilename).Msg("Download started")
		}
		t.mu.Unlock()

	case *cdpbrowser.EventDownloadProgress:
		t.mu.Lock()
		if d, ok := t.downloads[e.GUID]; ok {
			d.state = e.State
		}
		t.mu.Unlock()
	}
}

// reset clears per-navigation state before a new navigation starts
func (t *chromeTab) reset() {
	t.mu.Lock()
	t.doc = nil
	t.loader = ""
	t.mu.Unlock()

	select {
	case <-t.idle:
	default:
	}
}

// Navigate loads url and waits for the networkIdle lifecycle event
func (t *chromeTab) Navigate(ctx context.Context, url string) (*models.Page, error) {
	if err := t.limiter.Wait(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	t.reset()

	navCtx, cancel := context.WithTimeout(t.ctx, t.navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	log.Debug().Str("url", url).Msg("Navigating")

	if err := chromedp.Run(navCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(t.recordMainFrame),
		chromedp.Navigate(url),
	); err != nil {
		return nil, Classify(url, err)
	}

	select {
	case <-t.idle:
	case <-navCtx.Done():
		return nil, Classify(url, fmt.Errorf("waiting for network idle: %w", navCtx.Err()))
	}

	var html, location string
	if err := chromedp.Run(navCtx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return nil, Classify(url, fmt.Errorf("reading document: %w", err))
	}

	p := &models.Page{
		URL:       url,
		FinalURL:  location,
		HTML:      html,
		Headers:   make(map[string]string),
		FetchedAt: time.Now(),
	}

	t.mu.Lock()
	if doc := t.doc; doc != nil {
		p.StatusCode = int(doc.Status)
		p.ContentType = doc.MimeType
		for k, v := range doc.Headers {
			p.Headers[k] = fmt.Sprint(v)
			if strings.EqualFold(k, "Content-Type") {
				p.ContentType = fmt.Sprint(v)
			}
		}
	}
	t.mu.Unlock()

	log.Debug().
		Str("url", url).
		Int("status", p.StatusCode).
		Str("content_type", p.ContentType).
		Dur("elapsed", time.Since(start)).
		Msg("Navigation settled")

	return p, nil
}

// recordMainFrame stores the tab's top-level frame id, which stays the same
// across navigations.
func (t *chromeTab) recordMainFrame(ctx context.Context) error {
	tree, err := page.GetFrameTree().Do(ctx)
	if err != nil {
		return fmt.Errorf("frame tree: %w", err)
	}
	t.mu.Lock()
	t.mainFrame = tree.Frame.ID
	t.mu.Unlock()
	return nil
}

// SetDownloadDir routes downloads from this tab into dir and enables
// download progress events.
func (t *chromeTab) SetDownloadDir(ctx context.Context, dir string) error {
	return t.run(ctx, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
		WithDownloadPath(dir).
		WithEventsEnabled(true))
}

// BringToFront activates the tab
func (t *chromeTab) BringToFront(ctx context.Context) error {
	return t.run(ctx, page.BringToFront())
}

// PressKey dispatches a key down/up pair with mod held
func (t *chromeTab) PressKey(ctx context.Context, key string, mod Modifier) error {
	code, vk := keyDefinition(key)
	mods := cdpModifier(mod)

	return t.run(ctx,
		input.DispatchKeyEvent(input.KeyDown).
			WithKey(key).
			WithCode(code).
			WithWindowsVirtualKeyCode(vk).
			WithModifiers(mods),
		input.DispatchKeyEvent(input.KeyUp).
			WithKey(key).
			WithCode(code).
			WithWindowsVirtualKeyCode(vk).
			WithModifiers(mods),
	)
}

// DownloadCompleted reports whether a download of url finished in this tab
func (t *chromeTab) DownloadCompleted(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range t.downloads {
		if d.url == url && d.state == cdpbrowser.DownloadProgressStateCompleted {
			return true
		}
	}
	return false
}

// Close closes the tab
func (t *chromeTab) Close() error {
	if t.stop != nil {
		t.stop()
	}
	if err := chromedp.Cancel(t.ctx); err != nil {
		return fmt.Errorf("failed to close tab: %w", err)
	}
	return nil
}

func (t *chromeTab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func cdpModifier(m Modifier) input.Modifier {
	switch m {
	case ModCtrl:
		return input.ModifierCtrl
	case ModMeta:
		return input.ModifierMeta
	default:
		return input.ModifierNone
	}
}

// keyDefinition maps a printable key to its DOM code and Windows virtual key code
func keyDefinition(key string) (string, int64) {
	if len([]rune(key)) != 1 {
		return key, 0
	}
	r := unicode.ToUpper([]rune(key)[0])
	switch {
	case r >= 'A' && r <= 'Z':
		return "Key" + string(r), int64(r)
	case r >= '0' && r <= '9':
		return "Digit" + string(r), int64(r)
	}
	return key, 0
}
