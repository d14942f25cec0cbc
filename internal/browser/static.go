// internal/browser/static.go
package browser

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/pdfharvest/internal/cache"
	"github.com/law-makers/pdfharvest/internal/ratelimit"
	"github.com/law-makers/pdfharvest/internal/utils/headers"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// StaticOptions configures the static engine
type StaticOptions struct {
	Client     *http.Client
	Cache      cache.Cache
	CacheTTL   time.Duration
	Limiter    ratelimit.RateLimiter
	UserAgent  string
	Headers    map[string]string
	NavTimeout time.Duration
}

// Static fetches pages with plain HTTP GETs. It sees server-rendered markup
// only, which is enough for sites that do not build their links in script.
type Static struct {
	client     *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    ratelimit.RateLimiter
	userAgent  string
	headers    map[string]string
	navTimeout time.Duration
}

// NewStatic creates the static engine. A client without a cookie jar gets one
// scoped by the public suffix list.
func NewStatic(opts StaticOptions) (*Static, error) {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	if client.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		client.Jar = jar
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 60 * time.Second
	}

	return &Static{
		client:     client,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		limiter:    opts.Limiter,
		userAgent:  opts.UserAgent,
		headers:    opts.Headers,
		navTimeout: opts.NavTimeout,
	}, nil
}

// Name returns the engine name
func (s *Static) Name() string {
	return string(models.EngineStatic)
}

// Navigate GETs url. HTML bodies are parsed and re-serialized so callers see
// the same normalized markup a browser would expose. Attachments are reported
// as benign aborts.
func (s *Static) Navigate(ctx context.Context, url string) (*models.Page, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(url); ok {
			return p, nil
		}
	}

	if err := s.limiter.Wait(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, Classify(url, fmt.Errorf("failed to create request: %w", err))
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	headers.Apply(req, s.headers)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Classify(url, err)
	}
	defer resp.Body.Close()

	if isAttachment(resp.Header.Get("Content-Disposition")) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, Classify(url, ErrDirectDownload)
	}

	p := &models.Page{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     make(map[string]string, len(resp.Header)),
		FetchedAt:   time.Now(),
	}
	for key, values := range resp.Header {
		if len(values) > 0 {
			p.Headers[key] = values[0]
		}
	}

	if isHTML(p.ContentType) {
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return nil, Classify(url, fmt.Errorf("failed to parse HTML: %w", err))
		}
		if p.HTML, err = goquery.OuterHtml(doc.Selection); err != nil {
			return nil, Classify(url, fmt.Errorf("failed to render HTML: %w", err))
		}
	}

	log.Debug().
		Str("url", url).
		Int("status", p.StatusCode).
		Str("content_type", p.ContentType).
		Dur("elapsed", time.Since(start)).
		Msg("Fetch completed")

	if s.cache != nil && p.StatusCode == http.StatusOK && p.HTML != "" {
		_ = s.cache.Set(url, p, s.cacheTTL)
	}

	return p, nil
}

// Close drops idle connections. The cache is owned by the caller.
func (s *Static) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func isAttachment(disposition string) bool {
	if disposition == "" {
		return false
	}
	kind, _, err := mime.ParseMediaType(disposition)
	if err != nil {
		return strings.HasPrefix(strings.ToLower(strings.TrimSpace(disposition)), "attachment")
	}
	return kind == "attachment"
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}
