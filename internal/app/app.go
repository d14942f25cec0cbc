// Package app wires configuration into the engines, limiter, cache and HTTP
// client shared by the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/law-makers/pdfharvest/internal/browser"
	"github.com/law-makers/pdfharvest/internal/cache"
	"github.com/law-makers/pdfharvest/internal/config"
	"github.com/law-makers/pdfharvest/internal/downloader"
	"github.com/law-makers/pdfharvest/internal/harvest"
	"github.com/law-makers/pdfharvest/internal/proxy"
	"github.com/law-makers/pdfharvest/internal/ratelimit"
	"github.com/law-makers/pdfharvest/pkg/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds the dependencies of one CLI invocation.
//
// The browser is started lazily by EnsureBrowser so commands that never
// navigate (targets, fetch) do not launch Chrome. Close releases everything.
type Application struct {
	Config      *config.Config
	Logger      *zerolog.Logger
	Cache       cache.Cache
	RateLimiter ratelimit.RateLimiter
	HTTPClient  *http.Client

	browser   browser.Browser
	browserMu sync.Mutex
	proxies   []string
	startTime time.Time
}

// New creates an Application from cfg
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := configureLogging(cfg)

	memCache := cache.NewMemoryCache(cfg.CacheMaxSizeBytes)
	rateLimiter := ratelimit.NewDomainLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.RateLimitRPS).
		Int("burst", cfg.RateLimitBurst).
		Msg("Rate limiter initialized")

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	proxies, err := proxy.ParseList(cfg.Proxy)
	if err != nil {
		memCache.Close()
		return nil, err
	}
	var roundTripper http.RoundTripper = transport
	switch len(proxies) {
	case 0:
	case 1:
		proxyURL, _ := url.Parse(proxies[0])
		transport.Proxy = http.ProxyURL(proxyURL)
	default:
		roundTripper = proxy.NewRoundTripper(proxy.NewProxyPool(proxies), transport)
		logger.Debug().Int("proxies", len(proxies)).Msg("Proxy rotation enabled")
	}
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: roundTripper,
	}

	logger.Debug().Msg("Application initialized")

	return &Application{
		Config:      cfg,
		Logger:      logger,
		Cache:       memCache,
		RateLimiter: rateLimiter,
		HTTPClient:  httpClient,
		proxies:     proxies,
		startTime:   time.Now(),
	}, nil
}

// configureLogging sets the global zerolog logger. Info is shown only with
// -v so the progress bar owns the terminal by default.
func configureLogging(cfg *config.Config) *zerolog.Logger {
	level := zerolog.WarnLevel
	switch cfg.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if cfg.JSONLog {
		w = os.Stderr
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	logger := log.Logger
	return &logger
}

// EnsureBrowser starts the configured engine on first use. headers are sent
// with every static engine request.
func (a *Application) EnsureBrowser(headers map[string]string) (browser.Browser, error) {
	a.browserMu.Lock()
	defer a.browserMu.Unlock()

	if a.browser != nil {
		return a.browser, nil
	}

	cfg := a.Config
	var (
		b   browser.Browser
		err error
	)
	switch models.EngineName(cfg.Engine) {
	case models.EngineStatic:
		b, err = browser.NewStatic(browser.StaticOptions{
			Client:     a.HTTPClient,
			Cache:      a.Cache,
			CacheTTL:   cfg.CacheTTL,
			Limiter:    a.RateLimiter,
			UserAgent:  cfg.UserAgent,
			Headers:    headers,
			NavTimeout: cfg.NavTimeout,
		})
	default:
		// Chrome takes a single --proxy-server; rotation applies to HTTP only
		var chromeProxy string
		if len(a.proxies) > 0 {
			chromeProxy = a.proxies[0]
		}
		b, err = browser.NewChrome(browser.ChromeOptions{
			Headless:   cfg.BrowserHeadless,
			UserAgent:  cfg.UserAgent,
			Proxy:      chromeProxy,
			ChromePath: cfg.ChromePath,
			NavTimeout: cfg.NavTimeout,
			Limiter:    a.RateLimiter,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start %s engine: %w", cfg.Engine, err)
	}

	a.browser = b
	a.Logger.Debug().Str("engine", b.Name()).Msg("Engine started")
	return b, nil
}

// Plan returns the page plan, with any configured overrides applied
func (a *Application) Plan() (harvest.Plan, error) {
	p := harvest.PlanFromConfig(a.Config.Targets)
	if err := p.Validate(); err != nil {
		return harvest.Plan{}, fmt.Errorf("invalid targets: %w", err)
	}
	return p, nil
}

// Downloader returns a downloader sharing the application's limiter
func (a *Application) Downloader(headers map[string]string, requirePDF, overwrite bool) *downloader.Downloader {
	return downloader.New(downloader.Options{
		Client:     a.HTTPClient,
		Timeout:    a.Config.HTTPTimeout,
		UserAgent:  a.Config.UserAgent,
		Headers:    headers,
		Limiter:    a.RateLimiter,
		RequirePDF: requirePDF,
		Overwrite:  overwrite,
	})
}

// Close shuts down the browser, cache and idle connections. Errors are
// logged so every step runs.
func (a *Application) Close(_ context.Context) error {
	a.browserMu.Lock()
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser")
		}
		a.browser = nil
	}
	a.browserMu.Unlock()

	if a.Cache != nil {
		if mc, ok := a.Cache.(*cache.MemoryCache); ok {
			a.Logger.Debug().Fields(mc.Stats()).Msg("Page cache stats")
		}
		a.Cache.Close()
	}
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
