package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultUserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0 Safari/537.36 pdfharvest/1.0"
	DefaultNavTimeout        = 60 * time.Second
	DefaultHTTPTimeout       = 60 * time.Second
	DefaultRateLimitRPS      = 2.0
	DefaultRateLimitBurst    = 4
	DefaultBrowserHeadless   = true
	DefaultCacheTTL          = 10 * time.Minute
	DefaultCacheMaxSizeBytes = 64 * 1024 * 1024 // 64MB
	DefaultOutputPath        = "sources/pdf_urls.json"
	DefaultDownloadDir       = "downloads"
	DefaultSaveDelay         = 1 * time.Second
	DefaultEngine            = "chrome"
	DefaultKeystroke         = "cdp"
	DefaultConcurrency       = 5
	MaxConcurrency           = 50
)
