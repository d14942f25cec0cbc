package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/titanous/json5"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Navigation/HTTP
	NavTimeout  time.Duration
	HTTPTimeout time.Duration
	UserAgent   string
	Proxy       string
	Engine      string

	// Rate Limiting
	RateLimitRPS   float64
	RateLimitBurst int

	// Browser
	BrowserHeadless bool
	ChromePath      string
	Keystroke       string
	SaveDelay       time.Duration

	// Caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Sinks
	OutputPath  string
	DownloadDir string

	// Targets overrides the built-in page plan when non-nil
	Targets *Targets
}

// Targets describes which pages to visit. Empty fields fall back to the
// built-in plan.
type Targets struct {
	BaseURL      string     `json:"base_url"`
	PathTemplate string     `json:"path_template"`
	Languages    []string   `json:"languages"`
	Groups       []TagGroup `json:"groups"`
	Banned       []string   `json:"banned"`
	Labels       []string   `json:"labels"`
}

// TagGroup is a topic tag and the page identifiers filed under it
type TagGroup struct {
	Tag   string   `json:"tag"`
	Pages []string `json:"pages"`
}

// fileConfig is the on-disk shape read from --config
type fileConfig struct {
	LogLevel    string   `json:"log_level"`
	NavTimeout  string   `json:"nav_timeout"`
	HTTPTimeout string   `json:"http_timeout"`
	UserAgent   string   `json:"user_agent"`
	Proxy       string   `json:"proxy"`
	Engine      string   `json:"engine"`
	RateLimit   float64  `json:"rate_limit_rps"`
	Burst       int      `json:"rate_limit_burst"`
	Headless    *bool    `json:"headless"`
	ChromePath  string   `json:"chrome_path"`
	Keystroke   string   `json:"keystroke"`
	SaveDelay   string   `json:"save_delay"`
	Output      string   `json:"output"`
	DownloadDir string   `json:"download_dir"`
	Targets     *Targets `json:"targets"`
}

// Default returns a Config populated only with defaults.
func Default() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		NavTimeout:        DefaultNavTimeout,
		HTTPTimeout:       DefaultHTTPTimeout,
		UserAgent:         DefaultUserAgent,
		Engine:            DefaultEngine,
		RateLimitRPS:      DefaultRateLimitRPS,
		RateLimitBurst:    DefaultRateLimitBurst,
		BrowserHeadless:   DefaultBrowserHeadless,
		Keystroke:         DefaultKeystroke,
		SaveDelay:         DefaultSaveDelay,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSizeBytes: DefaultCacheMaxSizeBytes,
		OutputPath:        DefaultOutputPath,
		DownloadDir:       DefaultDownloadDir,
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the executing *cobra.Command so both its local and inherited flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	// Config file sits between defaults and the environment
	if path := flagString(cmd, "config"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	// Override from environment variables (simple helpers)
	if v := os.Getenv("HARVEST_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("HARVEST_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("HARVEST_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("HARVEST_OUTPUT"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("HARVEST_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}

	// Read CLI flags if provided
	if cmd != nil {
		if s := flagString(cmd, "user-agent"); s != "" {
			cfg.UserAgent = s
		}
		if s := flagString(cmd, "proxy"); s != "" {
			cfg.Proxy = s
		}
		if s := flagString(cmd, "engine"); s != "" {
			cfg.Engine = s
		}
		if s := flagString(cmd, "timeout"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid --timeout %q: %w", s, err)
			}
			cfg.NavTimeout = d
		}
		if flagString(cmd, "json") == "true" {
			cfg.JSONLog = true
		}
		if flagString(cmd, "quiet") == "true" {
			cfg.LogLevel = "error"
		}
		if flagString(cmd, "verbose") == "true" {
			cfg.LogLevel = "debug"
		}
		if s := flagString(cmd, "output"); s != "" {
			cfg.OutputPath = s
		}
		if s := flagString(cmd, "download-dir"); s != "" {
			cfg.DownloadDir = s
		}
		if s := flagString(cmd, "keystroke"); s != "" {
			cfg.Keystroke = s
		}
		if s := flagString(cmd, "save-delay"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("invalid --save-delay %q: %w", s, err)
			}
			cfg.SaveDelay = d
		}
		if s := flagString(cmd, "targets"); s != "" {
			t, err := LoadTargets(s)
			if err != nil {
				return nil, err
			}
			cfg.Targets = t
		}
		if f := lookup(cmd, "headless"); f != nil && f.Changed {
			cfg.BrowserHeadless = f.Value.String() == "true"
		}
		if s := flagString(cmd, "rate"); s != "" {
			rps, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid --rate %q: %w", s, err)
			}
			if rps > 0 {
				cfg.RateLimitRPS = rps
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json5.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.Proxy != "" {
		cfg.Proxy = fc.Proxy
	}
	if fc.Engine != "" {
		cfg.Engine = fc.Engine
	}
	if fc.RateLimit > 0 {
		cfg.RateLimitRPS = fc.RateLimit
	}
	if fc.Burst > 0 {
		cfg.RateLimitBurst = fc.Burst
	}
	if fc.Headless != nil {
		cfg.BrowserHeadless = *fc.Headless
	}
	if fc.ChromePath != "" {
		cfg.ChromePath = fc.ChromePath
	}
	if fc.Keystroke != "" {
		cfg.Keystroke = fc.Keystroke
	}
	if fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if fc.DownloadDir != "" {
		cfg.DownloadDir = fc.DownloadDir
	}
	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{fc.NavTimeout, &cfg.NavTimeout},
		{fc.HTTPTimeout, &cfg.HTTPTimeout},
		{fc.SaveDelay, &cfg.SaveDelay},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("config file %s: invalid duration %q: %w", path, d.raw, err)
		}
		*d.dst = v
	}
	cfg.Targets = fc.Targets
	return nil
}

// LoadTargets reads a JSON5 targets file
func LoadTargets(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var t Targets
	if err := json5.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
	}
	return &t, nil
}

func lookup(cmd *cobra.Command, name string) *pflag.Flag {
	if cmd == nil {
		return nil
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

func flagString(cmd *cobra.Command, name string) string {
	if f := lookup(cmd, name); f != nil {
		return f.Value.String()
	}
	return ""
}
