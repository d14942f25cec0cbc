package config

import (
	"fmt"

	"github.com/law-makers/pdfharvest/internal/proxy"
	urlutil "github.com/law-makers/pdfharvest/internal/utils/url"
)

func validate(c *Config) error {
	if c.NavTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.SaveDelay < 0 {
		return fmt.Errorf("save delay must be >= 0")
	}
	if c.CacheMaxSizeBytes <= 0 {
		return fmt.Errorf("cache max size must be > 0")
	}
	if c.Engine != "chrome" && c.Engine != "static" {
		return fmt.Errorf("engine must be chrome or static, got %q", c.Engine)
	}
	if c.Keystroke != "cdp" && c.Keystroke != "os" {
		return fmt.Errorf("keystroke backend must be cdp or os, got %q", c.Keystroke)
	}
	if _, err := proxy.ParseList(c.Proxy); err != nil {
		return err
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if t := c.Targets; t != nil {
		if err := validateTargets(t); err != nil {
			return fmt.Errorf("targets: %w", err)
		}
	}
	return nil
}

func validateTargets(t *Targets) error {
	if t.BaseURL != "" {
		if err := urlutil.ValidateURL(t.BaseURL); err != nil {
			return err
		}
	}
	for i, g := range t.Groups {
		if len(g.Pages) == 0 {
			return fmt.Errorf("group %d (%q) has no pages", i, g.Tag)
		}
	}
	return nil
}
