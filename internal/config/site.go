package config

import (
	"time"
)

// SiteConfig holds the profile settings for one site. Zero values leave
// the corresponding CrawlConfig field untouched.
type SiteConfig struct {
	MaxPages int  `yaml:"maxPages,omitempty"`
	MaxDepth *int `yaml:"maxDepth,omitempty"`

	// Filter is the URL regular expression.
	Filter string `yaml:"filter,omitempty"`

	TextRequired []string `yaml:"textRequired,omitempty"`
	SkipHrefs    []string `yaml:"skipHrefs,omitempty"`
	URLPrefix    string   `yaml:"urlPrefix,omitempty"`

	// Render is "static" or "browser".
	Render string `yaml:"render,omitempty"`

	Workers int           `yaml:"workers,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	UserAgent string `yaml:"userAgent,omitempty"`
}

// File is the structure of the .sitesync profile file.
type File struct {
	// Defaults apply to every crawl.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps a host (optionally with port) to its settings, which
	// override Defaults.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the settings for host, merged over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	site, ok := cf.Sites[host]
	if !ok {
		return result
	}

	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if site.MaxDepth != nil {
		result.MaxDepth = site.MaxDepth
	}
	if site.Filter != "" {
		result.Filter = site.Filter
	}
	if len(site.TextRequired) > 0 {
		result.TextRequired = site.TextRequired
	}
	if len(site.SkipHrefs) > 0 {
		result.SkipHrefs = site.SkipHrefs
	}
	if site.URLPrefix != "" {
		result.URLPrefix = site.URLPrefix
	}
	if site.Render != "" {
		result.Render = site.Render
	}
	if site.Workers != 0 {
		result.Workers = site.Workers
	}
	if site.Timeout != 0 {
		result.Timeout = site.Timeout
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if site.UserAgent != "" {
		result.UserAgent = site.UserAgent
	}
	if len(site.Headers) > 0 {
		merged := make(map[string]string, len(result.Headers)+len(site.Headers))
		for k, v := range result.Headers {
			merged[k] = v
		}
		for k, v := range site.Headers {
			merged[k] = v
		}
		result.Headers = merged
	}
	return result
}

// ApplyTo copies the non-zero settings onto cfg.
func (s SiteConfig) ApplyTo(cfg *CrawlConfig) error {
	if s.MaxPages != 0 {
		cfg.MaxPages = s.MaxPages
	}
	if s.MaxDepth != nil {
		cfg.MaxDepth = *s.MaxDepth
	}
	if s.Filter != "" {
		cfg.URLFilter = s.Filter
	}
	if len(s.TextRequired) > 0 {
		cfg.RequiredText = append([]string(nil), s.TextRequired...)
	}
	if len(s.SkipHrefs) > 0 {
		cfg.SkipHrefSubstrings = append([]string(nil), s.SkipHrefs...)
	}
	if s.URLPrefix != "" {
		cfg.AllowedURLPrefix = s.URLPrefix
	}
	if s.Render != "" {
		mode, err := ParseRenderMode(s.Render)
		if err != nil {
			return err
		}
		cfg.Render = mode
	}
	if s.Workers != 0 {
		cfg.Workers = s.Workers
	}
	if s.Timeout != 0 {
		cfg.FetchTimeout = s.Timeout
	}
	if s.Cookie != "" {
		cfg.Cookie = s.Cookie
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if len(s.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(s.Headers))
		}
		for k, v := range s.Headers {
			cfg.Headers[k] = v
		}
	}
	return nil
}
