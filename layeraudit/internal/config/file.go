// CLAUDE:SUMMARY Defines layeraudit config structs and parses YAML configuration files with defaults.
// Package config handles layeraudit configuration from YAML files or SQLite.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Audit names, as used in page configs and API requests.
const (
	AuditLayers          = "layers"
	AuditLinkInHead      = "link_in_head"
	AuditInvisibleImages = "invisible_images"
)

// AllAudits is the default audit selection, in run order.
var AllAudits = []string{AuditLayers, AuditLinkInHead, AuditInvisibleImages}

// Config is the top-level layeraudit configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Collector CollectorConfig `yaml:"collector"`
	Pages     []PageConfig    `yaml:"pages"`
	Sinks     []SinkConfig    `yaml:"sinks"`
	Server    ServerConfig    `yaml:"server"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
}

// CollectorConfig tunes the layer tree capture.
type CollectorConfig struct {
	TreeTimeout time.Duration `yaml:"tree_timeout"`
	Concurrency int           `yaml:"concurrency"` // 0 = unbounded
}

// PageConfig defines a page to audit.
type PageConfig struct {
	ID       string        `yaml:"id" json:"id"`
	URL      string        `yaml:"url" json:"url"`
	Audits   []string      `yaml:"audits" json:"audits,omitempty"`
	Interval time.Duration `yaml:"interval" json:"interval,omitempty"` // 0 = once
}

// Runs reports whether the page selects the named audit.
func (p PageConfig) Runs(audit string) bool {
	return slices.Contains(p.Audits, audit)
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | sqlite
	URL  string `yaml:"url"`  // for webhook
	Path string `yaml:"path"` // for sqlite

	// Retention bounds sqlite report history. Zero keeps reports forever.
	Retention time.Duration `yaml:"retention"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Collector.TreeTimeout <= 0 {
		c.Collector.TreeTimeout = 10 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8086"
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	for i := range c.Pages {
		c.Pages[i].ApplyDefaults()
	}
}

// ApplyDefaults fills the audit selection and the page id.
func (p *PageConfig) ApplyDefaults() {
	if len(p.Audits) == 0 {
		p.Audits = slices.Clone(AllAudits)
	}
	if p.ID == "" {
		p.ID = p.URL
	}
}

// Validate rejects pages without a URL and unknown audit or sink names.
func (c *Config) Validate() error {
	for i, p := range c.Pages {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("config: pages[%d]: %w", i, err)
		}
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs a url", i)
			}
		case "sqlite":
			if s.Path == "" {
				return fmt.Errorf("config: sinks[%d]: sqlite needs a path", i)
			}
			if s.Retention < 0 {
				return fmt.Errorf("config: sinks[%d]: negative retention", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

// Validate checks one page.
func (p PageConfig) Validate() error {
	if p.URL == "" {
		return fmt.Errorf("missing url")
	}
	for _, a := range p.Audits {
		if !slices.Contains(AllAudits, a) {
			return fmt.Errorf("unknown audit %q", a)
		}
	}
	return nil
}

// ApplyDefaults fills every unset field of cfg.
func ApplyDefaults(cfg *Config) {
	cfg.applyDefaults()
}
