package layeraudit

import "github.com/hazyhaar/renderaudit/layeraudit/internal/config"

// Config is the top-level layeraudit configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// CollectorConfig tunes the layer tree capture.
type CollectorConfig = config.CollectorConfig

// PageConfig defines a page to audit.
type PageConfig = config.PageConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// ServerConfig configures the HTTP API.
type ServerConfig = config.ServerConfig

// Audit names accepted in PageConfig.Audits.
const (
	AuditLayers          = config.AuditLayers
	AuditLinkInHead      = config.AuditLinkInHead
	AuditInvisibleImages = config.AuditInvisibleImages
)

// PagesSchema creates the audit_pages table.
const PagesSchema = config.Schema

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied and no pages.
func DefaultConfig() *Config {
	cfg := &Config{}
	config.ApplyDefaults(cfg)
	return cfg
}
