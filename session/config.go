package session

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all session configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`

	// NavigateTimeout bounds one navigation including the load event.
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`

	// WaitTimeout bounds one browser_wait_for poll loop.
	WaitTimeout time.Duration `yaml:"wait_timeout"`

	// MaxContentChars truncates extract_content output.
	MaxContentChars int `yaml:"max_content_chars"`

	// DisableAutoSnapshot turns off the re-capture that normally follows
	// every mutating action.
	DisableAutoSnapshot bool `yaml:"disable_auto_snapshot"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	// RemoteURL connects to an external Chrome instead of launching one.
	RemoteURL string `yaml:"remote_url"`

	MemoryLimitMB    int           `yaml:"memory_limit_mb"`
	RecycleInterval  time.Duration `yaml:"recycle_interval"`
	ResourceBlocking []string      `yaml:"resource_blocking"`

	// NoStealth disables the anti-detection patches on new tabs.
	NoStealth bool `yaml:"no_stealth"`
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 10 * time.Second
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 50000
	}
	if c.Browser.MemoryLimitMB <= 0 {
		c.Browser.MemoryLimitMB = 1024
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.defaults()
	return cfg, nil
}
