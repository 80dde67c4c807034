package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config mirrors the YAML schema. All values should be supplied via YAML;
// minimal validation occurs in Validate().
type Config struct {
	Version     int         `yaml:"version"`
	Server      Server      `yaml:"server"`
	Network     Network     `yaml:"network"`
	Concurrency Concurrency `yaml:"concurrency"`
	Logging     Logging     `yaml:"logging"`
	Device      Device      `yaml:"device"`
	UI          UIOptions   `yaml:"ui"`
}

type Server struct {
	// BaseURL is the scheme://host[:port] of the library server.
	BaseURL string `yaml:"base_url"`
	// LibraryPrefix is the server path under which directory pages live,
	// e.g. /rpc/cat/scan/epub.
	LibraryPrefix string `yaml:"library_prefix"`
	// IndexPath is the server path of the pre-generated whole-library JSON
	// index. Defaults to LibraryPrefix + "/index.json".
	IndexPath string `yaml:"index_path"`
	// LoginPath is the endpoint credentials are POSTed to.
	LoginPath string `yaml:"login_path"`
}

type Network struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	TLSVerify      bool   `yaml:"tls_verify"`
	UserAgent      string `yaml:"user_agent"`
}

type Concurrency struct {
	// BundleFetches bounds how many per-file fetches a bundling operation
	// keeps in flight at once. 0 means a conservative default.
	BundleFetches int `yaml:"bundle_fetches"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // human|json
}

type Device struct {
	// Profile selects the device capability profile: auto|kobo|kindle|pc.
	// auto derives the profile from the environment description.
	Profile string `yaml:"profile"`
}

type UIOptions struct {
	// RefreshHz controls the TUI refresh frequency (ticks per second).
	// If 0, defaults to 1. Values above 10 are clamped.
	RefreshHz int `yaml:"refresh_hz"`
	// DefaultTitle is shown at the library root. If empty a built-in title
	// is used.
	DefaultTitle string `yaml:"default_title"`
}

// Load reads, parses, expands, and validates a YAML config file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	expanded, err := expandTilde(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	// Expand ${ENV} placeholders before unmarshalling
	b = []byte(os.ExpandEnv(string(b)))
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.IndexPath == "" && c.Server.LibraryPrefix != "" {
		c.Server.IndexPath = strings.TrimSuffix(c.Server.LibraryPrefix, "/") + "/index.json"
	}
	if c.Device.Profile == "" {
		c.Device.Profile = "auto"
	}
}

func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	if !strings.Contains(c.Server.BaseURL, "://") {
		return fmt.Errorf("server.base_url must be absolute: %s", c.Server.BaseURL)
	}
	if c.Server.LibraryPrefix == "" {
		return errors.New("server.library_prefix is required")
	}
	if !strings.HasPrefix(c.Server.LibraryPrefix, "/") {
		return fmt.Errorf("server.library_prefix must start with /: %s", c.Server.LibraryPrefix)
	}
	if c.Network.TimeoutSeconds < 0 {
		return errors.New("network.timeout_seconds must be >= 0")
	}
	if c.Concurrency.BundleFetches < 0 {
		return errors.New("concurrency.bundle_fetches must be >= 0")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level invalid: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "human", "json":
	default:
		return fmt.Errorf("logging.format invalid: %s", c.Logging.Format)
	}
	switch strings.ToLower(c.Device.Profile) {
	case "auto", "kobo", "kindle", "pc":
	default:
		return fmt.Errorf("device.profile invalid: %s", c.Device.Profile)
	}
	if c.UI.RefreshHz < 0 {
		return errors.New("ui.refresh_hz must be >= 0")
	}
	return nil
}

func expandTilde(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p[0] != '~' {
		return p, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if p == "~" {
		return h, nil
	}
	if strings.HasPrefix(p, "~/") {
		return h + p[1:], nil
	}
	return p, nil
}
