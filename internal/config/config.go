// Package config loads the on-disk configuration for the key-value
// service: network address, data/log directories, and the page
// store/B-tree tuning knobs.
package config

import (
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Home     string `yaml:"home"`
	DataDir  string `yaml:"data_dir"`
	LogDir   string `yaml:"log_dir"`
	UserFile string `yaml:"user_file"`

	EnableTLS bool   `yaml:"enable_tls"`
	TLSCert   string `yaml:"tls_cert"`
	TLSKey    string `yaml:"tls_key"`

	// Tree tuning. Zero values are filled in with defaults sized for a
	// 512-byte page by ApplyDefaults.
	PageSize         int `yaml:"page_size"`
	NumBuffers       int `yaml:"num_buffers"`
	KeySize          int `yaml:"key_size"`
	DataSize         int `yaml:"data_size"`
	MappingCapacity  int `yaml:"mapping_capacity"`
	EraseBlockPages  int `yaml:"erase_block_pages"`
}

const (
	defaultPageSize        = 512
	defaultNumBuffers      = 4
	defaultKeySize         = 8
	defaultDataSize        = 12
	defaultMappingCapacity = 32
	defaultEraseBlockPages = 4
)

// ApplyDefaults fills any zero-valued tuning field with a sane default.
// Kept separate from Load so a Config built programmatically can get
// the same fill-in behavior.
func (c *Config) ApplyDefaults() {
	if c.PageSize == 0 {
		c.PageSize = defaultPageSize
	}
	if c.NumBuffers == 0 {
		c.NumBuffers = defaultNumBuffers
	}
	if c.KeySize == 0 {
		c.KeySize = defaultKeySize
	}
	if c.DataSize == 0 {
		c.DataSize = defaultDataSize
	}
	if c.MappingCapacity == 0 {
		c.MappingCapacity = defaultMappingCapacity
	}
	if c.EraseBlockPages == 0 {
		c.EraseBlockPages = defaultEraseBlockPages
	}
}

// Load resolves the application home directory (homeOverride, then
// $GOSTORE_HOME, then ~/.local/share/gostore), merges in config.yaml if
// present, and ensures the data/log directories exist.
func Load(homeOverride, configOverride string) (*Config, error) {
	home := homeOverride
	if home == "" {
		home = os.Getenv("GOSTORE_HOME")
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		home = filepath.Join(userHome, ".local", "share", "gostore")
	}

	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:     "127.0.0.1:57083",
		Home:     home,
		DataDir:  filepath.Join(home, "data"),
		LogDir:   filepath.Join(home, "log"),
		UserFile: filepath.Join(home, "users.json"),
	}

	cfgPath := configOverride
	if cfgPath == "" {
		cfgPath = filepath.Join(home, "config.yaml")
	}

	if f, err := os.Open(cfgPath); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}
