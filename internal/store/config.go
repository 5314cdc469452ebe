package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCatalogs mirrors the backend's catalog options.
var DefaultCatalogs = []string{
	"Blueberry", "Lavanya", "Soundarya",
	"Malai Crape", "Sweet Sixteen",
	"Heritage", "Shakuntala",
}

// Config is the optional config.yaml in the state directory. Flags and PHOTOMAKER_* env vars
// override it.
type Config struct {
	Server   string   `yaml:"server,omitempty"`
	Auth     string   `yaml:"auth,omitempty"` // cookie|bearer
	Catalogs []string `yaml:"catalogs,omitempty"`
	// MaxBytes is the compression byte budget.
	MaxBytes int64 `yaml:"maxBytes,omitempty"`
}

func (s Store) ConfigPath() string {
	return filepath.Join(s.Dir, "config.yaml")
}

// LoadConfig reads config.yaml. A missing file is an empty config.
func (s Store) LoadConfig() (*Config, error) {
	b, err := os.ReadFile(s.ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s Store) SaveConfig(cfg *Config) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return atomicWriteFile(s.Dir, "config.yaml.*.tmp", s.ConfigPath(), b, 0o644)
}

// CatalogList returns the configured catalogs, or DefaultCatalogs.
func (c *Config) CatalogList() []string {
	var out []string
	if c != nil {
		for _, name := range c.Catalogs {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultCatalogs...)
	}
	return out
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
