package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/metapath/metapath/internal/pathnorm"
	"gopkg.in/yaml.v3"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.baseDir = filepath.Dir(absPath)
	cfg.ApplyDefaults()

	return &cfg, nil
}

func (c *Config) resolvePath(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return pathnorm.Normalize(p)
	}
	base := c.baseDir
	if base == "" {
		base = "."
	}
	return pathnorm.Normalize(base + string(filepath.Separator) + p)
}
