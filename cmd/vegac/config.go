package main

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors a .vegac.yaml project file. Every field is optional;
// flags passed on the command line always take precedence over a value
// loaded here.
type fileConfig struct {
	Output      string   `yaml:"output"`
	Verbose     bool     `yaml:"verbose"`
	Watch       bool     `yaml:"watch"`
	SearchPaths []string `yaml:"search_paths"`
}

// loadConfig walks upward from startDir looking for a .vegac.yaml file,
// stopping at the first one found or at the filesystem root. A missing
// file is not an error; it just yields a zero-value config.
func loadConfig(startDir string) (fileConfig, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return fileConfig{}, err
	}
	for {
		candidate := filepath.Join(dir, ".vegac.yaml")
		data, err := os.ReadFile(candidate)
		if err == nil {
			var cfg fileConfig
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return fileConfig{}, err
			}
			return cfg, nil
		}
		if !os.IsNotExist(err) {
			return fileConfig{}, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fileConfig{}, nil
		}
		dir = parent
	}
}
