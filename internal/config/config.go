// Package config loads the yaml configuration of the sqlbridge server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config contains the server configuration options. All fields have
// working defaults so the server runs without a config file.
type Config struct {
	// DataDir is the directory database files are stored under.
	DataDir string `yaml:"data_dir"`

	// HTTPAddr is the HTTP/JSON listen address; empty disables HTTP.
	HTTPAddr string `yaml:"http_addr"`

	// GRPCAddr is the gRPC listen address; empty disables gRPC.
	GRPCAddr string `yaml:"grpc_addr"`

	// TempDir receives exported files; empty means the system temp dir.
	TempDir string `yaml:"temp_dir"`

	// AutoExtensions lists engine modules to activate automatically on
	// every connect (e.g. json, fts5, rtree, geopoly).
	AutoExtensions []string `yaml:"auto_extensions"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:  "data",
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
	}
}

// Load reads the configuration from path, applied over the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.HTTPAddr == "" && c.GRPCAddr == "" {
		return fmt.Errorf("config: at least one of http_addr and grpc_addr must be set")
	}
	return nil
}
