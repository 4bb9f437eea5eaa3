package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/imathwy/tbps/internal/server"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/servers.yaml"

type ServersConfig struct {
	DefaultServer string         `yaml:"default_server"`
	Servers       ServerURLs     `yaml:"servers"`
	HTTPTimeout   time.Duration  `yaml:"http_timeout"`
	Health        HealthSettings `yaml:"health"`
}

type ServerURLs struct {
	Mock       Endpoint `yaml:"mock"`
	Production Endpoint `yaml:"production"`
}

type Endpoint struct {
	URL string `yaml:"url"`
}

type HealthSettings struct {
	Interval     time.Duration `yaml:"interval"`
	DedupeWindow time.Duration `yaml:"dedupe_window"`
}

// LoadServersConfig reads the file named by TBPS_SERVERS_CONFIG, falling back
// to configs/servers.yaml. A missing default file yields the built-in defaults;
// a missing file that was asked for explicitly is an error.
func LoadServersConfig() (*ServersConfig, error) {
	path := os.Getenv("TBPS_SERVERS_CONFIG")
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	var cfg ServersConfig

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid servers config %s: %w", path, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *ServersConfig) {
	if cfg.DefaultServer == "" {
		cfg.DefaultServer = string(server.Mock)
	}
	if cfg.Servers.Mock.URL == "" {
		cfg.Servers.Mock.URL = server.DefaultMockURL
	}
	if cfg.Servers.Production.URL == "" {
		cfg.Servers.Production.URL = server.DefaultProductionURL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = 30 * time.Second
	}
	if cfg.Health.DedupeWindow == 0 {
		cfg.Health.DedupeWindow = 5 * time.Second
	}
}

func (c *ServersConfig) Validate() error {
	if _, err := server.ParseSelector(c.DefaultServer); err != nil {
		return err
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.Health.Interval < 0 {
		return fmt.Errorf("health.interval must be positive, got %s", c.Health.Interval)
	}
	if c.Health.DedupeWindow < 0 {
		return fmt.Errorf("health.dedupe_window must not be negative, got %s", c.Health.DedupeWindow)
	}
	if c.Health.DedupeWindow > c.Health.Interval {
		return fmt.Errorf("health.dedupe_window (%s) exceeds health.interval (%s)", c.Health.DedupeWindow, c.Health.Interval)
	}
	return nil
}
