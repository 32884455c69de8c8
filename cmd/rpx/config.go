package main

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the YAML-loaded configuration shared by every subcommand,
// a plain yaml-tagged struct with a defaultConfig/loadConfig pair.
type Config struct {
	ListenAddr   string `yaml:"listen_addr"`
	UpstreamAddr string `yaml:"upstream_addr"`

	ReusePort      bool   `yaml:"reuse_port"`
	WorkerCount    int    `yaml:"worker_count"`
	RetryInitialMs int    `yaml:"retry_initial_ms"`
	RetryMaxMs     int    `yaml:"retry_max_ms"`
	Keepalive      bool   `yaml:"keepalive"`
	MetricsAddr    string `yaml:"metrics_addr"`
	LogLevel       string `yaml:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		ReusePort:      true,
		WorkerCount:    0,
		RetryInitialMs: 500,
		RetryMaxMs:     30_000,
		Keepalive:      true,
		LogLevel:       "info",
	}
}

// loadConfig reads path, if non-empty, over a defaulted Config; a missing
// --config flag is not an error, since every field also has a flag-bindable
// default and rpx's subcommands are also usable ad hoc from flags alone.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rpx: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("rpx: parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) retryInitial() time.Duration {
	return time.Duration(c.RetryInitialMs) * time.Millisecond
}

func (c *Config) retryMax() time.Duration {
	return time.Duration(c.RetryMaxMs) * time.Millisecond
}

func parseAddr(s string) (netip.AddrPort, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("rpx: invalid address %q: %w", s, err)
	}
	return ap, nil
}
