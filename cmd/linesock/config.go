// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/someonegg/linesock"
)

// Config is the file configuration of the command, flags override it.
type Config struct {
	Addr        string  `yaml:"addr"`
	QueueSize   int     `yaml:"queue_size"`
	MaxConns    int     `yaml:"max_conns"`
	AcceptRate  float64 `yaml:"accept_rate"`
	AcceptBurst int     `yaml:"accept_burst"`
	MetricsAddr string  `yaml:"metrics_addr"`
	WSPath      string  `yaml:"ws_path"`
	LogLevel    string  `yaml:"log_level"`
	Echo        bool    `yaml:"echo"`
}

func defaultConfig() *Config {
	return &Config{
		Addr:      "127.0.0.1:7000",
		QueueSize: linesock.DefaultQueueSize,
		LogLevel:  "info",
	}
}

// LoadConfig reads path, a missing path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Addr == "" {
		cfg.Addr = defaultConfig().Addr
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = linesock.DefaultQueueSize
	}
	if cfg.MaxConns < 0 {
		return nil, fmt.Errorf("invalid max_conns %d", cfg.MaxConns)
	}
	if cfg.AcceptRate < 0 {
		return nil, fmt.Errorf("invalid accept_rate %v", cfg.AcceptRate)
	}
	if cfg.WSPath != "" && !strings.HasPrefix(cfg.WSPath, "/") {
		cfg.WSPath = "/" + cfg.WSPath
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return l, nil
}
