// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command linesock serves and dials line sockets.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	addrFlag   string
	logLevel   string
	queueSize  int
)

var rootCmd = &cobra.Command{
	Use:           "linesock",
	Short:         "Line-oriented TCP messaging",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "TCP address, overrides the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().IntVar(&queueSize, "queue-size", 0, "write queue capacity per socket")
}

// loadConfig applies the persistent flags to the config file and sets up
// the default logger.
func loadConfig(cmd *cobra.Command) (*Config, *slog.Logger, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if queueSize > 0 {
		cfg.QueueSize = queueSize
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
