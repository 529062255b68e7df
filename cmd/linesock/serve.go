// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/someonegg/linesock"
	"github.com/someonegg/linesock/server"
)

var (
	serveEcho        bool
	serveMetricsAddr string
	serveWSPath      string
	serveMaxConns    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept line sockets",
	Long:  "Accept TCP (and optionally websocket) connections, log every received line and optionally echo it back.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("echo") {
			cfg.Echo = serveEcho
		}
		if serveMetricsAddr != "" {
			cfg.MetricsAddr = serveMetricsAddr
		}
		if serveWSPath != "" {
			cfg.WSPath = serveWSPath
		}
		if serveMaxConns > 0 {
			cfg.MaxConns = serveMaxConns
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveEcho, "echo", false, "send every received line back")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "HTTP address for /metrics and the websocket path")
	serveCmd.Flags().StringVar(&serveWSPath, "ws-path", "", "serve websocket sockets on this HTTP path")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 0, "maximum concurrent sockets")
}

// lineHandler logs received lines and echoes them when asked to.
func lineHandler(logger *slog.Logger, echo bool) linesock.Handler {
	return linesock.HandleFunc(func(s *linesock.Socket, msg string) bool {
		logger.Info("line received", slog.String("conn_id", s.ID()), slog.String("line", msg))
		if !echo {
			return false
		}
		if err := s.Send(context.Background(), msg); err != nil {
			logger.Debug("echo dropped", slog.String("conn_id", s.ID()), slog.Any("error", err))
		}
		return true
	})
}

func runServe(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	metrics, err := linesock.NewMetrics(reg, "linesock")
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithHandlers(lineHandler(logger, cfg.Echo)),
		server.WithSocketOptions(linesock.WithQueueSize(cfg.QueueSize)),
		server.WithMaxConns(cfg.MaxConns),
	}
	if cfg.AcceptRate > 0 {
		opts = append(opts, server.WithAcceptRate(rate.Limit(cfg.AcceptRate), cfg.AcceptBurst))
	}
	srv := server.New(opts...)

	if err := srv.Start(cfg.Addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	var hs *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if cfg.WSPath != "" {
			mux.Handle(cfg.WSPath, srv.WebsocketHandler())
		}
		hs = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("http listening", slog.String("addr", cfg.MetricsAddr))
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()

	if hs != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(sctx)
	}
	srv.Stop()
	return nil
}
