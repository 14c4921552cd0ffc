// fvc-server hosts repositories for fvc push and pull.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kilupskalvis/fvc/internal/remote/server"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		addr       = flag.String("addr", envOrDefault("FVC_SERVER_ADDR", ":8420"), "listen address")
		dataDir    = flag.String("data-dir", envOrDefault("FVC_SERVER_DATA_DIR", "./fvc-data"), "repository data directory")
		tokenFile  = flag.String("token-file", envOrDefault("FVC_SERVER_TOKEN_FILE", ""), "token store file (default: <data-dir>/tokens.json)")
		adminToken = flag.String("admin-token", envOrDefault("FVC_SERVER_ADMIN_TOKEN", ""), "admin API token (empty disables admin API)")
		webhooks   = flag.String("webhooks", envOrDefault("FVC_SERVER_WEBHOOKS", ""), "comma-separated webhook URLs for push events")
		hookSecret = flag.String("webhook-secret", envOrDefault("FVC_SERVER_WEBHOOK_SECRET", ""), "HMAC secret for webhook signatures")
		rateLimit  = flag.Int("rate-limit", 300, "requests per minute per token (0 disables)")
		logLevel   = flag.String("log-level", envOrDefault("FVC_SERVER_LOG_LEVEL", "info"), "log level: debug, info, warn, error")
		logFormat  = flag.String("log-format", envOrDefault("FVC_SERVER_LOG_FORMAT", "text"), "log format: text or json")
	)
	flag.Parse()

	var level slog.Level
	switch strings.ToLower(*logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(*logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)

	repos, err := server.NewDiskRepos(*dataDir)
	if err != nil {
		logger.Error("failed to open data directory", "error", err)
		os.Exit(1)
	}
	defer repos.Close()

	tokenPath := *tokenFile
	if tokenPath == "" {
		tokenPath = *dataDir + "/tokens.json"
	}
	tokens := server.NewFileTokenStore(tokenPath)

	cfg := server.DefaultServerConfig()
	cfg.AdminToken = *adminToken
	cfg.RequestsPerMinute = *rateLimit
	cfg.WebhookSecret = *hookSecret
	if *webhooks != "" {
		for _, u := range strings.Split(*webhooks, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.Webhooks = append(cfg.Webhooks, u)
			}
		}
	}

	httpHandler, stop := server.Handler(repos, repos, tokens, cfg, logger)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fvc-server listening", "addr", *addr, "data_dir", *dataDir)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}
