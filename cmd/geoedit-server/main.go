// Command geoedit-server serves queries over map data and a saved edit history.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kilupskalvis/geoedit/internal/config"
	"github.com/kilupskalvis/geoedit/internal/history"
	"github.com/kilupskalvis/geoedit/internal/server"
)

func main() {
	// The config file only supplies defaults; flags and environment win.
	cfg, err := loadConfig(os.Getenv("GEOEDIT_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	listen := flag.String("listen", envOrDefault("GEOEDIT_LISTEN", cfg.Server.Listen), "Listen address")
	dataFiles := flag.String("data", os.Getenv("GEOEDIT_DATA"), "Comma-separated entity documents to load")
	historyFile := flag.String("history", os.Getenv("GEOEDIT_HISTORY"), "Saved history to restore on start")
	adminToken := flag.String("admin-token", os.Getenv("GEOEDIT_ADMIN_TOKEN"), "Token for the editing endpoints")
	logLevel := flag.String("log-level", envOrDefault("GEOEDIT_LOG_LEVEL", cfg.LogLevel), "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", envOrDefault("GEOEDIT_LOG_FORMAT", cfg.LogFormat), "Log format (json, text)")
	tlsCert := flag.String("tls-cert", os.Getenv("GEOEDIT_TLS_CERT"), "TLS certificate file")
	tlsKey := flag.String("tls-key", os.Getenv("GEOEDIT_TLS_KEY"), "TLS key file")
	webhookURLs := flag.String("webhook-urls", envOrDefault("GEOEDIT_WEBHOOK_URLS", strings.Join(cfg.Server.WebhookURLs, ",")), "Comma-separated webhook URLs to notify on undo, redo and restore")
	flag.Parse()

	// Setup logger
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	paths := splitList(*dataFiles)
	if len(paths) == 0 {
		logger.Error("no data files given", "hint", "set --data or GEOEDIT_DATA")
		os.Exit(1)
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 5*time.Minute)
	h, err := history.Load(loadCtx, paths, *historyFile, history.WithLogger(logger))
	cancelLoad()
	if err != nil {
		logger.Error("failed to load", "error", err)
		os.Exit(1)
	}

	// Server config
	scfg := server.DefaultServerConfig()
	scfg.AdminToken = *adminToken
	scfg.RequestsPerMinute = cfg.Server.RequestsPerMinute
	if cfg.Server.MaxRequestBody > 0 {
		scfg.MaxRequestBody = cfg.Server.MaxRequestBody
	}
	if *adminToken == "" {
		logger.Info("no admin token set, editing endpoints disabled")
	}

	// Webhooks
	if urls := splitList(*webhookURLs); len(urls) > 0 {
		scfg.Webhooks = server.NewWebhookNotifier(&server.WebhookConfig{URLs: urls}, logger)
		logger.Info("webhooks configured", "count", len(urls))
	}

	// Handler
	handler, handlerCleanup := server.Handler(h, scfg, logger)
	defer handlerCleanup()

	// HTTP server
	srv := &http.Server{
		Addr:         *listen,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return context.Background() },
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting geoedit-server", "listen", *listen, "data", paths, "config", cfg.Path())
		var err error
		if *tlsCert != "" && *tlsKey != "" {
			err = srv.ListenAndServeTLS(*tlsCert, *tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// loadConfig reads path, or the nearest .geoedit.toml when path is empty.
// Without any file the server logs JSON at info level.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		found, err := config.FindConfigFile(cwd)
		if errors.Is(err, config.ErrNotFound) {
			cfg := config.Default()
			cfg.LogLevel = "info"
			cfg.LogFormat = "json"
			return cfg, nil
		}
		if err != nil {
			return nil, err
		}
		path = found
	}
	return config.LoadFile(path)
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
