package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jsondb/internal/api"
	"jsondb/internal/config"
	"jsondb/internal/engine"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Replay completes inside Open; nothing serves until it has.
	db, cancelLog, err := engine.Open(ctx, engine.CommitLogCfg{
		Path:           cfg.LogPath,
		MaxPending:     cfg.CommitLog.MaxPending,
		EnqueueTimeout: cfg.EnqueueTimeout(),
	}, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer cancelLog()

	tcp, err := api.NewTCPListener(cfg.ListenAddr, db, logger)
	if err != nil {
		logger.Error("failed to start listener", "error", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHTTPHandler(db, tcp),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http endpoints on", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		_ = tcp.Close()
	}()

	if err := tcp.Serve(); err != nil {
		logger.Error("serve failed", "error", err)
		os.Exit(1)
	}
}
