package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flofmatrix/console-sync/internal/api"
	"github.com/flofmatrix/console-sync/internal/config"
	"github.com/flofmatrix/console-sync/internal/console"
	"github.com/flofmatrix/console-sync/internal/database"
	"github.com/flofmatrix/console-sync/internal/recorder"
	"github.com/flofmatrix/console-sync/internal/stream"
	"github.com/flofmatrix/console-sync/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/console.local.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting console sync",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"base_url", cfg.Server.BaseURL,
		"poll_interval", cfg.Poll.Interval,
		"recorder", cfg.Recorder.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	apiOpts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithTimeout(cfg.Server.Timeout),
	}
	if cfg.Server.APIKey != "" {
		apiOpts = append(apiOpts, api.WithAuthToken(cfg.Server.APIKey))
	}
	if cfg.Server.MaxRetries > 0 {
		apiOpts = append(apiOpts, api.WithRetries(cfg.Server.MaxRetries, time.Second))
	}
	client := api.NewClient(cfg.Server.BaseURL, apiOpts...)

	streamURL := cfg.Stream.URL
	if streamURL == "" {
		streamURL = stream.DeriveURL(cfg.Server.BaseURL)
	}
	streamCfg := stream.Config{
		URL:          streamURL,
		AuthToken:    cfg.Server.APIKey,
		WriteTimeout: cfg.Stream.WriteTimeout,
		PingInterval: cfg.Stream.PingInterval,
	}
	push := stream.NewClient(streamCfg,
		stream.WithLogger(logger),
		stream.WithRetryPolicy(stream.FixedDelay{Delay: cfg.Stream.ReconnectDelay}),
	)

	svcOpts := []console.Option{console.WithLogger(logger)}

	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		logger.Info("connecting to recorder database",
			"host", cfg.Recorder.Database.Host,
			"database", cfg.Recorder.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Recorder.Database)
		if err != nil {
			logger.Error("failed to connect to recorder database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		rec = recorder.New(recorder.Config{
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
			BufferSize:    cfg.Recorder.BufferSize,
		}, pool, logger)
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
		svcOpts = append(svcOpts, console.WithRecorder(rec))
	}

	svcCfg := console.Config{
		PollInterval:    cfg.Poll.Interval,
		JobPollInterval: cfg.Jobs.PollInterval,
		RequestTimeout:  cfg.Server.Timeout,
	}
	svc := console.New(svcCfg, client, push, svcOpts...)

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start sync service", "error", err)
		os.Exit(1)
	}

	logger.Info("console sync running", "base_url", cfg.Server.BaseURL)

	<-ctx.Done()

	logger.Info("shutting down...")

	svc.Stop()
	if rec != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		rec.Stop(stopCtx)
	}

	logger.Info("console sync stopped")
}
