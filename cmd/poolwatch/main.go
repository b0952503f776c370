// Package main is the entry point for poolwatch, the blue/green log watcher.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/poolwatch/poolwatch/internal/config"
	"github.com/poolwatch/poolwatch/internal/engine"
	"github.com/poolwatch/poolwatch/internal/history"
	"github.com/poolwatch/poolwatch/internal/monitoring"
	"github.com/poolwatch/poolwatch/internal/notify"
	"github.com/poolwatch/poolwatch/internal/ops"
	"github.com/poolwatch/poolwatch/internal/tail"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	// Try loading from ~/.config/poolwatch/.env first
	configEnv := filepath.Join(homeDir, ".config", "poolwatch", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

// resolveConfigPath resolves the config file location.
// Checks: user flag -> filesystem locations.
func resolveConfigPath(userConfig string) (string, error) {
	if userConfig != "" {
		if _, err := os.Stat(userConfig); err != nil {
			return "", fmt.Errorf("config file not found: %s", userConfig)
		}
		return userConfig, nil
	}

	searchPaths := []string{
		"configs/poolwatch.yaml",
		"configs/config.yaml",
		"/etc/poolwatch/config.yaml",
	}
	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no config file found, specify -config path")
}

func main() {
	os.Exit(run())
}

func run() int {
	loadEnvFiles()

	configPath := flag.String("config", "", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	logCfg := monitoring.LoggerConfig{
		Level:  cfg.Monitoring.LogLevel,
		Format: cfg.Monitoring.LogFormat,
		Output: cfg.Monitoring.LogOutput,
	}
	if *debug {
		logCfg.Level = "debug"
	}
	monitoring.Setup(logCfg)

	log.Info().
		Str("version", Version).
		Str("config", path).
		Str("log_path", cfg.Log.Path).
		Msg("poolwatch starting")

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	var hist *history.Store
	if cfg.History.Path != "" {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.History.Path).Msg("failed to open alert history")
			return 1
		}
		defer hist.Close()
	}

	var notifier notify.Notifier
	if cfg.Webhook.DryRun || cfg.Webhook.URL == "" {
		log.Warn().Msg("webhook dry-run mode: alerts will be logged, not delivered")
		notifier = notify.DryRun{}
	} else {
		notifier = notify.NewWebhook(notify.Config{
			URL:         cfg.Webhook.URL,
			Timeout:     cfg.Webhook.Timeout.Std(),
			MaxAttempts: cfg.Webhook.MaxAttempts,
		})
	}

	eng := engine.New(engine.Options{
		ErrorRateThreshold: cfg.Alerts.ErrorRateThreshold,
		WindowSize:         cfg.Alerts.WindowSize,
		MinSamples:         cfg.Alerts.MinSamples,
		Cooldown:           cfg.Alerts.Cooldown.Std(),
		MaintenanceMode:    cfg.Alerts.MaintenanceMode,
		SkipRequests:       cfg.Log.SkipRequests,
	}, notifier, hist, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// SIGHUP forces a config reload; the poller also picks up mtime changes.
	forceReload := make(chan struct{}, 1)
	go func() {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		for range hup {
			select {
			case forceReload <- struct{}{}:
			default:
			}
		}
	}()
	reloader := config.NewReloader(path, 0, func(next *config.Config) {
		eng.SetMaintenance(next.Alerts.MaintenanceMode)
	})
	go reloader.Run(ctx, forceReload)

	var opsSrv *ops.Server
	if cfg.Ops.Enabled {
		opsSrv = ops.NewServer(cfg.Ops.Port, eng, hist, registry)
		go func() {
			if err := opsSrv.Start(); err != nil {
				log.Error().Err(err).Msg("ops server failed")
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info().Msg("shutdown signal received")
		cancel()
	}()

	follower := tail.NewFollower(tail.Config{
		Path:         cfg.Log.Path,
		FromStart:    cfg.Log.FromStart,
		PollInterval: cfg.Log.PollInterval.Std(),
		MaxFailures:  cfg.Source.MaxFailures,
		OnRotate: func() {
			metrics.Rotations.Inc()
		},
	})

	exitCode := 0
	if err := follower.Run(ctx, func(line string) {
		eng.HandleLine(ctx, line)
	}); err != nil {
		var srcErr *tail.SourceError
		if errors.As(err, &srcErr) {
			log.Error().Err(srcErr.Err).
				Str("path", srcErr.Path).
				Int("failures", srcErr.Failures).
				Msg("log source failure budget exhausted")
		} else {
			log.Error().Err(err).Msg("tail loop failed")
		}
		exitCode = 1
	}

	// Let in-flight webhook deliveries finish.
	eng.Wait(10 * time.Second)

	if opsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := opsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("ops server shutdown error")
		}
	}

	log.Info().Msg("poolwatch stopped")
	return exitCode
}
