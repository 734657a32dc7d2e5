package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/flightlobby/internal/config"
	"github.com/mcoot/flightlobby/internal/console"
	"github.com/mcoot/flightlobby/internal/factory"
	"github.com/mcoot/flightlobby/internal/status"
	redisstorage "github.com/mcoot/flightlobby/internal/storage/redis"
)

type options struct {
	ports       []int
	statusAddr  string
	settings    string
	logLevel    string
	storageType string
	redisURL    string
	noConsole   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "flightlobby",
		Short:        "Multiplayer flight combat lobby server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntSliceVar(&opts.ports, "port", defaults.Ports, "TCP listen ports")
	cmd.Flags().StringVar(&opts.statusAddr, "status-addr", defaults.StatusAddr, "HTTP status listen address (empty to disable)")
	cmd.Flags().StringVar(&opts.settings, "settings", defaults.SettingsPath, "Path to the persisted settings file")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.storageType, "storage", os.Getenv("STORAGE_TYPE"), "Chat transcript storage: memory, redis (env: STORAGE_TYPE)")
	cmd.Flags().StringVar(&opts.redisURL, "redis-url", os.Getenv("REDIS_URL"), "Redis URL for transcript storage (env: REDIS_URL)")
	cmd.Flags().BoolVar(&opts.noConsole, "no-console", false, "Disable the interactive operator console")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	// Set up logging with JSON output
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	serverCfg := config.Default()
	serverCfg.Ports = opts.ports
	serverCfg.StatusAddr = opts.statusAddr
	serverCfg.SettingsPath = opts.settings

	// Build factory config
	cfg := factory.Config{
		Server:      serverCfg,
		Logger:      logger,
		StorageType: opts.storageType,
	}
	if cfg.StorageType == factory.StorageTypeRedis {
		if opts.redisURL == "" {
			logger.Error("redis URL required when storage is redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = opts.redisURL
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Apply persisted operator settings
	settings, err := config.LoadSettings(serverCfg.SettingsPath)
	if err != nil {
		logger.Warn("could not load settings", slog.String("error", err.Error()))
	}
	app.Server.SetDayMessage(settings.DayMessage)
	if settings.HandshakeTimeoutSecs > 0 {
		app.Server.SetHandshakeTimeout(time.Duration(settings.HandshakeTimeoutSecs) * time.Second)
	}

	// Handle shutdown signals by draining the lobby
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Status surface
	var statusServer *status.Server
	if serverCfg.StatusAddr != "" {
		router := status.NewRouter(status.RouterConfig{
			Logger:      logger,
			Provider:    app.Server,
			Transcripts: app.Storage,
		})
		statusCfg := status.DefaultServerConfig()
		statusCfg.Addr = serverCfg.StatusAddr
		statusServer = status.NewServer(router, statusCfg, logger)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server failed", slog.String("error", err.Error()))
			}
		}()
	}

	// Operator console
	if !opts.noConsole {
		go console.New(app.Server, serverCfg.SettingsPath, os.Stdin, os.Stdout, logger).Run()
	}

	// Run the lobby until fully drained
	if err := app.Server.Run(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if statusServer != nil {
		if err := statusServer.Shutdown(context.Background()); err != nil {
			logger.Error("status shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
	return nil
}
