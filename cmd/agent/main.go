package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/api"
	"github.com/iot-dashboard/agent/internal/config"
	"github.com/iot-dashboard/agent/internal/device"
	"github.com/iot-dashboard/agent/internal/history"
	"github.com/iot-dashboard/agent/internal/models"
	"github.com/iot-dashboard/agent/internal/store"
	"github.com/iot-dashboard/agent/internal/syncer"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := os.Getenv("AGENT_CONFIG")
	if configPath == "" {
		configPath = "agent.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Persisted key-value store
	var kv store.KV
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		kv = store.NewRedisKV(client, cfg.Storage.Redis.KeyPrefix)
	default:
		fileKV, err := store.NewFileKV(cfg.Storage.DataDirectory)
		if err != nil {
			logger.Fatal("failed to initialize storage", zap.Error(err))
		}
		kv = fileKV
	}

	upstreamTimeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second

	// Telemetry sync engine
	engine := syncer.NewEngine(syncer.Options{
		TelemetryURL: cfg.Upstream.TelemetryURL,
		PollInterval: cfg.Telemetry.PollInterval(),
		MaxHistory:   cfg.Telemetry.MaxHistory,
		MaxAge:       cfg.Telemetry.MaxAge(),
		HTTPTimeout:  upstreamTimeout,
	}, kv, logger.Named("syncer"))

	// Device state registry
	registry := device.NewRegistry(device.Options{
		ControlURL:  cfg.Upstream.ControlURL,
		KnownIDs:    cfg.DeviceIDs(),
		HTTPTimeout: upstreamTimeout,
	}, kv, logger.Named("device"))

	ctx := context.Background()
	engine.Init(ctx)
	registry.Init(ctx)

	// Local sensor/action log
	var histLog *history.Log
	var histStore api.HistoryStore
	if cfg.History.Enabled {
		histLog, err = history.Open(cfg.HistoryPath(),
			cfg.History.DefaultPageSize, cfg.History.MaxPageSize,
			logger.Named("history"))
		if err != nil {
			logger.Fatal("failed to open history log", zap.Error(err))
		}
		defer histLog.Close()
		histStore = histLog

		engine.Subscribe(func(n models.Notification) {
			histLog.RecordSample(n.NewSample)
		})
		registry.SetRecorder(histLog)
	}

	engine.Start()
	defer engine.Stop()

	h := api.NewHandler(engine, registry, histStore, Version, logger.Named("api"))
	stream := api.NewStreamHandler(engine, logger.Named("stream"))

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" || strings.Contains(path, "/ws/")
		},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	api.RegisterRoutes(e, h, stream)

	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	logger.Info("iot dashboard agent starting",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("listen", cfg.GetServerAddr()),
		zap.String("telemetry_url", cfg.Upstream.TelemetryURL),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("history_enabled", cfg.History.Enabled))

	go func() {
		if err := e.StartServer(s); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
}
