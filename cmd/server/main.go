package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/glowlink/glowlink/internal/ble"
	"github.com/glowlink/glowlink/internal/ble/bluezadapter"
	"github.com/glowlink/glowlink/internal/config"
	"github.com/glowlink/glowlink/internal/handlers"
	"github.com/glowlink/glowlink/internal/image"
	glowredis "github.com/glowlink/glowlink/internal/redis"
	"github.com/glowlink/glowlink/pkg/models"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load badge capability profiles
	profiles, err := models.LoadProfiles(cfg.Bluetooth.ProfilesPath)
	if err != nil {
		logger.Fatal("Failed to load device profiles",
			zap.String("path", cfg.Bluetooth.ProfilesPath),
			zap.Error(err))
	}

	// Image pipeline: decoder plus a bounded worker pool
	processor := image.NewProcessor(logger)
	pool := image.NewWorkerPool(cfg.Image.Workers, processor, logger)
	pool.Start()

	// Redis is optional; without it the HTTP API is the only ingress
	var (
		redisClient *glowredis.Client
		imageCache  *image.RedisCache
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = glowredis.NewClient(cfg.Redis, logger)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		imageCache = image.NewRedisCache(redisClient.Raw(),
			time.Duration(cfg.Image.CacheTTLSec)*time.Second)
	}

	// Device manager over the BlueZ adapter
	manager := ble.NewManager(cfg.Bluetooth.DevicePrefix,
		func() (ble.Scanner, error) {
			s, err := bluezadapter.NewScanner(cfg.Bluetooth.MaxWriteBytes, logger)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		ble.ManagerOptions{
			ScanTimeout:       time.Duration(cfg.Bluetooth.ScanTimeoutSec) * time.Second,
			ConnectRetries:    cfg.Bluetooth.ConnectRetries,
			RetryDelay:        time.Duration(cfg.Bluetooth.RetryDelayMS) * time.Millisecond,
			KeepaliveInterval: time.Duration(cfg.Bluetooth.KeepaliveSec) * time.Second,
			SettleDelay:       time.Duration(cfg.Bluetooth.SettleDelayMS) * time.Millisecond,
			DisableKeepalive:  cfg.Bluetooth.DisableKeepalive,
			Capabilities:      profiles.Lookup,
		},
		logger)
	manager.SetAutoReconnect(!cfg.Bluetooth.DisableAutoReconn)
	if redisClient != nil {
		manager.SetEventSink(redisClient.PublishDeviceEvent)
	}

	// Discovery pass. Zero devices is not fatal; the server still serves
	// requests and reports empty device lists.
	scanCtx, scanCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Bluetooth.ScanTimeoutSec)*time.Second+5*time.Second)
	connected, err := manager.ScanAndConnectAll(scanCtx)
	scanCancel()
	if err != nil {
		logger.Warn("Initial device scan failed", zap.Error(err))
	}
	logger.Info("Initial device scan complete",
		zap.Int("connected", len(connected)),
		zap.Strings("devices", connected))

	if cfg.Bluetooth.DisableKeepalive {
		logger.Info("Keepalive sweep disabled by configuration")
	}

	// HTTP API
	eventHandler := handlers.NewEventHandler(manager, pool, imageCache, cfg, logger)
	deviceHandler := handlers.NewDeviceHandler(eventHandler, manager, logger)
	if redisClient != nil {
		deviceHandler.SetRedisHealth(redisClient.IsHealthy)
	}

	mux := http.NewServeMux()
	deviceHandler.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handlers.MetricsMiddleware(mux),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Stream consumer
	var consumer *glowredis.Consumer
	if redisClient != nil {
		consumer = glowredis.NewConsumer(redisClient, eventHandler, logger)
		go func() {
			if err := consumer.Start(); err != nil {
				logger.Error("Redis consumer stopped with error", zap.Error(err))
			}
		}()
	}

	logger.Info("Server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("device_prefix", cfg.Bluetooth.DevicePrefix),
		zap.Bool("redis", redisClient != nil))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	if consumer != nil {
		consumer.Stop()
	}
	pool.Stop()

	if err := manager.Close(shutdownCtx); err != nil {
		logger.Error("Device manager shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis shutdown failed", zap.Error(err))
		}
	}

	logger.Info("Server shutdown complete")
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}
