// The rwpaird command implements the RestWell device pairing server
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/restwell/restwell-pairing/internal/rwpaird/config"
	"github.com/restwell/restwell-pairing/internal/rwpaird/database"
	"github.com/restwell/restwell-pairing/internal/rwpaird/device"
	devicepg "github.com/restwell/restwell-pairing/internal/rwpaird/device/postgres"
	apihttp "github.com/restwell/restwell-pairing/internal/rwpaird/http"
	"github.com/restwell/restwell-pairing/internal/rwpaird/pairing"
	pairingpg "github.com/restwell/restwell-pairing/internal/rwpaird/pairing/postgres"
	"github.com/restwell/restwell-pairing/internal/rwpaird/ratelimit"
	ratelimitredis "github.com/restwell/restwell-pairing/internal/rwpaird/ratelimit/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Structured JSON logging for easier parsing downstream
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error

	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			logger.Error("failed to load config file", "error", err)
			os.Exit(1)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			logger.Error("failed to load configuration", "error", err)
			os.Exit(1)
		}
	}

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	// Connect with pooling and retries, then apply migrations
	db, err := database.SetupDatabase(connStr, 5, time.Second)
	if err != nil {
		logger.Error("failed to setup database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	rateLimitSvc := ratelimit.NewService(ratelimitredis.NewStore(redisClient), logger)
	rateLimitSvc.RegisterDefaultLimits()

	deviceRepo := devicepg.NewRepository(db, logger)
	deviceSvc := device.NewService(deviceRepo, logger)

	pairingRepo := pairingpg.NewRepository(db, logger)
	pairingSvc := pairing.NewService(pairingRepo, deviceSvc, logger)

	// The reaper sweeps expired tokens in the background for the life of
	// the process
	reapCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()

	reapLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	reaper := pairing.NewReaper(pairingRepo, cfg.Pairing.ReapInterval, reapLogger)
	go reaper.Run(reapCtx)

	handler := apihttp.NewHandler(pairingSvc, deviceSvc, rateLimitSvc, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting server",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
		)

		var err error
		if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
			err = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	<-shutdown
	logger.Info("shutting down server...")

	stopReaper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
