package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"groombook-api/core/cache"
	"groombook-api/core/config"
	"groombook-api/core/constants"
	"groombook-api/core/database"
	"groombook-api/core/logger"
	"groombook-api/core/middleware"
	"groombook-api/core/queue"
	"groombook-api/core/secrets"
	"groombook-api/modules/appointment"
	"groombook-api/modules/auth"
	"groombook-api/modules/calendarsync"
	"groombook-api/modules/notification"
)

const workerConcurrency = 10

// Run boots the whole service: config, storage, background workers, HTTP.
// Blocks until SIGINT/SIGTERM, then shuts down gracefully.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(slog.LevelInfo)

	db, err := database.InitDB(database.DatabaseConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	redisCfg := cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	c, err := cache.NewRedisCache(redisCfg)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	encryptor, err := secrets.NewEncryptor(cfg.Sync.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("init token encryption: %w", err)
	}

	queueCfg := queue.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queueClient := queue.NewClient(queueCfg)
	defer queueClient.Close()

	asynqSrv, mux := queue.NewServer(queueCfg, workerConcurrency)
	scheduler, err := queue.NewScheduler(queueCfg)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	api := e.Group("/api/v1")

	authSvc := auth.NewService(&db, c)
	mw := middleware.NewMiddleware(authSvc)
	auth.RegisterRoutes(api, authSvc, mw)

	notifSvc := notification.Init(api, &db, mw)
	apptSvc := appointment.Init(api, &db, queueClient, mw)

	calendarsync.Init(api, &db, c, mux, mw, encryptor, calendarsync.Deps{
		Appointments: apptSvc,
		Admins:       authSvc,
		Notifier:     notifSvc,
	})

	go func() {
		if err := asynqSrv.Run(mux); err != nil {
			logger.Error("Server:Worker", "error", err)
		}
	}()
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("Server:Scheduler", "error", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:HTTP", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server:Shutdown:Begin")
	ctx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownWait)
	defer cancel()

	scheduler.Shutdown()
	asynqSrv.Shutdown()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	logger.Info("Server:Shutdown:Done")
	return nil
}
