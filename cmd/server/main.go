package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // .env loading
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/backend-scaffold/internal/config"     // Internal config loader
	"github.com/iliyamo/backend-scaffold/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/backend-scaffold/internal/handler"    // HTTP handlers
	"github.com/iliyamo/backend-scaffold/internal/middleware" // auth and rate limiting
	"github.com/iliyamo/backend-scaffold/internal/queue"      // audit consumer
	"github.com/iliyamo/backend-scaffold/internal/repository" // identity stores
	"github.com/iliyamo/backend-scaffold/internal/router"     // Internal router setup
	"github.com/iliyamo/backend-scaffold/internal/service"    // audit publisher
	"github.com/iliyamo/backend-scaffold/internal/storage"    // uploads
	"github.com/iliyamo/backend-scaffold/internal/utils"      // token service
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment may already be set

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, pinger, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("open identity store", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	tokens := utils.NewTokenService(utils.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.AMQPURL != "" {
		pub := service.NewAMQPPublisher(cfg.AMQPURL, log)
		defer pub.Close()
		events = pub
		consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, LogPath: filepath.Join("logs", "audit.log"), Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", "err", err)
			}
		}()
	} else {
		log.Info("RABBITMQ_URL not set; audit events disabled")
	}

	var uploader storage.MediaUploader
	if sc := config.LoadStorageConfig(); sc.Enabled {
		up, err := storage.NewS3Uploader(ctx, sc)
		if err != nil {
			log.Error("media storage", "err", err)
			os.Exit(1)
		}
		uploader = up
	} else {
		log.Info("S3 not configured; media uploads disabled")
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	router.Use(e, cfg, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log), log)
	e.Static("/", cfg.StaticDir)

	router.RegisterRoutes(e, pinger)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, events, log), tokens, users)
	router.RegisterMedia(e, handler.NewMediaHandler(storage.NewLocalStore(cfg.UploadDir, cfg.MediaMaxSize), uploader, events), tokens, users)

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
	log.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// openStore connects the identity store selected by DB_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (repository.UserStore, handler.Pinger, func(), error) {
	switch cfg.DBDriver {
	case "mongo":
		repo, err := repository.NewMongoUserRepo(ctx, cfg.MongoURI, cfg.DBName, cfg.BcryptCost)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = repo.Close(cctx)
		}
		return repo, handler.PingFunc(repo.Ping), closeFn, nil
	default:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		return repository.NewUserRepo(db, cfg.BcryptCost), db, func() { _ = db.Close() }, nil
	}
}
