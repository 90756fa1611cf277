package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/database"
	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/router"
	"github.com/iliyamo/table-reservation/internal/service"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the overdue sweeper and the optional audit consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// openDB loads the core config and connects to MySQL.
func openDB(ctx context.Context) (config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return cfg, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

func newEvents(cfg config.EventsConfig) (*service.Events, queue.Publisher, error) {
	pub, err := queue.NewPublisher(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &service.Events{
		Publisher:        pub,
		ReservationTopic: cfg.ReservationTopic,
		ReviewTopic:      cfg.ReviewTopic,
		Timeout:          cfg.PublishTimeout,
	}, pub, nil
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	cacheCfg := config.LoadCacheConfig()
	eventsCfg := config.LoadEventsConfig()
	sweepCfg := config.LoadSweepConfig()

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		slog.Warn("redis unavailable; rate limiting, response cache and rating cache disabled")
	} else {
		defer rdb.Close()
	}

	events, pub, err := newEvents(eventsCfg)
	if err != nil {
		return err
	}
	defer pub.Close()

	clk := clock.System{}
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	stores := repository.NewStoreRepo(db)
	reservations := repository.NewReservationRepo(db)
	reviews := repository.NewReviewRepo(db)
	ratings := cache.NewRatingCache(rdb, cacheCfg.RatingTTL)

	userSvc := service.NewUserService(users, cfg.BcryptCost)
	storeSvc := service.NewStoreService(stores, ratings, clk)
	reservationSvc := service.NewReservationService(reservations, stores, clk, events)
	reviewSvc := service.NewReviewService(reviews, reservations, stores, ratings, clk, events)

	e := newEcho(cfg)
	router.Register(e, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, userSvc, tokens, clk),
		Users:        handler.NewUserHandler(userSvc),
		Stores:       handler.NewStoreHandler(storeSvc),
		Reservations: handler.NewReservationHandler(reservationSvc),
		Reviews:      handler.NewReviewHandler(reviewSvc, userSvc),
	}, guards(cfg, cacheCfg, rdb), db)

	var wg sync.WaitGroup
	if sweepCfg.Enabled {
		sweeper := service.NewSweeper(reservations, clk, sweepCfg.Interval, sweepCfg.Grace, events)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx)
		}()
	}
	if eventsCfg.AuditEnabled && eventsCfg.Broker == config.BrokerAMQP {
		consumer := queue.NewAuditConsumer(eventsCfg.AMQPURL, eventsCfg.ReservationTopic, eventsCfg.AuditLogPath)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("audit consumer stopped", "err", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

func newEcho(cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLogger(slog.Default()))
	e.Use(middleware.Metrics())
	if cfg.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: cfg.RequestTimeout}))
	}
	return e
}

func guards(cfg config.Config, cacheCfg config.CacheConfig, rdb *redis.Client) router.Guards {
	return router.Guards{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),

		ReservationLimit: middleware.NewTokenBucket(config.LoadReservationRateLimitConfig(), rdb),
	}
}
