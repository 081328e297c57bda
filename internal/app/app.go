package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/link-shortener/internal/cache"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/counter"
	"github.com/vadimbarashkov/link-shortener/internal/jobs"
	"github.com/vadimbarashkov/link-shortener/internal/scheduler"
	"github.com/vadimbarashkov/link-shortener/internal/service"
	"github.com/vadimbarashkov/link-shortener/pkg/postgres"
	"github.com/vadimbarashkov/link-shortener/pkg/redis"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/vadimbarashkov/link-shortener/internal/api/http"
	pgrepo "github.com/vadimbarashkov/link-shortener/internal/database/postgres"
)

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	db, err := postgres.New(
		ctx,
		cfg.Postgres.DSN(),
		postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	version, err := postgres.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

	rdb, err := redis.New(
		ctx,
		cfg.Redis.Addr(),
		redis.WithPassword(cfg.Redis.Password),
		redis.WithDB(cfg.Redis.DB),
		redis.WithDialTimeout(cfg.Redis.DialTimeout),
		redis.WithReadTimeout(cfg.Redis.ReadTimeout),
		redis.WithWriteTimeout(cfg.Redis.WriteTimeout),
		redis.WithPoolSize(cfg.Redis.PoolSize),
		redis.WithMinIdleConns(cfg.Redis.MinIdleConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}
	defer rdb.Close()

	kv := cache.NewRedis(rdb)
	urlRepo := pgrepo.NewURLRepository(db, pgrepo.WithQueryTimeout(cfg.Postgres.QueryTimeout))

	urlCounter := counter.New(kv,
		counter.WithKey(cfg.Counter.Key),
		counter.WithTimeout(cfg.Counter.Timeout),
	)

	resolver := service.NewURLResolver(kv, urlRepo, logger.Logger,
		service.WithURLTTL(cfg.Cache.URLTTL),
		service.WithCacheTimeout(cfg.Cache.OpTimeout),
	)

	urlSvc := service.NewURLService(urlRepo, urlCounter, resolver, cfg.Domain, logger.Logger)
	sweeper := jobs.NewExpirationSweeper(urlRepo, resolver, logger.Logger)

	sched, err := newScheduler(cfg.Jobs, sweeper, jobs.NewCacheStatsMonitor(resolver, cfg.Jobs.LowHitRateThreshold, logger.Logger), logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: failed to configure jobs: %w", op, err)
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, urlSvc, sweeper, cfg.Jobs.LowHitRateThreshold),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	if sched != nil {
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}

	return g.Wait()
}

func newScheduler(cfg config.Jobs, sweeper *jobs.ExpirationSweeper, monitor *jobs.CacheStatsMonitor, logger *slog.Logger) (*scheduler.Scheduler, error) {
	const op = "app.newScheduler"

	if !cfg.Enabled {
		logger.Info("scheduled jobs disabled")
		return nil, nil
	}

	opts := []scheduler.Option{scheduler.WithJobTimeout(cfg.Timeout)}

	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid jobs timezone: %w", op, err)
		}
		opts = append(opts, scheduler.WithLocation(loc))
	}

	s := scheduler.New(logger, opts...)

	for _, job := range []scheduler.Job{
		{Name: "expiration-sweep", Spec: cfg.SweepSchedule, Run: sweeper.Run},
		{Name: "cache-stats-reset", Spec: cfg.StatsResetSchedule, Run: monitor.RunReset},
		{Name: "cache-hit-rate-check", Spec: cfg.HitRateCheckSchedule, Run: monitor.RunCheck},
	} {
		if err := s.Add(job); err != nil {
			return nil, err
		}
	}

	return s, nil
}
