package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortly/internal/config"
	"github.com/vadimbarashkov/shortly/internal/database/sqlite"
	"github.com/vadimbarashkov/shortly/internal/ratelimit"
	"github.com/vadimbarashkov/shortly/internal/reaper"
	"github.com/vadimbarashkov/shortly/internal/service"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/vadimbarashkov/shortly/internal/api/http"
)

// Run wires the application together and blocks until ctx is done or a
// fatal error occurs.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := httplog.NewLogger("shortly", httplog.Options{
		LogLevel: slog.LevelInfo,
		Concise:  cfg.Env != config.EnvProd,
		JSON:     cfg.Env == config.EnvProd,
	})

	db, err := sqlite.New(sqlite.DSN(cfg.SQLite.Path, cfg.SQLite.BusyTimeoutMs), cfg.SQLite.MaxOpenConns)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := sqlite.RunMigrations("file://migrations", cfg.SQLite.Path); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	urlRepo := sqlite.NewURLRepository(db)
	urlSvc := service.NewURLService(urlRepo, cfg.ShortCodeLength)
	limiter := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	urlReaper := reaper.New(urlRepo, cfg.Reaper.Interval, logger.Logger)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, urlSvc, limiter),
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
		<-ctx.Done()
		return db.Close()
	})

	g.Go(func() error {
		return urlReaper.Run(ctx)
	})

	g.Go(func() error {
		return limiter.Run(ctx)
	})

	g.Go(func() error {
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

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
