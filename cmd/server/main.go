// Command server runs the queryd HTTP API and console.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/errgroup"

	"queryd/internal/api"
	"queryd/internal/app"
	"queryd/internal/config"
	internaldb "queryd/internal/db"
	"queryd/internal/engine"
	"queryd/internal/middleware"
	"queryd/internal/ui"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metastore: serialized write pool plus a small read pool, both WAL.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 4)
	if err != nil {
		return err
	}
	defer writeDB.Close()
	defer readDB.Close()

	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	eng, err := engine.Open(engine.Options{
		Path:             cfg.DuckDBPath,
		MaxQueryDuration: cfg.Query.MaxDuration,
	}, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	application, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		Engine:  eng,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer application.Sessions.CloseAll()

	go application.Sessions.ReapIdle(ctx)

	if err := application.Services.Retention.Start(); err != nil {
		return err
	}
	defer application.Services.Retention.Stop()

	handler := api.NewHandler(api.Options{
		Sessions:        application.Sessions,
		Query:           application.Services.Query,
		Profile:         application.Services.Profile,
		Export:          application.Services.Export,
		Engine:          eng,
		PingTimeout:     cfg.Query.PingTimeout,
		JWTSecret:       cfg.Auth.JWTSecret,
		TokenTTL:        cfg.Auth.TokenTTL,
		AllowTokenIssue: !cfg.IsProduction(),
		Logger:          logger,
	})

	validator, err := middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	var keys middleware.APIKeyLookup
	if cfg.Auth.APIKeyEnabled {
		keys = application.APIKeyRepo
	}
	authMW := middleware.Auth(validator, keys, cfg.Auth.APIKeyHeader)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", cfg.Auth.APIKeyHeader},
		AllowCredentials: true,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	handler.PublicRoutes(r)
	r.Route("/v1", func(r chi.Router) {
		r.Use(authMW)
		handler.Routes(r)
	})

	uiHandler := &ui.Handler{
		Sessions:    application.Sessions,
		Query:       application.Services.Query,
		Profile:     application.Services.Profile,
		Export:      application.Services.Export,
		PingTimeout: cfg.Query.PingTimeout,
		Production:  cfg.IsProduction(),
	}
	r.Route("/ui", func(r chi.Router) {
		ui.MountRoutes(r, uiHandler, authMW)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui", http.StatusSeeOther)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		var err error
		if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
