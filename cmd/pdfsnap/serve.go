package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"time"

	"github.com/wudi/pdfsnap/config"
	"github.com/wudi/pdfsnap/ledger"
	"github.com/wudi/pdfsnap/observability"
	"github.com/wudi/pdfsnap/server"
	"github.com/wudi/pdfsnap/store"
)

func serve(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML config file; environment variables override it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		return err
	}
	rt, err := newApp(cfg, stderr, false)
	if err != nil {
		return err
	}

	var out store.Store
	if cfg.RedisURL != "" {
		redisStore, closeRedis, err := store.NewRedisStore(store.RedisConfig{URL: cfg.RedisURL, TTL: cfg.FileTTL})
		if err != nil {
			return err
		}
		defer closeRedis()
		out = redisStore
	} else {
		if out, err = store.NewFileStore(cfg.OutputDir); err != nil {
			return err
		}
	}

	var book ledger.Ledger = ledger.NewMemoryLedger()
	if cfg.DatabaseURL != "" {
		pg, pool, err := ledger.NewPostgresLedger(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		book = pg
	} else {
		rt.logger.Warn("no DATABASE_URL; verification codes are kept in memory only")
	}

	srv, err := server.New(server.Config{
		Engine:    rt.engine,
		Templates: rt.fetcher,
		Workers:   cfg.Workers,
		Store:     out,
		Ledger:    book,
		JWTSecret: []byte(cfg.JWTSecret),
		Logger:    rt.logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	rt.logger.Info("starting",
		observability.Int("workers", cfg.Workers),
		observability.Bool("auth", cfg.JWTSecret != ""),
		observability.Bool("redis", cfg.RedisURL != ""))
	return server.Run(ctx, &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}, rt.logger, 30*time.Second)
}
