package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcfg "github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/domain"
	"github.com/park285/cheese-arena/internal/httpapi"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
	"github.com/park285/cheese-arena/internal/session"
	"github.com/park285/cheese-arena/internal/store"
	"github.com/park285/cheese-arena/internal/transport"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_load_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := transport.NewHub()
	deps := session.Deps{Notifier: hub, Messages: msgs}
	api := httpapi.Deps{
		LeaderboardLimit: cfg.LeaderboardLimit,
		HistoryLimit:     cfg.HistoryLimit,
	}

	if cfg.DatabaseURL != "" {
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres_open_error", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Fatal("postgres_schema_error", zap.Error(err))
		}
		deps.Store, api.Results = pg, pg
		logger.Info("result_store", zap.String("kind", "postgres"))
	} else {
		mem := store.NewMemory()
		deps.Store, api.Results = mem, mem
		logger.Warn("result_store", zap.String("kind", "memory"))
	}

	if cfg.RedisURL != "" {
		rdb, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis_open_error", zap.Error(err))
		}
		defer func() { _ = rdb.Close() }()
		rs := store.NewRedis(rdb, cfg.ResultStream)
		deps.Publisher, deps.Rooms = rs, rs
		api.Leaderboard, api.Rooms, api.Feed = rs, rs, rs
		logger.Info("room_mirror", zap.String("stream", cfg.ResultStream))
	}

	engine := session.NewEngine(session.Config{
		DisconnectGrace:  cfg.DisconnectGrace,
		ClockTick:        cfg.ClockTick,
		FinishedRoomTTL:  cfg.FinishedRoomTTL,
		AbandonedRoomTTL: cfg.AbandonedTTL,
		DefaultTime:      domain.TimeConfig{Minutes: cfg.DefaultMinutes, Increment: cfg.DefaultIncrement},
		EloK:             cfg.EloK,
		DefaultRating:    cfg.DefaultRating,
	}, deps)

	api.Engine, api.Sockets = engine, hub
	api.WS = transport.Handler(engine, hub, transport.Options{OriginPatterns: cfg.AllowedOrigins})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpapi.SetupRoutes(api),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error {
		logger.Info("http_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("arena_exit", zap.Error(err))
		return
	}
	logger.Info("arena_stopped")
}
