package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/olyamironova/matching-engine/internal/adapter/cache"
	"github.com/olyamironova/matching-engine/internal/adapter/in_memory"
	"github.com/olyamironova/matching-engine/internal/adapter/pg"
	httpapi "github.com/olyamironova/matching-engine/internal/api/http"
	"github.com/olyamironova/matching-engine/internal/api/ws"
	"github.com/olyamironova/matching-engine/internal/config"
	"github.com/olyamironova/matching-engine/internal/core"
	"github.com/olyamironova/matching-engine/internal/port"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.LoadFromEnv("")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var journal port.Journal = in_memory.NewJournal()
	if cfg.PostgresDSN != "" {
		pgJournal, err := pg.NewJournal(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("connect to postgres", zap.Error(err))
		}
		defer pgJournal.Close()
		journal = pgJournal
	}

	var bookCache port.Cache = in_memory.NewCache()
	if cfg.RedisAddr != "" {
		bookCache = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	}

	engine := core.NewEngine(log.Named("engine"), journal, bookCache)
	go engine.Run(ctx)

	hub := ws.NewHub(engine, log.Named("ws"))
	server := httpapi.NewHTTPServer(engine, hub, bookCache, log.Named("http"))

	log.Info("starting http server", zap.String("addr", cfg.ListenAddr))
	if err := server.Run(cfg.ListenAddr); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}
