package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/scoopstand/api/internal/config"
	"github.com/scoopstand/api/internal/dataset"
	"github.com/scoopstand/api/internal/enum"
	"github.com/scoopstand/api/internal/router"
	"github.com/scoopstand/api/internal/service"
	"github.com/scoopstand/api/internal/session"
	"github.com/scoopstand/api/internal/ws"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	cfg := config.Load()
	ctx := context.Background()

	configurator, err := service.NewOrderConfigurator(service.DefaultCatalog())
	if err != nil {
		log.Fatalf("Invalid catalog: %v", err)
	}

	ranker, err := service.NewDistributionRanker(service.BluesPalette, service.HighlightColor)
	if err != nil {
		log.Fatalf("Invalid palette: %v", err)
	}

	var source dataset.Source
	switch cfg.DatasetBackend {
	case enum.DatasetBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v", err)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			log.Printf("WARNING: database not reachable yet, dashboard will report it unavailable: %v", err)
		}
		source = dataset.NewPostgresSource(pool)
	case enum.DatasetBackendCSV:
		source = dataset.NewCSVSource(cfg.DatasetPath)
	default:
		log.Fatalf("Unknown DATASET_BACKEND %q", cfg.DatasetBackend)
	}

	var sessions session.Store
	switch cfg.SessionBackend {
	case enum.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	case enum.SessionBackendMemory:
		sessions = session.NewMemoryStore()
	default:
		log.Fatalf("Unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, router.Deps{
		Configurator: configurator,
		Ranker:       ranker,
		Dataset:      source,
		Sessions:     sessions,
		Receipts:     hub,
	})

	log.Printf("Starting server on :%s (dataset=%s, sessions=%s)", cfg.Port, cfg.DatasetBackend, cfg.SessionBackend)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		log.Fatal(err)
	}
}
