package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cafeya/cafeya-orders/internal/config"
	"github.com/cafeya/cafeya-orders/internal/httpx"
	kafkax "github.com/cafeya/cafeya-orders/internal/kafka"
	"github.com/cafeya/cafeya-orders/internal/market"
	"github.com/cafeya/cafeya-orders/internal/memstore"
	"github.com/cafeya/cafeya-orders/internal/postgres"
	"github.com/cafeya/cafeya-orders/internal/redisx"
	"github.com/cafeya/cafeya-orders/internal/weather"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().Str("service", cfg.ServiceName).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var store market.Store
	switch cfg.StorageDriver {
	case "memory":
		store = memstore.New()
		log.Info().Msg("using in-memory storage")
	default:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect")
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("db schema")
		}
		store = postgres.NewStore(pool)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	var placedProd, stateProd *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		placedProd = kafkax.NewProducer(cfg.KafkaBrokers, market.TopicOrderPlaced, 1024)
		placedProd.Start(ctx)
		stateProd = kafkax.NewProducer(cfg.KafkaBrokers, market.TopicOrderStateChanged, 1024)
		stateProd.Start(ctx)
	}

	// Workflow engine & handler
	router := httpx.NewRouter()
	h := &httpx.Handler{
		Market:         market.NewService(store),
		Weather:        weather.NewClient(cfg.WeatherBaseURL),
		Redis:          rdb,
		PlacedProducer: placedProd,
		StateProducer:  stateProd,
		Service:        cfg.ServiceName,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if placedProd != nil {
		placedProd.Close()
		stateProd.Close()
	}
	cancel()
	if placedProd != nil {
		placedProd.WaitClosed()
		stateProd.WaitClosed()
	}
}
