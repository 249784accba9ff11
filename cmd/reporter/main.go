package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cafeya/cafeya-orders/internal/config"
	kafkax "github.com/cafeya/cafeya-orders/internal/kafka"
	"github.com/cafeya/cafeya-orders/internal/market"
	"github.com/cafeya/cafeya-orders/internal/redisx"
	"github.com/cafeya/cafeya-orders/internal/reporting"
)

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log.Logger = zerolog.New(os.Stdout).With().
		Timestamp().Str("service", cfg.ServiceName+"-reporter").Logger()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required for the reporter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	tally := &reporting.Tally{
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-reporter",
	}

	group := getenv("REPORTER_GROUP", "order-reporter")
	workers := mustAtoi(os.Getenv("REPORTER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, market.TopicOrderPlaced, workers)

	go func() {
		log.Info().Str("group", group).Str("topic", market.TopicOrderPlaced).
			Int("workers", workers).Msg("reporter consumer started")
		if err := cons.Start(ctx, tally.HandleOrderPlaced); err != nil {
			log.Error().Err(err).Msg("consumer exit")
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down reporter...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
