package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Maghvendra09/appointment-booking/internal/notifier"
	"github.com/Maghvendra09/appointment-booking/pkg/config"
	"github.com/Maghvendra09/appointment-booking/pkg/kafka"
	kafkaconfig "github.com/Maghvendra09/appointment-booking/pkg/kafka/config"
	kafkamiddleware "github.com/Maghvendra09/appointment-booking/pkg/kafka/middleware"
)

const (
	ServiceName = "notifier"
	dedupeTTL   = 24 * time.Hour
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	var deduper notifier.Deduper
	if cfg.Client.Redis != nil {
		deduper = notifier.NewRedisDeduper(cfg.Client.Redis, dedupeTTL)
	}
	handler := notifier.NewHandler(notifier.NewLogSender(cfg.Log), deduper, cfg.Log)

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingEventsTopic, cfg.NotifierGroupID, handler.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafkamiddleware.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notifier", "topic", cfg.BookingEventsTopic, "group_id", cfg.NotifierGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}
