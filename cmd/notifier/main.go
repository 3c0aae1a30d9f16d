package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront-payments/internal/config"
	kafkax "github.com/ariefcatur/go-storefront-payments/internal/kafka"
	"github.com/ariefcatur/go-storefront-payments/internal/notify"
	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Redis:       rdb,
		Cache:       &redisx.StatusCache{RDB: rdb},
		ServiceName: cfg.ServiceName + "-notifier",
		Log:         log.With("component", "notifier"),
	}

	topics := []string{orders.TopicPaymentFailed, orders.TopicPaymentAuthorized}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topics, cfg.NotifierWorkers, log.With("component", "consumer"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("notifier consumer started", "group", cfg.NotifierGroup, "topics", topics, "workers", cfg.NotifierWorkers)
		if err := cons.Start(ctx, svc.HandlePaymentEvent); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		log.Info("shutting down consumer...")
	case <-ctx.Done():
	}
	cancel()
	<-done
}
