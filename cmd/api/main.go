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

	"github.com/ariefcatur/go-storefront-payments/internal/config"
	"github.com/ariefcatur/go-storefront-payments/internal/httpx"
	"github.com/ariefcatur/go-storefront-payments/internal/inventory"
	kafkax "github.com/ariefcatur/go-storefront-payments/internal/kafka"
	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/payment"
	"github.com/ariefcatur/go-storefront-payments/internal/postgres"
	"github.com/ariefcatur/go-storefront-payments/internal/redisx"
	"github.com/ariefcatur/go-storefront-payments/internal/webhook"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var (
		store orders.Store
		tx    orders.TxManager
	)
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		mem := orders.NewMemoryStore()
		store, tx = mem, mem
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresPool)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db, log); err != nil {
				log.Error("migrate", "err", err)
				os.Exit(1)
			}
		}
		store, tx = &orders.Repo{DB: db}, &postgres.TxManager{DB: db}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := &redisx.StatusCache{RDB: rdb}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.With("component", "producer"))
	prod.Start(ctx)

	allow := webhook.NewAllowList(cfg.WebhookAllowedIPs, log.With("component", "allowlist"))
	if allow.Len() == 0 {
		log.Warn("webhook allow-list is empty; every callback will be rejected")
	}
	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY not set; admin routes are locked")
	}

	api := &httpx.API{
		Payments: &httpx.PaymentsHandler{
			Reconciler: &payment.Reconciler{
				Store:   store,
				Tx:      tx,
				Events:  prod,
				Cache:   cache,
				Service: cfg.ServiceName,
				Log:     log.With("component", "reconciler"),
			},
			AllowList: allow,
			Secret:    cfg.SePaySecretKey,
			Sandbox:   cfg.Sandbox(),
			Log:       log.With("component", "webhook"),
		},
		Orders: &httpx.OrdersHandler{
			Orders:  &orders.Service{Store: store, Tx: tx, Log: log.With("component", "orders")},
			Cache:   cache,
			Events:  prod,
			Service: cfg.ServiceName,
			Log:     log.With("component", "orders-http"),
		},
		Stock: &httpx.StockHandler{
			Checker: &inventory.Checker{Variants: store, Log: log.With("component", "stock")},
			Log:     log.With("component", "stock-http"),
		},
		AdminAPIKey: cfg.AdminAPIKey,
		Log:         log.With("component", "http"),
	}

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Handler(), ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
}
