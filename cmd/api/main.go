package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/auth"
	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/httpx"
	kafkax "github.com/ariefcatur/storefront-orders/internal/kafka"
	"github.com/ariefcatur/storefront-orders/internal/logging"
	"github.com/ariefcatur/storefront-orders/internal/metrics"
	"github.com/ariefcatur/storefront-orders/internal/notifications"
	"github.com/ariefcatur/storefront-orders/internal/orders"
	"github.com/ariefcatur/storefront-orders/internal/postgres"
	"github.com/ariefcatur/storefront-orders/internal/redisx"
	"github.com/ariefcatur/storefront-orders/internal/settings"
	"github.com/ariefcatur/storefront-orders/internal/users"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Production(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalw("db connect", "error", err)
	}
	defer db.Close()
	if cfg.RunMigrations {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatalw("migrate", "error", err)
		}
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	cache := &redisx.Cache{RDB: rdb}

	// Kafka producers, one per topic
	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger)
	placed.Start(ctx)
	changed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger)
	changed.Start(ctx)

	// Services
	userRepo := &users.Repo{DB: db}
	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	orderSvc := orders.NewService(&orders.Repo{DB: db}, &orders.KafkaEvents{
		Placed:   placed,
		Changed:  changed,
		Producer: cfg.ServiceName,
	}, logger)
	inbox := notifications.NewInbox(&notifications.Repo{DB: db})
	maintenance := settings.NewMaintenance(&settings.Repo{DB: db}, cache, cfg.MaintenanceCacheTTL, logger)

	// Router & handlers
	router := httpx.NewRouter(logger, metrics.NewServerMetrics(prometheus.DefaultRegisterer, "api"))
	guard := &httpx.Guard{Tokens: tokens, Users: userRepo, Maintenance: maintenance, Logger: logger}
	(&httpx.AuthHandler{Users: userRepo, Tokens: tokens, SecureCookie: cfg.Production(), Logger: logger}).Register(router, guard)
	(&httpx.OrdersHandler{Orders: orderSvc, Idem: cache, Logger: logger}).Register(router, guard)
	(&httpx.SellerHandler{Orders: orderSvc, Shops: userRepo, Logger: logger}).Register(router, guard)
	(&httpx.NotificationsHandler{Inbox: inbox, Logger: logger}).Register(router, guard)
	(&httpx.SettingsHandler{Maintenance: maintenance, Logger: logger}).Register(router, guard)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Infow("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("listen", "error", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	placed.Close() // close inbox -> flush & close writer
	changed.Close()
	placed.WaitClosed()
	changed.WaitClosed()
	cancel()
}
