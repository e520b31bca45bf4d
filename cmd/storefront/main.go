package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/text/currency"

	"github.com/LoganXav/Nexmart/internal/cache"
	"github.com/LoganXav/Nexmart/internal/checkout"
	"github.com/LoganXav/Nexmart/internal/config"
	"github.com/LoganXav/Nexmart/internal/events"
	storegrpc "github.com/LoganXav/Nexmart/internal/grpc"
	h "github.com/LoganXav/Nexmart/internal/http"
	"github.com/LoganXav/Nexmart/internal/logger"
	"github.com/LoganXav/Nexmart/internal/payment"
	"github.com/LoganXav/Nexmart/internal/poller"
	"github.com/LoganXav/Nexmart/internal/pricing"
	"github.com/LoganXav/Nexmart/internal/repository"
	"github.com/LoganXav/Nexmart/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init("storefront", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cred := &repository.Credentials{
		Driver:            cfg.DB.Driver,
		Host:              cfg.DB.Host,
		Port:              cfg.DB.Port,
		User:              cfg.DB.User,
		Password:          cfg.DB.Password,
		DBName:            cfg.DB.Name,
		Path:              cfg.DB.Path,
		MigrationsDirPath: cfg.DB.MigrationsPath,
	}
	repo, err := repository.NewRepository(cred)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()
	if err := repo.RunMigrations(cred); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("database ready", slog.String("driver", cfg.DB.Driver))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the cart service falls back to the database on cache errors
		log.Warn("redis ping failed", slog.Any("error", err))
	}

	unit, err := currency.ParseISO(cfg.PaymentCurrency)
	if err != nil {
		return fmt.Errorf("payment currency: %w", err)
	}
	calculator := pricing.NewCalculator(unit)

	var (
		processor payment.Processor
		confirmer h.Confirmer
	)
	if cfg.StripeSecretKey != "" {
		processor = payment.NewStripeProcessor(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, using simulated payment processor")
		simulated := payment.NewSimulatedProcessor(payment.RandomOutcome{})
		processor = simulated
		confirmer = simulated
	}
	processor = payment.NewBreakerProcessor(processor, payment.DefaultBreakerSettings())

	cartService := service.NewCartService(repo, repo, cache.NewRedisCache(redisClient))

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		writer := events.NewKafkaWriter(cfg.KafkaBrokers)
		kafkaPublisher := events.NewKafkaPublisher(writer)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher

		p := poller.NewPoller(cartService, poller.NewKafkaReader(cfg.KafkaBrokers))
		defer p.Close()
		go p.Run(ctx)
		log.Info("payment events via kafka", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		publisher = events.LocalPublisher{Handle: poller.NewPoller(cartService, nil).Handle}
	}

	checkoutService := checkout.NewService(repo, repo, processor, calculator, publisher, cfg.PaymentTimeout)

	router := h.NewRouter(h.RouterConfig{
		Carts:              cartService,
		Checkout:           checkoutService,
		Catalog:            repo,
		Confirmer:          confirmer,
		Logger:             log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
		SecureCookie:       cfg.CookieSecure,
	})

	srv := h.NewServer(":"+cfg.HTTPPort, otelhttp.NewHandler(router, "storefront"), cfg.RequestTimeout)

	healthServer := storegrpc.NewHealthServer(map[string]storegrpc.Pinger{
		"database": repo,
		"redis": storegrpc.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	}, 15*time.Second)
	go healthServer.Watch(ctx)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("grpc health server starting", slog.String("port", cfg.GRPCPort))
		if err := healthServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		log.Info("storefront starting", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server error", slog.Any("error", err))
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	healthServer.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
