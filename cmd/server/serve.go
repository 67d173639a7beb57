package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/flexidesk/service-booking/internal/application"
	"github.com/flexidesk/service-booking/internal/credential"
	bookingDomain "github.com/flexidesk/service-booking/internal/domain/booking"
	"github.com/flexidesk/service-booking/internal/events/consumer"
	"github.com/flexidesk/service-booking/internal/handler"
	"github.com/flexidesk/service-booking/internal/notification"
	"github.com/flexidesk/service-booking/internal/payment"
	"github.com/flexidesk/service-booking/internal/platform/auth"
	"github.com/flexidesk/service-booking/internal/platform/database"
	"github.com/flexidesk/service-booking/internal/platform/health"
	"github.com/flexidesk/service-booking/internal/platform/kafka"
	"github.com/flexidesk/service-booking/internal/platform/middleware"
	"github.com/flexidesk/service-booking/internal/platform/redis"
	"github.com/flexidesk/service-booking/internal/repository"
	redisrepo "github.com/flexidesk/service-booking/internal/repository/redis"
	"github.com/flexidesk/service-booking/migrations"
)

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking", zap.String("port", cfg.Port))

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return err
	}

	// The SQL migrations own the schema in every environment; the overlap
	// exclusion constraint only exists there.
	if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), migrations.FS, log); err != nil {
		return err
	}

	// Redis is optional: without it the service falls back to an in-process
	// listing lock and runs with no report cache or idempotency replay.
	var (
		rdb    *goredis.Client
		locker application.ListingLocker
		cache  *redisrepo.Cache
		idem   *redisrepo.IdempotencyStore
	)
	if cfg.RedisConfig.Addr != "" {
		rdb, err = redis.New(ctx, cfg.RedisConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = rdb.Close() }()
		locker = redisrepo.NewLocker(rdb, cfg.LockTTL)
		cache = redisrepo.NewCache(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)
	} else {
		log.Warn("redis not configured, using in-process locks")
		locker = application.NewLocalLocker()
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTConfig.Secret, cfg.JWTConfig.AccessTTL)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	listingRepo := repository.NewGormListingRepository(db)

	// Initialize application services
	bookingService := application.NewBookingService(application.BookingDeps{
		Bookings:     bookingRepo,
		Listings:     listingRepo,
		Availability: application.NewAvailabilityChecker(bookingRepo, loc),
		Pricing:      bookingDomain.NewStandardPricingStrategy(),
		Gateway:      payment.NewPayMongoClient(cfg.PaymentConfig.SecretKey, cfg.PaymentConfig.BaseURL, cfg.PaymentConfig.Timeout),
		Signer:       credential.NewHMACSigner(cfg.EntryTokenSecret),
		Notifier:     notification.NewKafkaNotifier(kafkaProducer, serviceName),
		Publisher:    kafkaProducer,
		Locker:       locker,
		Logger:       log,
	}, application.BookingConfig{
		AppURL:         cfg.AppURL,
		Location:       loc,
		PaymentTimeout: cfg.PaymentConfig.Timeout,
	})
	analyticsService := application.NewAnalyticsService(bookingRepo, listingRepo, cache, cfg.AnalyticsCacheTTL, loc, log)

	// Initialize event consumers
	paymentConsumer := consumer.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-payments",
		bookingService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	listingConsumer := consumer.NewListingEventConsumer(
		cfg.KafkaConfig.Brokers,
		cfg.KafkaConfig.GroupPrefix+"booking-listings",
		listingRepo,
		log,
	)
	defer func() { _ = listingConsumer.Close() }()

	// Setup Gin router
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	health.NewHandler(db, rdb, serviceName).RegisterRoutes(router)

	// Register routes
	api := &router.RouterGroup
	handler.NewBookingHandler(bookingService, idem, log).RegisterRoutes(api, jwtManager)
	handler.NewOwnerHandler(bookingService, analyticsService).RegisterRoutes(api, jwtManager)
	handler.NewAdminBookingHandler(bookingService, analyticsService).RegisterRoutes(api, jwtManager)
	if cfg.PaymentConfig.WebhookSecret != "" {
		handler.NewPaymentWebhookHandler(bookingService, cfg.PaymentConfig.WebhookSecret, log).RegisterRoutes(api)
	} else {
		log.Warn("payment webhook disabled, no webhook secret configured")
	}

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("payment consumer: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting listing event consumer")
		if err := listingConsumer.Start(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("listing consumer: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down service-booking...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("service-booking stopped")
	return err
}
