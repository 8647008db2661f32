package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academy-commerce/config"
	"academy-commerce/internal/adapter/gateway"
	httpHandler "academy-commerce/internal/adapter/http/handler"
	"academy-commerce/internal/adapter/notify"
	pgStorage "academy-commerce/internal/adapter/storage/postgres"
	redisStorage "academy-commerce/internal/adapter/storage/redis"
	"academy-commerce/internal/core/ports"
	"academy-commerce/internal/service"
	"academy-commerce/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("ACM_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("academy-commerce", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting academy commerce")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	courseTxRepo := pgStorage.NewCourseTransactionRepo(pool)
	premiumTxRepo := pgStorage.NewPremiumTransactionRepo(pool)
	txRepos := []ports.TransactionRepository{courseTxRepo, premiumTxRepo}
	paymentLogRepo := pgStorage.NewPaymentLogRepo(pool)
	voucherRepo := pgStorage.NewVoucherRepo(pool)
	courseRepo := pgStorage.NewCourseRepo(pool)
	enrollmentRepo := pgStorage.NewEnrollmentRepo(pool)
	premiumProductRepo := pgStorage.NewPremiumProductRepo(pool)
	premiumPurchaseRepo := pgStorage.NewPremiumPurchaseRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	replayCache := redisStorage.NewReplayCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	runLock := redisStorage.NewRunLock(rdb)

	healthCheckers := []ports.HealthChecker{
		pgStorage.NewHealthCheck(pool),
		redisStorage.NewHealthCheck(rdb),
	}

	// Mail notifications go to Kafka when brokers are configured
	var notifier ports.Notifier
	if cfg.Kafka.Enabled() {
		kafkaClient, err := notify.NewKafkaClient(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Kafka")
		}
		producer, err := sarama.NewSyncProducerFromClient(kafkaClient)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Kafka producer")
		}
		kafkaNotifier := notify.NewKafkaNotifier(producer, cfg.Kafka.MailTopic, log)
		defer kafkaNotifier.Close() //nolint:errcheck
		notifier = kafkaNotifier
		healthCheckers = append(healthCheckers, notify.NewKafkaHealthCheck(kafkaClient))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka connected")
	} else {
		log.Warn().Msg("No Kafka brokers configured, mail notifications will only be logged")
		notifier = notify.NewLogNotifier(log)
	}

	// Initialize core services
	sigSvc := service.NewSHA512SignatureService(cfg.Midtrans.ServerKey)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	paymentGateway := gateway.NewMidtrans(cfg.Midtrans, log)

	// Initialize business services
	catalogs := []ports.Catalog{
		service.NewCourseCatalog(courseRepo, enrollmentRepo),
		service.NewPremiumCatalog(premiumProductRepo, premiumPurchaseRepo),
	}
	consumeOnSettlement := cfg.Voucher.ConsumeAtSettlement()

	voucherSvc := service.NewVoucherService(voucherRepo, txRepos, catalogs)
	fulfillmentSvc := service.NewFulfillmentService(catalogs, voucherRepo, userRepo, notifier, consumeOnSettlement, log)
	checkoutSvc := service.NewCheckoutService(
		catalogs,
		txRepos,
		voucherSvc,
		voucherRepo,
		userRepo,
		paymentGateway,
		fulfillmentSvc,
		replayCache,
		transactor,
		service.CheckoutOptions{
			MinimumAmount:       decimal.NewFromInt(cfg.Payment.MinimumAmount),
			ConsumeOnSettlement: consumeOnSettlement,
		},
		log,
	)
	reconciler := service.NewReconciler(txRepos, paymentLogRepo, sigSvc, fulfillmentSvc, transactor, log)
	querySvc := service.NewTransactionQueryService(txRepos, paymentLogRepo)

	// Pending sweeper
	if cfg.Reconcile.Enabled {
		sweeper := service.NewPendingSweeper(
			txRepos,
			paymentGateway,
			reconciler,
			transactor,
			service.SweepOptions{
				MinAge:      cfg.Reconcile.MinAge,
				BatchSize:   cfg.Reconcile.BatchSize,
				ExpireAfter: cfg.Reconcile.ExpireAfter,
			},
			log,
		).WithLock(runLock)
		if err := sweeper.Start(cfg.Reconcile.Schedule); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.Reconcile.Schedule).Msg("Failed to start pending sweeper")
		}
		defer sweeper.Stop()
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CheckoutSvc:    checkoutSvc,
		VoucherSvc:     voucherSvc,
		Reconciler:     reconciler,
		QuerySvc:       querySvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
