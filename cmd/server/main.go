package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hotelcore/service-booking/internal/adapter"
	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/auth"
	"github.com/hotelcore/service-booking/internal/common/database"
	"github.com/hotelcore/service-booking/internal/common/health"
	"github.com/hotelcore/service-booking/internal/common/kafka"
	"github.com/hotelcore/service-booking/internal/common/logger"
	"github.com/hotelcore/service-booking/internal/common/middleware"
	"github.com/hotelcore/service-booking/internal/config"
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
	"github.com/hotelcore/service-booking/internal/domain/order"
	"github.com/hotelcore/service-booking/internal/domain/promo"
	bookingEvents "github.com/hotelcore/service-booking/internal/events"
	"github.com/hotelcore/service-booking/internal/events/schema"
	"github.com/hotelcore/service-booking/internal/handler"
	"github.com/hotelcore/service-booking/internal/lock"
	"github.com/hotelcore/service-booking/internal/repository"
	"github.com/hotelcore/service-booking/internal/repository/memory"
	"github.com/hotelcore/service-booking/internal/saga"
	"github.com/hotelcore/service-booking/migrations"
)

const serviceName = "service-booking"

// stores groups the persistence ports selected by STORAGE_DRIVER.
type stores struct {
	tx       application.TxManager
	bookings booking.Repository
	rooms    booking.RoomDirectory
	invoices invoice.Repository
	orders   order.Reader
	promos   promo.Repository
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
	)

	healthHandler := health.NewHandler(serviceName)

	// Persistence
	var st stores
	switch cfg.StorageDriver {
	case config.StorageMemory:
		st = stores{
			tx:       memory.TxManager{},
			bookings: memory.NewBookingStore(),
			rooms:    memory.NewRoomDirectory(),
			invoices: memory.NewInvoiceStore(),
			orders:   memory.NewOrderBook(),
			promos:   memory.NewPromoStore(),
		}
		zapLogger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.Connect(cfg.DBConfig, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), migrations.FS, zapLogger); err != nil {
			zapLogger.Fatal("failed to run migrations", zap.Error(err))
		}
		st = postgresStores(db)
		healthHandler.AddChecker("postgres", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}

	// Event publishing
	var publisher application.EventPublisher = bookingEvents.NewLogPublisher(zapLogger)
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopics(cfg.Kafka.Brokers,
			schema.TopicBookingEvents, schema.TopicInvoiceEvents, schema.TopicDirectoryEvents,
		); err != nil {
			zapLogger.Warn("could not ensure kafka topics", zap.Error(err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, zapLogger)
		defer producer.Close()
		publisher = bookingEvents.NewKafkaPublisher(producer)
	}

	// Assignment lock
	var locker application.AssignmentLocker = lock.NoopLocker{}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		redisLocker := lock.NewRedisLocker(client, cfg.Redis.LockTTL, cfg.Redis.LockWait, zapLogger)
		healthHandler.AddChecker("redis", redisLocker.Ping)
		locker = redisLocker
	}

	// Application services
	bookingService := application.NewBookingService(st.bookings, st.rooms, st.tx, locker, publisher, zapLogger)
	promoService := application.NewPromoService(st.promos, st.tx, zapLogger)
	invoiceService := application.NewInvoiceService(
		st.invoices,
		st.bookings,
		st.orders,
		promoService,
		adapter.NewRandomNumberGenerator(cfg.Invoice.Prefix, zapLogger),
		st.tx,
		publisher,
		zapLogger,
		cfg.Invoice.VatIncluded,
		cfg.RevenueLocation,
	)
	revenueService := application.NewRevenueService(st.invoices, cfg.RevenueLocation, zapLogger)
	settlementService := saga.NewSettlementService(invoiceService, zapLogger)

	// Kafka consumers
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if cfg.Kafka.Enabled {
		bookingConsumer := bookingEvents.NewBookingEventConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.GroupPrefix+"booking-invoicing",
			invoiceService,
			zapLogger,
		)
		defer bookingConsumer.Close()

		directoryConsumer := bookingEvents.NewDirectoryEventConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.GroupPrefix+"booking-directory",
			bookingService,
			zapLogger,
		)
		defer directoryConsumer.Close()

		go runConsumer(consumerCtx, "booking event consumer", bookingConsumer.Start, zapLogger)
		go runConsumer(consumerCtx, "directory event consumer", directoryConsumer.Start, zapLogger)
	}

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.LoggerMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	healthHandler.RegisterRoutes(router)

	var authMW []gin.HandlerFunc
	if cfg.Auth.Enabled {
		authMW = append(authMW, middleware.AuthMiddleware(auth.NewVerifier(cfg.Auth.Secret)))
	} else {
		zapLogger.Warn("authentication disabled; every request is unscoped")
	}

	apiV1 := router.Group("/api/v1")
	handler.NewBookingHandler(bookingService, settlementService).RegisterRoutes(apiV1, authMW...)
	handler.NewInvoiceHandler(invoiceService).RegisterRoutes(apiV1, authMW...)
	handler.NewPromoHandler(promoService).RegisterRoutes(apiV1, authMW...)
	handler.NewRevenueHandler(revenueService).RegisterRoutes(apiV1, authMW...)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down " + serviceName + "...")
	consumerCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info(serviceName + " stopped")
}

func postgresStores(db *gorm.DB) stores {
	return stores{
		tx:       database.NewTxManager(db),
		bookings: repository.NewBookingRepository(db),
		rooms:    repository.NewRoomDirectory(db),
		invoices: repository.NewInvoiceRepository(db),
		orders:   repository.NewOrderReader(db),
		promos:   repository.NewGormPromoRepository(db),
	}
}

func runConsumer(ctx context.Context, name string, start func(context.Context) error, logger *zap.Logger) {
	logger.Info("starting " + name)
	if err := start(ctx); err != nil && ctx.Err() == nil {
		logger.Error(name+" failed", zap.Error(err))
	}
}
