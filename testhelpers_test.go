//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hotelcore/service-booking/internal/adapter"
	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/database"
	"github.com/hotelcore/service-booking/internal/common/kafka"
	"github.com/hotelcore/service-booking/internal/events"
	"github.com/hotelcore/service-booking/internal/events/schema"
	"github.com/hotelcore/service-booking/internal/lock"
	"github.com/hotelcore/service-booking/internal/repository"
	"github.com/hotelcore/service-booking/migrations"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// serviceStack holds the wired booking and invoicing services.
type serviceStack struct {
	Bookings        *application.BookingService
	Invoices        *application.InvoiceService
	Consumer        *events.BookingEventConsumer
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL container and applies the migrations.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_booking",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:            host,
		Port:            port.Port(),
		User:            "test",
		Password:        "test",
		DBName:          "test_booking",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Minute,
	}
	logger := zap.NewNop()

	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")
	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), migrations.FS, logger))

	return db, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// setupContainers starts PostgreSQL and Kafka.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, stopPostgres := setupPostgres(t)

	// confluent-local runs KRaft without zookeeper.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, schema.TopicBookingEvents, schema.TopicInvoiceEvents, schema.TopicDirectoryEvents)

	return &testInfra{
		DB:           db,
		KafkaBrokers: brokers,
		Cleanup: func() {
			if err := kafkaContainer.Terminate(ctx); err != nil {
				t.Logf("failed to terminate Kafka container: %v", err)
			}
			stopPostgres()
		},
	}
}

// setupServiceStack wires the services against PostgreSQL. With brokers, events
// go to Kafka and a booking consumer is attached; without, nothing is published.
func setupServiceStack(t *testing.T, db *gorm.DB, brokers []string) *serviceStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	tx := database.NewTxManager(db)
	bookingRepo := repository.NewBookingRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)

	var publisher application.EventPublisher
	cleanup := func() {}
	if len(brokers) > 0 {
		producer := kafka.NewProducer(brokers, logger)
		publisher = events.NewKafkaPublisher(producer)
		cleanup = func() { _ = producer.Close() }
	}

	promoSvc := application.NewPromoService(repository.NewGormPromoRepository(db), tx, logger)
	bookingSvc := application.NewBookingService(bookingRepo, repository.NewRoomDirectory(db), tx, lock.NoopLocker{}, publisher, logger)
	invoiceSvc := application.NewInvoiceService(
		invoiceRepo,
		bookingRepo,
		repository.NewOrderReader(db),
		promoSvc,
		adapter.NewRandomNumberGenerator("INV", logger),
		tx,
		publisher,
		logger,
		true,
		time.UTC,
	)

	stack := &serviceStack{Bookings: bookingSvc, Invoices: invoiceSvc, CleanupProducer: cleanup}
	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-invoicing-%s", uuid.New().String()[:8])
		stack.Consumer = events.NewBookingEventConsumer(brokers, groupID, invoiceSvc, logger)
	}
	return stack
}

// seedRoom inserts a physical room into the room directory table.
func seedRoom(t *testing.T, db *gorm.DB, hotelID, roomTypeID uuid.UUID, number string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, db.Create(&repository.RoomModel{
		ID:         id,
		HotelID:    hotelID,
		RoomTypeID: roomTypeID,
		Number:     number,
	}).Error, "failed to seed room")
	return id
}

// waitForInvoice polls the invoices table until the booking has an invoice.
func waitForInvoice(t *testing.T, db *gorm.DB, bookingID uuid.UUID, timeout time.Duration) repository.InvoiceModel {
	t.Helper()
	var result repository.InvoiceModel
	require.Eventually(t, func() bool {
		return db.Where("booking_id = ?", bookingID).First(&result).Error == nil
	}, timeout, 200*time.Millisecond, "no invoice drafted for booking %s", bookingID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     fmt.Sprintf("test-assert-%s", uuid.New().String()[:8]),
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	configs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		configs[i] = kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}
	}
	require.NoError(t, controllerConn.CreateTopics(configs...), "failed to create Kafka topics")

	// Topic metadata takes a moment to propagate.
	time.Sleep(1 * time.Second)
}
