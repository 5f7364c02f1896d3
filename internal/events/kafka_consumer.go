package events

import (
	"context"
	"strings"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/kafka"
	"github.com/hotelcore/service-booking/internal/events/schema"
)

// InvoiceDrafter drafts the invoice of a finished booking.
type InvoiceDrafter interface {
	CreateFromBooking(ctx context.Context, bookingID uuid.UUID) (*application.InvoiceDTO, bool, error)
}

// DirectoryHandler applies deletions made in the guest and room directories.
type DirectoryHandler interface {
	HandleGuestDeleted(ctx context.Context, event schema.GuestDeletedEvent) error
	HandleRoomDeleted(ctx context.Context, event schema.RoomDeletedEvent) error
}

// BookingEventConsumer drafts invoices for completed bookings.
type BookingEventConsumer struct {
	consumer *kafka.Consumer
	invoices InvoiceDrafter
	logger   *zap.Logger
}

// NewBookingEventConsumer creates a new consumer for booking events.
func NewBookingEventConsumer(brokers []string, groupID string, invoices InvoiceDrafter, logger *zap.Logger) *BookingEventConsumer {
	return &BookingEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, schema.TopicBookingEvents, logger),
		invoices: invoices,
		logger:   logger,
	}
}

// Start begins consuming booking events. It blocks until the context is cancelled.
func (c *BookingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *BookingEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	if !strings.EqualFold(ce.Type, schema.BookingCompleted) {
		c.logger.Debug("ignoring booking event", zap.String("type", ce.Type))
		return nil
	}

	var event schema.BookingEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse BookingCompleted data", zap.Error(err))
		return err
	}
	inv, created, err := c.invoices.CreateFromBooking(ctx, event.BookingID)
	if err != nil {
		return err
	}
	c.logger.Info("invoice drafted for completed booking",
		zap.String("booking_id", event.BookingID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Bool("created", created),
	)
	return nil
}

// Close closes the underlying Kafka consumer.
func (c *BookingEventConsumer) Close() error {
	return c.consumer.Close()
}

// DirectoryEventConsumer cascades guest and room deletions into bookings.
type DirectoryEventConsumer struct {
	consumer *kafka.Consumer
	handler  DirectoryHandler
	logger   *zap.Logger
}

// NewDirectoryEventConsumer creates a new consumer for directory events.
func NewDirectoryEventConsumer(brokers []string, groupID string, handler DirectoryHandler, logger *zap.Logger) *DirectoryEventConsumer {
	return &DirectoryEventConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, schema.TopicDirectoryEvents, logger),
		handler:  handler,
		logger:   logger,
	}
}

// Start begins consuming directory events. It blocks until the context is cancelled.
func (c *DirectoryEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *DirectoryEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from directory topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	switch {
	case strings.EqualFold(ce.Type, schema.GuestDeleted):
		var event schema.GuestDeletedEvent
		if err := ce.ParseData(&event); err != nil {
			return err
		}
		return c.handler.HandleGuestDeleted(ctx, event)

	case strings.EqualFold(ce.Type, schema.RoomDeleted):
		var event schema.RoomDeletedEvent
		if err := ce.ParseData(&event); err != nil {
			return err
		}
		return c.handler.HandleRoomDeleted(ctx, event)

	default:
		c.logger.Debug("ignoring directory event", zap.String("type", ce.Type))
		return nil
	}
}

// Close closes the underlying Kafka consumer.
func (c *DirectoryEventConsumer) Close() error {
	return c.consumer.Close()
}
