// Package schema defines the topics, event types and payloads exchanged over Kafka.
package schema

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Source is the CloudEvents source of everything this service publishes.
const Source = "service-booking"

// Topics.
const (
	TopicBookingEvents   = "hotel.booking.events"
	TopicInvoiceEvents   = "hotel.invoice.events"
	TopicDirectoryEvents = "hotel.directory.events"
)

// Event types.
const (
	BookingConfirmed = "hotel.booking.confirmed"
	BookingCancelled = "hotel.booking.cancelled"
	BookingCompleted = "hotel.booking.completed"

	InvoiceIssued    = "hotel.invoice.issued"
	InvoicePaid      = "hotel.invoice.paid"
	InvoiceCancelled = "hotel.invoice.cancelled"

	GuestDeleted = "hotel.directory.guest_deleted"
	RoomDeleted  = "hotel.directory.room_deleted"
)

// BookingEvent is the payload of every booking lifecycle event.
type BookingEvent struct {
	BookingID   uuid.UUID       `json:"booking_id"`
	HotelID     uuid.UUID       `json:"hotel_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Reason      string          `json:"reason,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// InvoiceEvent is the payload of every invoice lifecycle event.
type InvoiceEvent struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	HotelID       uuid.UUID       `json:"hotel_id"`
	BookingID     *uuid.UUID      `json:"booking_id,omitempty"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// GuestDeletedEvent is published by the guest directory.
type GuestDeletedEvent struct {
	GuestID    uuid.UUID `json:"guest_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoomDeletedEvent is published by the room directory.
type RoomDeletedEvent struct {
	RoomID     uuid.UUID `json:"room_id"`
	HotelID    uuid.UUID `json:"hotel_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
