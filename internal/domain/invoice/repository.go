package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows an invoice listing. From/To bound the report date.
type ListFilter struct {
	HotelID uuid.UUID
	Status  *Status
	From    *time.Time
	To      *time.Time
}

// RevenueFilter selects the invoices a revenue report reads. Cancelled
// invoices are always excluded; an empty Statuses applies no status filter.
// Revenue reports always pass the committed statuses.
type RevenueFilter struct {
	HotelID  uuid.UUID
	From     *time.Time
	To       *time.Time
	Statuses []Status
}

// Repository is the persistence port of the invoice aggregate.
type Repository interface {
	Save(ctx context.Context, inv *Invoice) error
	// Update persists inv with optimistic locking and replaces its lines.
	Update(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindActiveByBooking returns the non-cancelled invoice of a booking.
	FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*Invoice, error)
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]*Invoice, int64, error)
	FindForRevenue(ctx context.Context, filter RevenueFilter) ([]*Invoice, error)
}

// NumberGenerator produces human-readable invoice numbers. Uniqueness is
// best-effort and not enforced by storage.
type NumberGenerator interface {
	Next(now time.Time) string
}
