package promo

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines persistence operations for promotions.
type Repository interface {
	// Save persists a new promotion; a duplicate hotel/code pair is a Conflict.
	Save(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	FindByID(ctx context.Context, id uuid.UUID) (*Promotion, error)
	FindByCode(ctx context.Context, hotelID uuid.UUID, code string) (*Promotion, error)
	ListActive(ctx context.Context, hotelID uuid.UUID, now time.Time) ([]*Promotion, error)
}
