package booking

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a booking listing.
type ListFilter struct {
	HotelID uuid.UUID
	Status  *Status
}

// Repository is the persistence port of the booking aggregate.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	FindByRoomID(ctx context.Context, bookingRoomID uuid.UUID) (*Booking, error)
	Save(ctx context.Context, b *Booking) error
	// Update persists b with optimistic locking on its version and commits
	// new room assignments with a conditional quota write.
	Update(ctx context.Context, b *Booking) error
	List(ctx context.Context, filter ListFilter, page, pageSize int) ([]*Booking, int64, error)
	// Delete removes a booking and its children, leaves first.
	Delete(ctx context.Context, id uuid.UUID) error
	// DetachGuest nulls primary guest references and removes occupant links of
	// a deleted guest across all bookings.
	DetachGuest(ctx context.Context, guestID uuid.UUID) (int64, error)
	// RemovePhysicalRoom removes the assignments of a deleted physical room
	// across all bookings and releases their quota.
	RemovePhysicalRoom(ctx context.Context, roomID uuid.UUID) (int64, error)
}

// RoomDirectory reads physical rooms owned by the hotel directory.
type RoomDirectory interface {
	FindRoom(ctx context.Context, roomID uuid.UUID) (*PhysicalRoom, error)
}
