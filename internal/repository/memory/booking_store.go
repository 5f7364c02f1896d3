// Package memory holds map-backed stores used by tests and the memory storage
// driver. They keep the versioning and quota rules of the PostgreSQL stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/booking"
)

// TxManager runs fn directly. Writes made before a failure are not rolled
// back; each store call is atomic on its own.
type TxManager struct{}

// WithTransaction runs fn with ctx.
func (TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// BookingStore is an in-memory booking.Repository.
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*booking.Booking
}

// NewBookingStore creates an empty BookingStore.
func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[uuid.UUID]*booking.Booking)}
}

// FindByID returns a copy of the booking.
func (s *BookingStore) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return b.Clone(), nil
}

// FindByRoomID returns a copy of the booking owning a booking room.
func (s *BookingStore) FindByRoomID(_ context.Context, bookingRoomID uuid.UUID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bookings {
		if _, ok := b.Room(bookingRoomID); ok {
			return b.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("BookingRoom", bookingRoomID.String())
}

// Save stores a new booking.
func (s *BookingStore) Save(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID()]; ok {
		return domain.NewConflictError("booking already exists")
	}
	b.MarkCommitted()
	s.bookings[b.ID()] = b.Clone()
	return nil
}

// Update replaces a booking when its stored version is the one it was loaded
// at, and re-checks the quota of every room type that gained rooms.
func (s *BookingStore) Update(_ context.Context, b *booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[b.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", b.ID().String())
	}
	if current.Version() != b.Version()-1 {
		return domain.NewConflictError("booking was modified by another transaction")
	}
	for _, room := range b.UncommittedRooms() {
		stored, ok := current.RoomType(room.BookingRoomTypeID())
		if !ok {
			return domain.NewNotFoundError("BookingRoomType", room.BookingRoomTypeID().String())
		}
		if stored.AssignedCount() >= stored.TotalRoom() {
			return domain.NewConflictError(fmt.Sprintf("room type %s was fully assigned by another transaction", room.BookingRoomTypeID()))
		}
	}
	b.MarkCommitted()
	s.bookings[b.ID()] = b.Clone()
	return nil
}

// List returns one page of bookings, newest first.
func (s *BookingStore) List(_ context.Context, filter booking.ListFilter, page, pageSize int) ([]*booking.Booking, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*booking.Booking, 0)
	for _, b := range s.bookings {
		if b.HotelID() != filter.HotelID {
			continue
		}
		if filter.Status != nil && b.Status() != *filter.Status {
			continue
		}
		matched = append(matched, b)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt().Equal(matched[j].CreatedAt()) {
			return matched[i].CreatedAt().After(matched[j].CreatedAt())
		}
		return matched[i].ID().String() < matched[j].ID().String()
	})

	out := make([]*booking.Booking, 0, pageSize)
	for _, b := range paginate(matched, page, pageSize) {
		out = append(out, b.Clone())
	}
	return out, int64(len(matched)), nil
}

// Delete removes a booking.
func (s *BookingStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return domain.NewNotFoundError("Booking", id.String())
	}
	delete(s.bookings, id)
	return nil
}

// DetachGuest clears a deleted guest from every booking and returns the
// number of bookings touched.
func (s *BookingStore) DetachGuest(_ context.Context, guestID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.bookings {
		if b.DetachGuest(guestID) {
			b.IncrementVersion()
			n++
		}
	}
	return n, nil
}

// RemovePhysicalRoom drops every assignment of a deleted physical room and
// returns the number of assignments removed.
func (s *BookingStore) RemovePhysicalRoom(_ context.Context, roomID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, b := range s.bookings {
		if removed := b.RemovePhysicalRoom(roomID); removed > 0 {
			b.IncrementVersion()
			n += int64(removed)
		}
	}
	return n, nil
}

func paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
