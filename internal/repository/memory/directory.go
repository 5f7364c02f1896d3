package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/domain/order"
)

// RoomDirectory is an in-memory booking.RoomDirectory.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]booking.PhysicalRoom
}

// NewRoomDirectory creates a directory holding rooms.
func NewRoomDirectory(rooms ...booking.PhysicalRoom) *RoomDirectory {
	d := &RoomDirectory{rooms: make(map[uuid.UUID]booking.PhysicalRoom, len(rooms))}
	for _, r := range rooms {
		d.rooms[r.ID] = r
	}
	return d
}

// Add registers a room.
func (d *RoomDirectory) Add(room booking.PhysicalRoom) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rooms[room.ID] = room
}

// FindRoom returns a physical room by ID.
func (d *RoomDirectory) FindRoom(_ context.Context, roomID uuid.UUID) (*booking.PhysicalRoom, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.rooms[roomID]
	if !ok {
		return nil, domain.NewNotFoundError("Room", roomID.String())
	}
	return &r, nil
}

// OrderBook is an in-memory order.Reader.
type OrderBook struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]order.Order
}

// NewOrderBook creates an empty OrderBook.
func NewOrderBook() *OrderBook {
	return &OrderBook{orders: make(map[uuid.UUID]order.Order)}
}

// Add registers an order.
func (b *OrderBook) Add(o order.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o.Items = append([]order.Item(nil), o.Items...)
	b.orders[o.ID] = o
}

// FindByID returns a copy of the order.
func (b *OrderBook) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, domain.NewNotFoundError("Order", id.String())
	}
	o.Items = append([]order.Item(nil), o.Items...)
	return &o, nil
}
