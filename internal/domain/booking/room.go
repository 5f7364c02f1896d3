package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PhysicalRoom is a room of the hotel directory, read through RoomDirectory.
type PhysicalRoom struct {
	ID         uuid.UUID
	HotelID    uuid.UUID
	RoomTypeID uuid.UUID
	Number     string
}

// RoomType is one requested room category within a booking: N rooms of a type
// for a date range at a snapshot price.
type RoomType struct {
	id            uuid.UUID
	roomTypeID    uuid.UUID
	totalRoom     int
	checkInDate   time.Time
	checkOutDate  time.Time
	pricePerNight decimal.Decimal
	rooms         []*Room
}

// Room is a physical room assigned against a RoomType quota.
type Room struct {
	id           uuid.UUID
	roomTypeID   uuid.UUID
	roomID       uuid.UUID
	checkedInAt  *time.Time
	checkedOutAt *time.Time
	guestIDs     []uuid.UUID
	createdAt    time.Time
}

// Surcharge is an extra charge added to a stay.
type Surcharge struct {
	id          uuid.UUID
	description string
	amount      decimal.Decimal
	createdAt   time.Time
}

// Nights returns the whole days between the dates, never less than one.
func (rt *RoomType) Nights() int {
	n := int(civilDate(rt.checkOutDate).Sub(civilDate(rt.checkInDate)).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}

// Amount returns TotalRoom x nights x PricePerNight.
func (rt *RoomType) Amount() decimal.Decimal {
	return rt.pricePerNight.
		Mul(decimal.NewFromInt(int64(rt.totalRoom))).
		Mul(decimal.NewFromInt(int64(rt.Nights())))
}

// AssignedCount returns the number of physical rooms assigned so far.
func (rt *RoomType) AssignedCount() int { return len(rt.rooms) }

// IsFulfilled reports whether the quota is non-empty and fully assigned.
func (rt *RoomType) IsFulfilled() bool {
	return rt.totalRoom > 0 && len(rt.rooms) >= rt.totalRoom
}

func (rt *RoomType) ID() uuid.UUID                  { return rt.id }
func (rt *RoomType) RoomTypeID() uuid.UUID          { return rt.roomTypeID }
func (rt *RoomType) TotalRoom() int                 { return rt.totalRoom }
func (rt *RoomType) CheckInDate() time.Time         { return rt.checkInDate }
func (rt *RoomType) CheckOutDate() time.Time        { return rt.checkOutDate }
func (rt *RoomType) PricePerNight() decimal.Decimal { return rt.pricePerNight }
func (rt *RoomType) Rooms() []*Room                 { return rt.rooms }

// HasStayed reports whether both check-in and check-out were recorded.
func (r *Room) HasStayed() bool { return r.checkedInAt != nil && r.checkedOutAt != nil }

func (r *Room) ID() uuid.UUID                { return r.id }
func (r *Room) BookingRoomTypeID() uuid.UUID { return r.roomTypeID }
func (r *Room) RoomID() uuid.UUID            { return r.roomID }
func (r *Room) CheckedInAt() *time.Time      { return r.checkedInAt }
func (r *Room) CheckedOutAt() *time.Time     { return r.checkedOutAt }
func (r *Room) GuestIDs() []uuid.UUID        { return r.guestIDs }
func (r *Room) CreatedAt() time.Time         { return r.createdAt }

func (s *Surcharge) ID() uuid.UUID           { return s.id }
func (s *Surcharge) Description() string     { return s.description }
func (s *Surcharge) Amount() decimal.Decimal { return s.amount }
func (s *Surcharge) CreatedAt() time.Time    { return s.createdAt }

// ReconstituteRoomType rebuilds a RoomType from persistence.
func ReconstituteRoomType(id, roomTypeID uuid.UUID, totalRoom int, checkIn, checkOut time.Time, price decimal.Decimal, rooms []*Room) *RoomType {
	return &RoomType{
		id: id, roomTypeID: roomTypeID, totalRoom: totalRoom,
		checkInDate: checkIn, checkOutDate: checkOut,
		pricePerNight: price, rooms: rooms,
	}
}

// ReconstituteRoom rebuilds a Room from persistence.
func ReconstituteRoom(id, bookingRoomTypeID, roomID uuid.UUID, checkedInAt, checkedOutAt *time.Time, guestIDs []uuid.UUID, createdAt time.Time) *Room {
	return &Room{
		id: id, roomTypeID: bookingRoomTypeID, roomID: roomID,
		checkedInAt: checkedInAt, checkedOutAt: checkedOutAt,
		guestIDs: guestIDs, createdAt: createdAt,
	}
}

// ReconstituteSurcharge rebuilds a Surcharge from persistence.
func ReconstituteSurcharge(id uuid.UUID, description string, amount decimal.Decimal, createdAt time.Time) *Surcharge {
	return &Surcharge{id: id, description: description, amount: amount, createdAt: createdAt}
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
