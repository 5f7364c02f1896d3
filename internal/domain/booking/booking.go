package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/common/money"
)

// RoomTypeRequest describes one requested room category at creation time.
type RoomTypeRequest struct {
	RoomTypeID    uuid.UUID
	TotalRoom     int
	CheckInDate   time.Time
	CheckOutDate  time.Time
	PricePerNight decimal.Decimal
}

// CreateParams carries the input of a reservation request.
type CreateParams struct {
	HotelID        uuid.UUID
	PrimaryGuestID *uuid.UUID
	DepositAmount  decimal.Decimal
	DiscountAmount decimal.Decimal
	RoomTypes      []RoomTypeRequest
}

// Booking is the aggregate root of a hotel reservation.
type Booking struct {
	id             uuid.UUID
	hotelID        uuid.UUID
	primaryGuestID *uuid.UUID
	status         Status
	totalAmount    decimal.Decimal
	depositAmount  decimal.Decimal
	discountAmount decimal.Decimal
	leftAmount     decimal.Decimal
	cancelReason   string
	confirmedAt    *time.Time
	checkedInAt    *time.Time
	completedAt    *time.Time
	cancelledAt    *time.Time
	roomTypes      []*RoomType
	surcharges     []*Surcharge
	version        int64
	createdAt      time.Time
	updatedAt      time.Time

	// uncommitted children, drained by the repository on Update.
	newRooms      []*Room
	newSurcharges []*Surcharge
}

// NewBooking validates a reservation request and creates a pending Booking.
func NewBooking(p CreateParams) (*Booking, error) {
	errs := domain.Fields{}
	if p.HotelID == uuid.Nil {
		errs.Add("hotel_id", "is required")
	}
	checkAmount(errs, "deposit_amount", p.DepositAmount)
	checkAmount(errs, "discount_amount", p.DiscountAmount)
	if len(p.RoomTypes) == 0 {
		errs.Add("room_types", "at least one room type is required")
	}
	for i, rt := range p.RoomTypes {
		prefix := fmt.Sprintf("room_types[%d].", i)
		if rt.RoomTypeID == uuid.Nil {
			errs.Add(prefix+"room_type_id", "is required")
		}
		if rt.TotalRoom < 1 {
			errs.Add(prefix+"total_room", "must be at least 1")
		}
		if rt.CheckInDate.IsZero() || rt.CheckOutDate.IsZero() {
			errs.Add(prefix+"dates", "check-in and check-out dates are required")
		} else if !civilDate(rt.CheckOutDate).After(civilDate(rt.CheckInDate)) {
			errs.Add(prefix+"check_out_date", "must be after check-in date")
		}
		checkAmount(errs, prefix+"price_per_night", rt.PricePerNight)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b := &Booking{
		id:             uuid.New(),
		hotelID:        p.HotelID,
		primaryGuestID: p.PrimaryGuestID,
		status:         StatusPending,
		depositAmount:  p.DepositAmount,
		discountAmount: p.DiscountAmount,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}
	for _, rt := range p.RoomTypes {
		b.roomTypes = append(b.roomTypes, &RoomType{
			id:            uuid.New(),
			roomTypeID:    rt.RoomTypeID,
			totalRoom:     rt.TotalRoom,
			checkInDate:   civilDate(rt.CheckInDate),
			checkOutDate:  civilDate(rt.CheckOutDate),
			pricePerNight: rt.PricePerNight,
		})
	}
	b.recalculate()
	return b, nil
}

func checkAmount(errs domain.Fields, field string, d decimal.Decimal) {
	if d.IsNegative() {
		errs.Add(field, "must not be negative")
	}
	if !money.HasValidScale(d) {
		errs.Add(field, "must have at most 2 decimal places")
	}
}

// --- Getters ---

func (b *Booking) ID() uuid.UUID                   { return b.id }
func (b *Booking) HotelID() uuid.UUID              { return b.hotelID }
func (b *Booking) PrimaryGuestID() *uuid.UUID      { return b.primaryGuestID }
func (b *Booking) Status() Status                  { return b.status }
func (b *Booking) TotalAmount() decimal.Decimal    { return b.totalAmount }
func (b *Booking) DepositAmount() decimal.Decimal  { return b.depositAmount }
func (b *Booking) DiscountAmount() decimal.Decimal { return b.discountAmount }
func (b *Booking) LeftAmount() decimal.Decimal     { return b.leftAmount }
func (b *Booking) CancelReason() string            { return b.cancelReason }
func (b *Booking) ConfirmedAt() *time.Time         { return b.confirmedAt }
func (b *Booking) CheckedInAt() *time.Time         { return b.checkedInAt }
func (b *Booking) CompletedAt() *time.Time         { return b.completedAt }
func (b *Booking) CancelledAt() *time.Time         { return b.cancelledAt }
func (b *Booking) RoomTypes() []*RoomType          { return b.roomTypes }
func (b *Booking) Surcharges() []*Surcharge        { return b.surcharges }
func (b *Booking) Version() int64                  { return b.version }
func (b *Booking) CreatedAt() time.Time            { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time            { return b.updatedAt }

// RoomType returns the booking room type with the given id.
func (b *Booking) RoomType(id uuid.UUID) (*RoomType, bool) {
	for _, rt := range b.roomTypes {
		if rt.id == id {
			return rt, true
		}
	}
	return nil, false
}

// Room returns the booking room with the given id.
func (b *Booking) Room(id uuid.UUID) (*Room, bool) {
	for _, rt := range b.roomTypes {
		for _, r := range rt.rooms {
			if r.id == id {
				return r, true
			}
		}
	}
	return nil, false
}

// Rooms returns every assigned room across all room types.
func (b *Booking) Rooms() []*Room {
	var out []*Room
	for _, rt := range b.roomTypes {
		out = append(out, rt.rooms...)
	}
	return out
}

// --- Behavior / State Transitions ---

// Confirm moves a pending booking to confirmed.
func (b *Booking) Confirm() error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	now := time.Now().UTC()
	b.status = StatusConfirmed
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

// AssignRoom assigns a physical room against the quota of a booking room type.
func (b *Booking) AssignRoom(bookingRoomTypeID uuid.UUID, room PhysicalRoom, guestIDs []uuid.UUID) (*Room, error) {
	if b.status.IsTerminal() {
		return nil, b.terminalError("assign a room")
	}
	rt, ok := b.RoomType(bookingRoomTypeID)
	if !ok {
		return nil, domain.NewNotFoundError("BookingRoomType", bookingRoomTypeID.String())
	}
	if rt.AssignedCount() >= rt.totalRoom {
		return nil, domain.NewQuotaExceededError(fmt.Sprintf(
			"room type %s already has %d of %d rooms assigned", rt.id, rt.AssignedCount(), rt.totalRoom))
	}
	if room.HotelID != b.hotelID {
		return nil, domain.NewValidationError(map[string][]string{
			"room_id": {"room belongs to a different hotel"},
		}).WithCode(domain.CodeRoomNotInHotel, fmt.Sprintf("room %s does not belong to hotel %s", room.ID, b.hotelID))
	}
	for _, existing := range b.Rooms() {
		if existing.roomID == room.ID {
			return nil, domain.NewConflictError(fmt.Sprintf("room %s is already assigned to this booking", room.ID))
		}
	}

	now := time.Now().UTC()
	assigned := &Room{
		id:         uuid.New(),
		roomTypeID: rt.id,
		roomID:     room.ID,
		guestIDs:   dedupe(guestIDs),
		createdAt:  now,
	}
	rt.rooms = append(rt.rooms, assigned)
	b.newRooms = append(b.newRooms, assigned)
	b.updatedAt = now
	b.TryComplete()
	return assigned, nil
}

// RecordCheckIn stamps the actual check-in of a booking room. The booking
// moves to checked-in on its first room.
func (b *Booking) RecordCheckIn(bookingRoomID uuid.UUID, at time.Time) error {
	if b.status != StatusConfirmed && b.status != StatusCheckedIn {
		return domain.NewInvalidStateError(string(b.status), string(StatusCheckedIn))
	}
	r, ok := b.Room(bookingRoomID)
	if !ok {
		return domain.NewNotFoundError("BookingRoom", bookingRoomID.String())
	}
	if r.checkedInAt != nil {
		return sequenceError(fmt.Sprintf("room %s is already checked in", r.id))
	}

	at = at.UTC()
	r.checkedInAt = &at
	if b.status == StatusConfirmed {
		b.status = StatusCheckedIn
		b.checkedInAt = &at
	}
	b.updatedAt = time.Now().UTC()
	b.TryComplete()
	return nil
}

// RecordCheckOut stamps the actual check-out of a booking room.
func (b *Booking) RecordCheckOut(bookingRoomID uuid.UUID, at time.Time) error {
	if b.status.IsTerminal() {
		return b.terminalError("check out a room")
	}
	r, ok := b.Room(bookingRoomID)
	if !ok {
		return domain.NewNotFoundError("BookingRoom", bookingRoomID.String())
	}
	switch {
	case r.checkedInAt == nil:
		return sequenceError(fmt.Sprintf("room %s has not been checked in", r.id))
	case r.checkedOutAt != nil:
		return sequenceError(fmt.Sprintf("room %s is already checked out", r.id))
	case at.Before(*r.checkedInAt):
		return sequenceError("check-out cannot be earlier than check-in")
	}

	at = at.UTC()
	r.checkedOutAt = &at
	b.updatedAt = time.Now().UTC()
	b.TryComplete()
	return nil
}

// TryComplete completes the booking when every room type quota is filled and
// every assigned room has both check-in and check-out. It reports whether this
// call made the transition; calling it on a completed booking is a no-op.
func (b *Booking) TryComplete() bool {
	if b.status.IsTerminal() || len(b.roomTypes) == 0 {
		return false
	}
	for _, rt := range b.roomTypes {
		if !rt.IsFulfilled() {
			return false
		}
		for _, r := range rt.rooms {
			if !r.HasStayed() {
				return false
			}
		}
	}
	now := time.Now().UTC()
	b.status = StatusCompleted
	b.completedAt = &now
	b.updatedAt = now
	return true
}

// Cancel terminates a booking that has not finished.
func (b *Booking) Cancel(reason string) error {
	if b.status.IsTerminal() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelReason = reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// AddSurcharge adds an extra charge to an open booking.
func (b *Booking) AddSurcharge(description string, amount decimal.Decimal) (*Surcharge, error) {
	if b.status.IsTerminal() {
		return nil, b.terminalError("add a surcharge")
	}
	errs := domain.Fields{}
	if description == "" {
		errs.Add("description", "is required")
	}
	if !amount.IsPositive() {
		errs.Add("amount", "must be greater than zero")
	} else if !money.HasValidScale(amount) {
		errs.Add("amount", "must have at most 2 decimal places")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	s := &Surcharge{id: uuid.New(), description: description, amount: amount, createdAt: now}
	b.surcharges = append(b.surcharges, s)
	b.newSurcharges = append(b.newSurcharges, s)
	b.updatedAt = now
	b.recalculate()
	return s, nil
}

// RecordDeposit adds a deposit payment to an open booking.
func (b *Booking) RecordDeposit(amount decimal.Decimal) error {
	if b.status.IsTerminal() {
		return b.terminalError("record a deposit")
	}
	if !amount.IsPositive() || !money.HasValidScale(amount) {
		return domain.NewValidationError(map[string][]string{
			"amount": {"must be a positive amount with at most 2 decimal places"},
		})
	}
	b.depositAmount = b.depositAmount.Add(amount)
	b.updatedAt = time.Now().UTC()
	b.recalculate()
	return nil
}

// DetachGuest removes every trace of a deleted guest from the booking and
// reports whether anything changed.
func (b *Booking) DetachGuest(guestID uuid.UUID) bool {
	changed := false
	if b.primaryGuestID != nil && *b.primaryGuestID == guestID {
		b.primaryGuestID = nil
		changed = true
	}
	for _, r := range b.Rooms() {
		kept := r.guestIDs[:0]
		for _, g := range r.guestIDs {
			if g == guestID {
				changed = true
				continue
			}
			kept = append(kept, g)
		}
		r.guestIDs = kept
	}
	if changed {
		b.updatedAt = time.Now().UTC()
	}
	return changed
}

// RemovePhysicalRoom drops the assignments of a deleted physical room and
// returns how many were removed. Freed quota becomes assignable again.
func (b *Booking) RemovePhysicalRoom(roomID uuid.UUID) int {
	removed := 0
	for _, rt := range b.roomTypes {
		kept := rt.rooms[:0]
		for _, r := range rt.rooms {
			if r.roomID == roomID {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		rt.rooms = kept
	}
	if removed > 0 {
		b.updatedAt = time.Now().UTC()
	}
	return removed
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}

// UncommittedRooms returns rooms assigned since the booking was loaded.
func (b *Booking) UncommittedRooms() []*Room { return b.newRooms }

// UncommittedSurcharges returns surcharges added since the booking was loaded.
func (b *Booking) UncommittedSurcharges() []*Surcharge { return b.newSurcharges }

// MarkCommitted clears the uncommitted children after a successful write.
func (b *Booking) MarkCommitted() {
	b.newRooms = nil
	b.newSurcharges = nil
}

// recalculate derives TotalAmount and LeftAmount from the children.
func (b *Booking) recalculate() {
	total := decimal.Zero
	for _, rt := range b.roomTypes {
		total = total.Add(rt.Amount())
	}
	for _, s := range b.surcharges {
		total = total.Add(s.amount)
	}
	b.totalAmount = money.Round(total)
	b.leftAmount = money.ClampNonNegative(b.totalAmount.Sub(b.depositAmount).Sub(b.discountAmount))
}

func (b *Booking) terminalError(action string) error {
	return domain.NewStateError(domain.CodeInvalidState, fmt.Sprintf("cannot %s: booking is %s", action, b.status))
}

func sequenceError(message string) error {
	return domain.NewStateError(domain.CodeInvalidSequence, message)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Clone returns a deep copy of the booking, uncommitted children excluded.
func (b *Booking) Clone() *Booking {
	c := *b
	c.primaryGuestID = clonePtr(b.primaryGuestID)
	c.confirmedAt = clonePtr(b.confirmedAt)
	c.checkedInAt = clonePtr(b.checkedInAt)
	c.completedAt = clonePtr(b.completedAt)
	c.cancelledAt = clonePtr(b.cancelledAt)
	c.roomTypes = make([]*RoomType, len(b.roomTypes))
	for i, rt := range b.roomTypes {
		rtc := *rt
		rtc.rooms = make([]*Room, len(rt.rooms))
		for j, r := range rt.rooms {
			rc := *r
			rc.checkedInAt = clonePtr(r.checkedInAt)
			rc.checkedOutAt = clonePtr(r.checkedOutAt)
			rc.guestIDs = append([]uuid.UUID(nil), r.guestIDs...)
			rtc.rooms[j] = &rc
		}
		c.roomTypes[i] = &rtc
	}
	c.surcharges = make([]*Surcharge, len(b.surcharges))
	for i, s := range b.surcharges {
		sc := *s
		c.surcharges[i] = &sc
	}
	c.newRooms = nil
	c.newSurcharges = nil
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// --- Reconstitution ---

// Reconstitute rebuilds a Booking from persisted data.
func Reconstitute(
	id, hotelID uuid.UUID,
	primaryGuestID *uuid.UUID,
	status Status,
	totalAmount, depositAmount, discountAmount, leftAmount decimal.Decimal,
	cancelReason string,
	confirmedAt, checkedInAt, completedAt, cancelledAt *time.Time,
	roomTypes []*RoomType,
	surcharges []*Surcharge,
	version int64,
	createdAt, updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		hotelID:        hotelID,
		primaryGuestID: primaryGuestID,
		status:         status,
		totalAmount:    totalAmount,
		depositAmount:  depositAmount,
		discountAmount: discountAmount,
		leftAmount:     leftAmount,
		cancelReason:   cancelReason,
		confirmedAt:    confirmedAt,
		checkedInAt:    checkedInAt,
		completedAt:    completedAt,
		cancelledAt:    cancelledAt,
		roomTypes:      roomTypes,
		surcharges:     surcharges,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}
