package booking

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeKind classifies a charge event emitted by a booking.
type ChargeKind string

const (
	ChargeRoom      ChargeKind = "room_charge"
	ChargeSurcharge ChargeKind = "surcharge"
	ChargeDiscount  ChargeKind = "discount"
)

// ChargeEvent is one billable fact of a stay. Amounts follow the invoice line
// sign convention: positive charges, negative discounts.
type ChargeEvent struct {
	Kind        ChargeKind
	Description string
	Amount      decimal.Decimal
	SourceID    *uuid.UUID
}

// ChargeEvents lists the charges of the stay in a stable order: room types,
// then surcharges, then the booking discount.
func (b *Booking) ChargeEvents() []ChargeEvent {
	events := make([]ChargeEvent, 0, len(b.roomTypes)+len(b.surcharges)+1)
	for _, rt := range b.roomTypes {
		id := rt.id
		events = append(events, ChargeEvent{
			Kind: ChargeRoom,
			Description: fmt.Sprintf("Room charge: %d room(s) x %d night(s) @ %s (%s to %s)",
				rt.totalRoom, rt.Nights(), rt.pricePerNight.StringFixed(2),
				rt.checkInDate.Format("2006-01-02"), rt.checkOutDate.Format("2006-01-02")),
			Amount:   rt.Amount(),
			SourceID: &id,
		})
	}
	for _, s := range b.surcharges {
		id := s.id
		events = append(events, ChargeEvent{
			Kind:        ChargeSurcharge,
			Description: s.description,
			Amount:      s.amount,
			SourceID:    &id,
		})
	}
	if b.discountAmount.IsPositive() {
		id := b.id
		events = append(events, ChargeEvent{
			Kind:        ChargeDiscount,
			Description: "Booking discount",
			Amount:      b.discountAmount.Neg(),
			SourceID:    &id,
		})
	}
	return events
}
