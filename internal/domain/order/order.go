// Package order is a read-only view of walk-in food and beverage orders owned
// by the kitchen service.
package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus is the kitchen state of an order item.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemServed    ItemStatus = "served"
	ItemCancelled ItemStatus = "cancelled"
)

// Item is one ordered dish or drink.
type Item struct {
	ID          uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Status      ItemStatus
}

// Amount returns Quantity x UnitPrice.
func (i Item) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a walk-in order.
type Order struct {
	ID      uuid.UUID
	HotelID uuid.UUID
	GuestID *uuid.UUID
	Items   []Item
}

// BillableItems returns the items that were not cancelled and carry a charge.
func (o *Order) BillableItems() []Item {
	out := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		if it.Status == ItemCancelled || it.Quantity <= 0 || it.Amount().IsZero() {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Reader loads orders from the kitchen service's storage.
type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}
