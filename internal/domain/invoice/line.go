package invoice

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/common/money"
)

// SourceType classifies the origin of an invoice line.
type SourceType string

const (
	SourceRoomCharge SourceType = "room_charge"
	SourceFnb        SourceType = "fnb"
	SourceSurcharge  SourceType = "surcharge"
	SourceDiscount   SourceType = "discount"
)

// Valid reports whether s is a known source type.
func (s SourceType) Valid() bool {
	switch s {
	case SourceRoomCharge, SourceFnb, SourceSurcharge, SourceDiscount:
		return true
	default:
		return false
	}
}

// Line is one signed entry of an invoice: positive amounts are charges,
// negative amounts are discounts or credits.
type Line struct {
	ID          uuid.UUID
	Position    int
	Description string
	Amount      decimal.Decimal
	SourceType  SourceType
	SourceID    *uuid.UUID
}

// LineInput is a line as supplied by a caller, before an id and position are assigned.
type LineInput struct {
	Description string
	Amount      decimal.Decimal
	SourceType  SourceType
	SourceID    *uuid.UUID
}

func validateLines(errs domain.Fields, inputs []LineInput) {
	for i, in := range inputs {
		prefix := fmt.Sprintf("lines[%d].", i)
		if in.Description == "" {
			errs.Add(prefix+"description", "is required")
		}
		if !in.SourceType.Valid() {
			errs.Add(prefix+"source_type", fmt.Sprintf("unknown source type %q", in.SourceType))
		}
		switch {
		case in.Amount.IsZero():
			errs.Add(prefix+"amount", "must not be zero")
		case !money.HasValidScale(in.Amount):
			errs.Add(prefix+"amount", "must have at most 2 decimal places")
		case in.SourceType == SourceDiscount && in.Amount.IsPositive():
			errs.Add(prefix+"amount", "discount lines must be negative")
		}
	}
}
