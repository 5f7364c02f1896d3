package promo

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/common/money"
)

var hundred = decimal.NewFromInt(100)

// Promotion is a hotel-scoped discount code.
type Promotion struct {
	id           uuid.UUID
	hotelID      uuid.UUID
	code         string
	description  string
	value        decimal.Decimal // percentage (0, 100] or a currency amount
	isPercentage bool
	startDate    time.Time
	endDate      time.Time
	isActive     bool
	createdAt    time.Time
	updatedAt    time.Time
}

// NormalizeCode trims and upper-cases a promotion code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NewPromotion creates an active promotion.
func NewPromotion(hotelID uuid.UUID, code, description string, value decimal.Decimal, isPercentage bool, startDate, endDate time.Time) (*Promotion, error) {
	code = NormalizeCode(code)

	errs := domain.Fields{}
	if hotelID == uuid.Nil {
		errs.Add("hotel_id", "is required")
	}
	if code == "" {
		errs.Add("code", "is required")
	}
	if !value.IsPositive() {
		errs.Add("value", "must be greater than zero")
	} else if isPercentage && value.GreaterThan(hundred) {
		errs.Add("value", "percentage cannot exceed 100")
	}
	if !money.HasValidScale(value) {
		errs.Add("value", "must have at most 2 decimal places")
	}
	if endDate.Before(startDate) {
		errs.Add("end_date", "must not be before start_date")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Promotion{
		id:           uuid.New(),
		hotelID:      hotelID,
		code:         code,
		description:  description,
		value:        value,
		isPercentage: isPercentage,
		startDate:    startDate.UTC(),
		endDate:      endDate.UTC(),
		isActive:     true,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a Promotion from persistence.
func Reconstruct(id, hotelID uuid.UUID, code, description string, value decimal.Decimal, isPercentage bool, startDate, endDate time.Time, isActive bool, createdAt, updatedAt time.Time) *Promotion {
	return &Promotion{
		id: id, hotelID: hotelID, code: code, description: description,
		value: value, isPercentage: isPercentage,
		startDate: startDate, endDate: endDate, isActive: isActive,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// IsValidAt reports whether the promotion is active and now lies inside its
// window, both ends inclusive.
func (p *Promotion) IsValidAt(now time.Time) bool {
	return p.isActive && !now.Before(p.startDate) && !now.After(p.endDate)
}

// ComputeDiscount prices the promotion against base. The result never exceeds
// base and is never negative.
func (p *Promotion) ComputeDiscount(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	discount := p.value
	if p.isPercentage {
		discount = money.Percent(base, p.value)
	}
	return money.ClampNonNegative(decimal.Min(discount, base))
}

// Deactivate switches the promotion off. Deactivating twice is a no-op.
func (p *Promotion) Deactivate() {
	if !p.isActive {
		return
	}
	p.isActive = false
	p.updatedAt = time.Now().UTC()
}

// Label is the invoice line description of the promotion.
func (p *Promotion) Label() string {
	if p.isPercentage {
		return fmt.Sprintf("Promotion %s (%s%%)", p.code, p.value.String())
	}
	return fmt.Sprintf("Promotion %s", p.code)
}

// Clone returns a copy of the promotion.
func (p *Promotion) Clone() *Promotion {
	c := *p
	return &c
}

// InvalidCodeError is returned when no usable promotion matches a code.
func InvalidCodeError(code string) error {
	return domain.NewValidationError(map[string][]string{
		"code": {"invalid or inactive promotion code"},
	}).WithCode(domain.CodeInvalidOrInactiveCode, fmt.Sprintf("promotion code %q is invalid or inactive", code))
}

// Getters.
func (p *Promotion) ID() uuid.UUID          { return p.id }
func (p *Promotion) HotelID() uuid.UUID     { return p.hotelID }
func (p *Promotion) Code() string           { return p.code }
func (p *Promotion) Description() string    { return p.description }
func (p *Promotion) Value() decimal.Decimal { return p.value }
func (p *Promotion) IsPercentage() bool     { return p.isPercentage }
func (p *Promotion) StartDate() time.Time   { return p.startDate }
func (p *Promotion) EndDate() time.Time     { return p.endDate }
func (p *Promotion) IsActive() bool         { return p.isActive }
func (p *Promotion) CreatedAt() time.Time   { return p.createdAt }
func (p *Promotion) UpdatedAt() time.Time   { return p.updatedAt }
