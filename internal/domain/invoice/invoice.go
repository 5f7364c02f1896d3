package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/common/money"
)

// Status represents the lifecycle state of an invoice.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusIssued    Status = "issued"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a stored or query-string value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
}

// TaxRate is the flat VAT rate applied to the subtotal when VAT is included.
var TaxRate = decimal.RequireFromString("0.10")

// DraftParams carries the input of a new draft invoice.
type DraftParams struct {
	HotelID     uuid.UUID
	BookingID   *uuid.UUID
	OrderID     *uuid.UUID
	GuestID     *uuid.UUID
	Lines       []LineInput
	VatIncluded bool
	// PaidAmount is credit already collected, such as a booking deposit.
	PaidAmount decimal.Decimal
}

// Invoice is the aggregate root of billing. Totals are always derived from
// the lines and never accepted from callers.
type Invoice struct {
	id             uuid.UUID
	hotelID        uuid.UUID
	bookingID      *uuid.UUID
	orderID        *uuid.UUID
	guestID        *uuid.UUID
	number         string
	status         Status
	lines          []Line
	subTotal       decimal.Decimal
	discountAmount decimal.Decimal
	taxAmount      decimal.Decimal
	totalAmount    decimal.Decimal
	paidAmount     decimal.Decimal
	vatIncluded    bool
	issuedAt       *time.Time
	paidAt         *time.Time
	cancelledAt    *time.Time
	version        int64
	createdAt      time.Time
	updatedAt      time.Time
}

// NewDraft validates p and creates a draft invoice numbered number. Paid credit
// is capped at the draft total.
func NewDraft(p DraftParams, number string) (*Invoice, error) {
	errs := domain.Fields{}
	if p.HotelID == uuid.Nil {
		errs.Add("hotel_id", "is required")
	}
	if p.BookingID == nil && p.OrderID == nil {
		errs.Add("booking_id", "either booking_id or order_id is required")
	}
	if number == "" {
		errs.Add("invoice_number", "is required")
	}
	validateLines(errs, p.Lines)
	switch {
	case p.PaidAmount.IsNegative():
		errs.Add("paid_amount", "cannot be negative")
	case !money.HasValidScale(p.PaidAmount):
		errs.Add("paid_amount", "must have at most 2 decimal places")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &Invoice{
		id:          uuid.New(),
		hotelID:     p.HotelID,
		bookingID:   p.BookingID,
		orderID:     p.OrderID,
		guestID:     p.GuestID,
		number:      number,
		status:      StatusDraft,
		vatIncluded: p.VatIncluded,
		paidAmount:  p.PaidAmount,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}
	inv.appendLines(p.Lines)
	inv.recalculate()
	if covered := money.ClampNonNegative(inv.totalAmount); inv.paidAmount.GreaterThan(covered) {
		inv.paidAmount = covered
	}
	return inv, nil
}

// --- Getters ---

func (i *Invoice) ID() uuid.UUID                   { return i.id }
func (i *Invoice) HotelID() uuid.UUID              { return i.hotelID }
func (i *Invoice) BookingID() *uuid.UUID           { return i.bookingID }
func (i *Invoice) OrderID() *uuid.UUID             { return i.orderID }
func (i *Invoice) GuestID() *uuid.UUID             { return i.guestID }
func (i *Invoice) Number() string                  { return i.number }
func (i *Invoice) Status() Status                  { return i.status }
func (i *Invoice) Lines() []Line                   { return i.lines }
func (i *Invoice) SubTotal() decimal.Decimal       { return i.subTotal }
func (i *Invoice) DiscountAmount() decimal.Decimal { return i.discountAmount }
func (i *Invoice) TaxAmount() decimal.Decimal      { return i.taxAmount }
func (i *Invoice) TotalAmount() decimal.Decimal    { return i.totalAmount }
func (i *Invoice) PaidAmount() decimal.Decimal     { return i.paidAmount }
func (i *Invoice) VatIncluded() bool               { return i.vatIncluded }
func (i *Invoice) IssuedAt() *time.Time            { return i.issuedAt }
func (i *Invoice) PaidAt() *time.Time              { return i.paidAt }
func (i *Invoice) CancelledAt() *time.Time         { return i.cancelledAt }
func (i *Invoice) Version() int64                  { return i.version }
func (i *Invoice) CreatedAt() time.Time            { return i.createdAt }
func (i *Invoice) UpdatedAt() time.Time            { return i.updatedAt }

// Outstanding returns TotalAmount minus PaidAmount.
func (i *Invoice) Outstanding() decimal.Decimal {
	return i.totalAmount.Sub(i.paidAmount)
}

// ReportDate is the date revenue reporting files the invoice under: the issue
// time, falling back to creation.
func (i *Invoice) ReportDate() time.Time {
	if i.issuedAt != nil {
		return *i.issuedAt
	}
	return i.createdAt
}

// --- Line mutations (draft only) ---

// AddLines appends lines to a draft invoice.
func (i *Invoice) AddLines(inputs []LineInput) error {
	if err := i.RequireDraft(); err != nil {
		return err
	}
	errs := domain.Fields{}
	if len(inputs) == 0 {
		errs.Add("lines", "at least one line is required")
	}
	validateLines(errs, inputs)
	if err := errs.Err(); err != nil {
		return err
	}
	i.appendLines(inputs)
	i.touch()
	return nil
}

// RemoveLines removes lines by id from a draft invoice.
func (i *Invoice) RemoveLines(ids []uuid.UUID) error {
	if err := i.RequireDraft(); err != nil {
		return err
	}
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	for id := range drop {
		if !i.hasLine(id) {
			return domain.NewNotFoundError("InvoiceLine", id.String())
		}
	}

	kept := make([]Line, 0, len(i.lines))
	for _, l := range i.lines {
		if _, ok := drop[l.ID]; ok {
			continue
		}
		l.Position = len(kept) + 1
		kept = append(kept, l)
	}
	i.lines = kept
	i.touch()
	return nil
}

// SetVatIncluded toggles the VAT term on a draft invoice.
func (i *Invoice) SetVatIncluded(included bool) error {
	if err := i.RequireDraft(); err != nil {
		return err
	}
	i.vatIncluded = included
	i.touch()
	return nil
}

// Discountable returns the part of the subtotal not yet covered by discount
// lines. It is never negative.
func (i *Invoice) Discountable() decimal.Decimal {
	return money.ClampNonNegative(i.subTotal.Sub(i.discountAmount))
}

// ApplyDiscount appends a negative discount line for promotionID, capped at
// Discountable. A promotion can be applied to an invoice only once.
func (i *Invoice) ApplyDiscount(promotionID uuid.UUID, description string, discount decimal.Decimal) error {
	if err := i.RequireDraft(); err != nil {
		return err
	}
	for _, l := range i.lines {
		if l.SourceType == SourceDiscount && l.SourceID != nil && *l.SourceID == promotionID {
			return domain.NewConflictError(fmt.Sprintf("promotion %s is already applied to invoice %s", promotionID, i.number))
		}
	}
	if discount.GreaterThan(i.Discountable()) {
		discount = i.Discountable()
	}
	if !discount.IsPositive() {
		return domain.NewValidationError(map[string][]string{
			"code": {"promotion yields no discount for this invoice"},
		})
	}
	id := promotionID
	i.appendLines([]LineInput{{
		Description: description,
		Amount:      money.Round(discount).Neg(),
		SourceType:  SourceDiscount,
		SourceID:    &id,
	}})
	i.touch()
	return nil
}

// --- State transitions ---

// Issue moves a draft invoice to issued. An invoice whose total is already
// covered by its paid amount goes straight to paid; credit beyond the total is
// not carried onto the invoice.
func (i *Invoice) Issue() error {
	if i.status != StatusDraft {
		return domain.NewInvalidStateError(string(i.status), string(StatusIssued))
	}
	if len(i.lines) == 0 {
		return domain.NewValidationError(map[string][]string{"lines": {"cannot issue an invoice without lines"}})
	}
	if i.totalAmount.IsNegative() {
		return domain.NewValidationError(map[string][]string{
			"total_amount": {fmt.Sprintf("cannot issue a negative total %s", i.totalAmount.StringFixed(2))},
		})
	}
	now := time.Now().UTC()
	i.status = StatusIssued
	i.issuedAt = &now
	if !i.Outstanding().IsPositive() {
		i.paidAmount = i.totalAmount
		i.status = StatusPaid
		i.paidAt = &now
	}
	i.updatedAt = now
	return nil
}

// RecordPayment registers a payment against an issued invoice. The invoice
// becomes paid once the outstanding amount reaches zero.
func (i *Invoice) RecordPayment(amount decimal.Decimal, at time.Time) error {
	if i.status != StatusIssued {
		return domain.NewInvalidStateError(string(i.status), string(StatusPaid))
	}
	switch {
	case !amount.IsPositive():
		return domain.NewValidationError(map[string][]string{"amount": {"must be greater than zero"}})
	case !money.HasValidScale(amount):
		return domain.NewValidationError(map[string][]string{"amount": {"must have at most 2 decimal places"}})
	case amount.GreaterThan(i.Outstanding()):
		return domain.NewValidationError(map[string][]string{
			"amount": {fmt.Sprintf("exceeds outstanding amount %s", i.Outstanding().StringFixed(2))},
		})
	}

	i.paidAmount = i.paidAmount.Add(amount)
	if i.Outstanding().IsZero() {
		at = at.UTC()
		i.status = StatusPaid
		i.paidAt = &at
	}
	i.updatedAt = time.Now().UTC()
	return nil
}

// Cancel terminates an invoice that has not been paid.
func (i *Invoice) Cancel() error {
	if i.status == StatusPaid || i.status == StatusCancelled {
		return domain.NewInvalidStateError(string(i.status), string(StatusCancelled))
	}
	now := time.Now().UTC()
	i.status = StatusCancelled
	i.cancelledAt = &now
	i.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (i *Invoice) IncrementVersion() {
	i.version++
	i.updatedAt = time.Now().UTC()
}

// Totals is the derived money breakdown of a set of lines.
type Totals struct {
	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// ComputeTotals derives the totals of lines. Only the tax term is rounded.
func ComputeTotals(lines []Line, vatIncluded bool) Totals {
	sub, disc := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.Amount.IsPositive() {
			sub = sub.Add(l.Amount)
		} else {
			disc = disc.Add(l.Amount)
		}
	}
	disc = disc.Abs()
	tax := decimal.Zero
	if vatIncluded {
		tax = money.Round(sub.Mul(TaxRate))
	}
	return Totals{
		SubTotal:       sub,
		DiscountAmount: disc,
		TaxAmount:      tax,
		TotalAmount:    sub.Sub(disc).Add(tax),
	}
}

// RequireDraft rejects changes to an invoice that left the draft state.
func (i *Invoice) RequireDraft() error {
	if i.status != StatusDraft {
		return domain.NewStateError(domain.CodeInvoiceNotDraft,
			fmt.Sprintf("invoice %s is %s; only draft invoices can be changed", i.number, i.status))
	}
	return nil
}

func (i *Invoice) hasLine(id uuid.UUID) bool {
	for _, l := range i.lines {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (i *Invoice) appendLines(inputs []LineInput) {
	for _, in := range inputs {
		i.lines = append(i.lines, Line{
			ID:          uuid.New(),
			Position:    len(i.lines) + 1,
			Description: in.Description,
			Amount:      in.Amount,
			SourceType:  in.SourceType,
			SourceID:    in.SourceID,
		})
	}
}

func (i *Invoice) touch() {
	i.recalculate()
	i.updatedAt = time.Now().UTC()
}

func (i *Invoice) recalculate() {
	t := ComputeTotals(i.lines, i.vatIncluded)
	i.subTotal = t.SubTotal
	i.discountAmount = t.DiscountAmount
	i.taxAmount = t.TaxAmount
	i.totalAmount = t.TotalAmount
}

// Clone returns a deep copy of the invoice.
func (i *Invoice) Clone() *Invoice {
	c := *i
	c.bookingID = clonePtr(i.bookingID)
	c.orderID = clonePtr(i.orderID)
	c.guestID = clonePtr(i.guestID)
	c.issuedAt = clonePtr(i.issuedAt)
	c.paidAt = clonePtr(i.paidAt)
	c.cancelledAt = clonePtr(i.cancelledAt)
	c.lines = make([]Line, len(i.lines))
	for n, l := range i.lines {
		l.SourceID = clonePtr(l.SourceID)
		c.lines[n] = l
	}
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

// Reconstitute rebuilds an Invoice from persisted data. Stored totals are
// taken as-is.
func Reconstitute(
	id, hotelID uuid.UUID,
	bookingID, orderID, guestID *uuid.UUID,
	number string,
	status Status,
	lines []Line,
	subTotal, discountAmount, taxAmount, totalAmount, paidAmount decimal.Decimal,
	vatIncluded bool,
	issuedAt, paidAt, cancelledAt *time.Time,
	version int64,
	createdAt, updatedAt time.Time,
) *Invoice {
	return &Invoice{
		id:             id,
		hotelID:        hotelID,
		bookingID:      bookingID,
		orderID:        orderID,
		guestID:        guestID,
		number:         number,
		status:         status,
		lines:          lines,
		subTotal:       subTotal,
		discountAmount: discountAmount,
		taxAmount:      taxAmount,
		totalAmount:    totalAmount,
		paidAmount:     paidAmount,
		vatIncluded:    vatIncluded,
		issuedAt:       issuedAt,
		paidAt:         paidAt,
		cancelledAt:    cancelledAt,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}
