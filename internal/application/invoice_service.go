package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
	"github.com/hotelcore/service-booking/internal/domain/order"
	"github.com/hotelcore/service-booking/internal/events/schema"
)

// InvoiceLineRequest is a caller-supplied invoice line.
type InvoiceLineRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	SourceType  string          `json:"source_type"`
	SourceID    *uuid.UUID      `json:"source_id"`
}

// CreateInvoiceRequest holds data to create a draft invoice. VatIncluded
// defaults to the configured value when omitted.
type CreateInvoiceRequest struct {
	HotelID     uuid.UUID            `json:"hotel_id"`
	BookingID   *uuid.UUID           `json:"booking_id"`
	OrderID     *uuid.UUID           `json:"order_id"`
	GuestID     *uuid.UUID           `json:"guest_id"`
	Lines       []InvoiceLineRequest `json:"lines"`
	VatIncluded *bool                `json:"vat_included"`
}

// UpdateInvoiceRequest edits a draft invoice. Removals apply before additions.
type UpdateInvoiceRequest struct {
	AddLines      []InvoiceLineRequest `json:"add_lines"`
	RemoveLineIDs []uuid.UUID          `json:"remove_line_ids"`
	VatIncluded   *bool                `json:"vat_included"`
}

// RecordPaymentRequest holds a payment against an issued invoice.
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	PaidAt *time.Time      `json:"paid_at"`
}

// ApplyPromotionRequest holds the promotion code to apply.
type ApplyPromotionRequest struct {
	Code string `json:"code"`
}

// ListInvoicesRequest holds the query of an invoice listing.
type ListInvoicesRequest struct {
	HotelID  string `form:"hotelId"`
	Status   string `form:"status"`
	From     string `form:"from"`
	To       string `form:"to"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// InvoiceDTO is the API response representation of an invoice.
type InvoiceDTO struct {
	ID             uuid.UUID        `json:"id"`
	HotelID        uuid.UUID        `json:"hotel_id"`
	BookingID      *uuid.UUID       `json:"booking_id,omitempty"`
	OrderID        *uuid.UUID       `json:"order_id,omitempty"`
	GuestID        *uuid.UUID       `json:"guest_id,omitempty"`
	InvoiceNumber  string           `json:"invoice_number"`
	Status         string           `json:"status"`
	Lines          []InvoiceLineDTO `json:"lines"`
	SubTotal       string           `json:"sub_total"`
	DiscountAmount string           `json:"discount_amount"`
	TaxAmount      string           `json:"tax_amount"`
	TotalAmount    string           `json:"total_amount"`
	PaidAmount     string           `json:"paid_amount"`
	Outstanding    string           `json:"outstanding"`
	VatIncluded    bool             `json:"vat_included"`
	IssuedAt       *time.Time       `json:"issued_at,omitempty"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	CancelledAt    *time.Time       `json:"cancelled_at,omitempty"`
	Version        int64            `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// InvoiceLineDTO is one invoice line.
type InvoiceLineDTO struct {
	ID          uuid.UUID  `json:"id"`
	Position    int        `json:"position"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	SourceType  string     `json:"source_type"`
	SourceID    *uuid.UUID `json:"source_id,omitempty"`
}

// InvoiceService handles billing use cases.
type InvoiceService struct {
	repo       invoice.Repository
	bookings   booking.Repository
	orders     order.Reader
	promos     *PromoService
	numbers    invoice.NumberGenerator
	tx         TxManager
	events     EventPublisher
	logger     *zap.Logger
	vatDefault bool
	location   *time.Location
	now        func() time.Time
}

// NewInvoiceService creates a new InvoiceService. vatDefault applies to drafts
// whose caller does not choose; loc interprets calendar-date list bounds.
func NewInvoiceService(
	repo invoice.Repository,
	bookings booking.Repository,
	orders order.Reader,
	promos *PromoService,
	numbers invoice.NumberGenerator,
	tx TxManager,
	events EventPublisher,
	logger *zap.Logger,
	vatDefault bool,
	loc *time.Location,
) *InvoiceService {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceService{
		repo:       repo,
		bookings:   bookings,
		orders:     orders,
		promos:     promos,
		numbers:    numbers,
		tx:         tx,
		events:     events,
		logger:     logger,
		vatDefault: vatDefault,
		location:   loc,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateInvoice creates a draft invoice from caller-supplied lines.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceDTO, error) {
	if err := ensureHotelAccess(ctx, req.HotelID, "Hotel", req.HotelID); err != nil {
		return nil, err
	}
	vat := s.vatDefault
	if req.VatIncluded != nil {
		vat = *req.VatIncluded
	}
	inv, err := invoice.NewDraft(invoice.DraftParams{
		HotelID:     req.HotelID,
		BookingID:   req.BookingID,
		OrderID:     req.OrderID,
		GuestID:     req.GuestID,
		Lines:       toLineInputs(req.Lines),
		VatIncluded: vat,
	}, s.numbers.Next(s.now()))
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, inv)
	}); err != nil {
		return nil, err
	}
	s.logCreated(inv, "manual")
	return toInvoiceDTO(inv), nil
}

// CreateFromBooking drafts the invoice of a booking from its charges, with the
// booking deposit credited as paid. When the booking already has a
// non-cancelled invoice that invoice is returned and created is false.
func (s *InvoiceService) CreateFromBooking(ctx context.Context, bookingID uuid.UUID) (dto *InvoiceDTO, created bool, err error) {
	var inv *invoice.Invoice
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookings.FindByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ensureHotelAccess(ctx, b.HotelID(), "Booking", bookingID); err != nil {
			return err
		}

		existing, err := s.repo.FindActiveByBooking(ctx, bookingID)
		switch {
		case err == nil:
			inv = existing
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if b.Status() == booking.StatusCancelled {
			return domain.NewStateError(domain.CodeInvalidState,
				fmt.Sprintf("booking %s is cancelled and cannot be invoiced", bookingID))
		}

		lines := make([]invoice.LineInput, 0, len(b.ChargeEvents()))
		for _, ev := range b.ChargeEvents() {
			if ev.Amount.IsZero() {
				continue
			}
			lines = append(lines, invoice.LineInput{
				Description: ev.Description,
				Amount:      ev.Amount,
				SourceType:  sourceOf(ev.Kind),
				SourceID:    ev.SourceID,
			})
		}
		id := b.ID()
		draft, err := invoice.NewDraft(invoice.DraftParams{
			HotelID:     b.HotelID(),
			BookingID:   &id,
			GuestID:     b.PrimaryGuestID(),
			Lines:       lines,
			VatIncluded: s.vatDefault,
			PaidAmount:  b.DepositAmount(),
		}, s.numbers.Next(s.now()))
		if err != nil {
			return err
		}
		if err := s.repo.Save(ctx, draft); err != nil {
			return err
		}
		inv, created = draft, true
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		// A concurrent request drafted the invoice first.
		existing, findErr := s.repo.FindActiveByBooking(ctx, bookingID)
		if findErr != nil {
			return nil, false, err
		}
		return toInvoiceDTO(existing), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logCreated(inv, "booking")
	}
	return toInvoiceDTO(inv), created, nil
}

// CreateFromOrder drafts the invoice of a walk-in food and beverage order.
func (s *InvoiceService) CreateFromOrder(ctx context.Context, orderID uuid.UUID) (*InvoiceDTO, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := ensureHotelAccess(ctx, o.HotelID, "Order", orderID); err != nil {
		return nil, err
	}

	items := o.BillableItems()
	if len(items) == 0 {
		return nil, domain.NewValidationError(map[string][]string{
			"order_id": {"order has no billable items"},
		})
	}
	lines := make([]invoice.LineInput, 0, len(items))
	for _, it := range items {
		id := it.ID
		lines = append(lines, invoice.LineInput{
			Description: fmt.Sprintf("%s x %d", it.Description, it.Quantity),
			Amount:      it.Amount(),
			SourceType:  invoice.SourceFnb,
			SourceID:    &id,
		})
	}
	inv, err := invoice.NewDraft(invoice.DraftParams{
		HotelID:     o.HotelID,
		OrderID:     &o.ID,
		GuestID:     o.GuestID,
		Lines:       lines,
		VatIncluded: s.vatDefault,
	}, s.numbers.Next(s.now()))
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, inv)
	}); err != nil {
		return nil, err
	}
	s.logCreated(inv, "order")
	return toInvoiceDTO(inv), nil
}

// GetInvoice returns an invoice by ID.
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureHotelAccess(ctx, inv.HotelID(), "Invoice", id); err != nil {
		return nil, err
	}
	return toInvoiceDTO(inv), nil
}

// ListInvoices returns one page of a hotel's invoices.
func (s *InvoiceService) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]*InvoiceDTO, int64, int, int, error) {
	errs := domain.Fields{}
	filter := invoice.ListFilter{
		HotelID: parseHotelID(errs, req.HotelID),
		From:    parseDate(errs, "from", req.From, s.location, false),
		To:      parseDate(errs, "to", req.To, s.location, true),
	}
	rangeError(errs, filter.From, filter.To)
	if req.Status != "" {
		st, err := invoice.ParseStatus(req.Status)
		if err != nil {
			errs.Add("status", err.Error())
		}
		filter.Status = &st
	}
	if err := errs.Err(); err != nil {
		return nil, 0, 0, 0, err
	}
	if err := ensureHotelAccess(ctx, filter.HotelID, "Hotel", filter.HotelID); err != nil {
		return nil, 0, 0, 0, err
	}

	page, size := normalizePage(req.Page, req.PageSize)
	invoices, total, err := s.repo.List(ctx, filter, page, size)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	dtos := make([]*InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	return dtos, total, page, size, nil
}

// UpdateInvoice edits the lines and VAT flag of a draft invoice.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceDTO, error) {
	inv, err := s.update(ctx, id, func(inv *invoice.Invoice) error {
		if len(req.RemoveLineIDs) > 0 {
			if err := inv.RemoveLines(req.RemoveLineIDs); err != nil {
				return err
			}
		}
		if len(req.AddLines) > 0 {
			if err := inv.AddLines(toLineInputs(req.AddLines)); err != nil {
				return err
			}
		}
		if req.VatIncluded != nil {
			return inv.SetVatIncluded(*req.VatIncluded)
		}
		return inv.RequireDraft()
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceDTO(inv), nil
}

// ApplyPromotion validates code against the invoice's hotel and appends the
// discount it yields on the subtotal left after earlier discounts.
func (s *InvoiceService) ApplyPromotion(ctx context.Context, id uuid.UUID, req ApplyPromotionRequest) (*InvoiceDTO, error) {
	inv, err := s.update(ctx, id, func(inv *invoice.Invoice) error {
		if err := inv.RequireDraft(); err != nil {
			return err
		}
		p, err := s.promos.Resolve(ctx, inv.HotelID(), req.Code, s.now())
		if err != nil {
			return err
		}
		if err := inv.ApplyDiscount(p.ID(), p.Label(), p.ComputeDiscount(inv.Discountable())); err != nil {
			return err
		}
		s.logger.Info("promotion applied",
			zap.String("invoice_id", inv.ID().String()),
			zap.String("code", p.Code()),
			zap.String("discount_amount", formatAmount(inv.DiscountAmount())),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceDTO(inv), nil
}

// IssueInvoice finalizes a draft invoice.
func (s *InvoiceService) IssueInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.update(ctx, id, func(inv *invoice.Invoice) error {
		return inv.Issue()
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceDTO(inv), nil
}

// RecordPayment registers a payment against an issued invoice.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, req RecordPaymentRequest) (*InvoiceDTO, error) {
	at := s.now()
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		at = req.PaidAt.UTC()
	}
	inv, err := s.update(ctx, id, func(inv *invoice.Invoice) error {
		return inv.RecordPayment(req.Amount, at)
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceDTO(inv), nil
}

// CancelInvoice cancels an unpaid invoice.
func (s *InvoiceService) CancelInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDTO, error) {
	inv, err := s.update(ctx, id, func(inv *invoice.Invoice) error {
		return inv.Cancel()
	})
	if err != nil {
		return nil, err
	}
	return toInvoiceDTO(inv), nil
}

func (s *InvoiceService) update(ctx context.Context, id uuid.UUID, change func(*invoice.Invoice) error) (*invoice.Invoice, error) {
	var (
		inv    *invoice.Invoice
		before invoice.Status
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if inv, err = s.repo.FindByID(ctx, id); err != nil {
			return err
		}
		if err := ensureHotelAccess(ctx, inv.HotelID(), "Invoice", id); err != nil {
			return err
		}
		before = inv.Status()
		if err := change(inv); err != nil {
			return err
		}
		inv.IncrementVersion()
		return s.repo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	if inv.Status() != before {
		s.announce(ctx, inv, before)
	}
	return inv, nil
}

func (s *InvoiceService) announce(ctx context.Context, inv *invoice.Invoice, before invoice.Status) {
	s.logger.Info("invoice status changed",
		zap.String("invoice_id", inv.ID().String()),
		zap.String("invoice_number", inv.Number()),
		zap.String("from", string(before)),
		zap.String("to", string(inv.Status())),
	)

	var eventType string
	switch inv.Status() {
	case invoice.StatusIssued:
		eventType = schema.InvoiceIssued
	case invoice.StatusPaid:
		eventType = schema.InvoicePaid
	case invoice.StatusCancelled:
		eventType = schema.InvoiceCancelled
	default:
		return
	}
	publish(ctx, s.events, s.logger, schema.TopicInvoiceEvents, eventType, inv.ID().String(), schema.InvoiceEvent{
		InvoiceID:     inv.ID(),
		InvoiceNumber: inv.Number(),
		HotelID:       inv.HotelID(),
		BookingID:     inv.BookingID(),
		OrderID:       inv.OrderID(),
		Status:        string(inv.Status()),
		TotalAmount:   inv.TotalAmount(),
		PaidAmount:    inv.PaidAmount(),
		OccurredAt:    s.now(),
	})
}

func (s *InvoiceService) logCreated(inv *invoice.Invoice, origin string) {
	s.logger.Info("invoice drafted",
		zap.String("invoice_id", inv.ID().String()),
		zap.String("invoice_number", inv.Number()),
		zap.String("origin", origin),
		zap.String("total_amount", formatAmount(inv.TotalAmount())),
	)
}

func sourceOf(kind booking.ChargeKind) invoice.SourceType {
	switch kind {
	case booking.ChargeRoom:
		return invoice.SourceRoomCharge
	case booking.ChargeDiscount:
		return invoice.SourceDiscount
	default:
		return invoice.SourceSurcharge
	}
}

func toLineInputs(reqs []InvoiceLineRequest) []invoice.LineInput {
	out := make([]invoice.LineInput, len(reqs))
	for i, r := range reqs {
		out[i] = invoice.LineInput{
			Description: r.Description,
			Amount:      r.Amount,
			SourceType:  invoice.SourceType(r.SourceType),
			SourceID:    r.SourceID,
		}
	}
	return out
}

func toInvoiceDTO(inv *invoice.Invoice) *InvoiceDTO {
	lines := make([]InvoiceLineDTO, len(inv.Lines()))
	for i, l := range inv.Lines() {
		lines[i] = InvoiceLineDTO{
			ID:          l.ID,
			Position:    l.Position,
			Description: l.Description,
			Amount:      formatAmount(l.Amount),
			SourceType:  string(l.SourceType),
			SourceID:    l.SourceID,
		}
	}
	return &InvoiceDTO{
		ID:             inv.ID(),
		HotelID:        inv.HotelID(),
		BookingID:      inv.BookingID(),
		OrderID:        inv.OrderID(),
		GuestID:        inv.GuestID(),
		InvoiceNumber:  inv.Number(),
		Status:         string(inv.Status()),
		Lines:          lines,
		SubTotal:       formatAmount(inv.SubTotal()),
		DiscountAmount: formatAmount(inv.DiscountAmount()),
		TaxAmount:      formatAmount(inv.TaxAmount()),
		TotalAmount:    formatAmount(inv.TotalAmount()),
		PaidAmount:     formatAmount(inv.PaidAmount()),
		Outstanding:    formatAmount(inv.Outstanding()),
		VatIncluded:    inv.VatIncluded(),
		IssuedAt:       inv.IssuedAt(),
		PaidAt:         inv.PaidAt(),
		CancelledAt:    inv.CancelledAt(),
		Version:        inv.Version(),
		CreatedAt:      inv.CreatedAt(),
		UpdatedAt:      inv.UpdatedAt(),
	}
}
