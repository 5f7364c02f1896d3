package saga

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
)

// InvoiceOperations are the billing use cases a settlement drives.
type InvoiceOperations interface {
	CreateFromBooking(ctx context.Context, bookingID uuid.UUID) (*application.InvoiceDTO, bool, error)
	ApplyPromotion(ctx context.Context, id uuid.UUID, req application.ApplyPromotionRequest) (*application.InvoiceDTO, error)
	IssueInvoice(ctx context.Context, id uuid.UUID) (*application.InvoiceDTO, error)
	CancelInvoice(ctx context.Context, id uuid.UUID) (*application.InvoiceDTO, error)
}

// SettleRequest holds the options of a booking settlement.
type SettleRequest struct {
	PromotionCode string `json:"promotion_code"`
}

// SettlementService turns a booking into an issued invoice in one call:
// draft from the booking's charges, optionally apply a promotion, then issue.
type SettlementService struct {
	invoices InvoiceOperations
	logger   *zap.Logger
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(invoices InvoiceOperations, logger *zap.Logger) *SettlementService {
	return &SettlementService{invoices: invoices, logger: logger}
}

// Settle runs the settlement saga for bookingID. A draft created by this run
// is cancelled when a later step fails; a pre-existing invoice is left alone.
func (s *SettlementService) Settle(ctx context.Context, bookingID uuid.UUID, req SettleRequest) (*application.InvoiceDTO, error) {
	var (
		inv     *application.InvoiceDTO
		created bool
	)

	sg := NewSaga("settle_booking", s.logger)

	sg.AddStep(SagaStep{
		Name: "create_invoice",
		Execute: func(ctx context.Context) error {
			var err error
			inv, created, err = s.invoices.CreateFromBooking(ctx, bookingID)
			return err
		},
		Compensate: func(ctx context.Context) error {
			if !created {
				return nil
			}
			_, err := s.invoices.CancelInvoice(ctx, inv.ID)
			return err
		},
	})

	sg.AddStep(SagaStep{
		Name: "apply_promotion",
		Execute: func(ctx context.Context) error {
			if strings.TrimSpace(req.PromotionCode) == "" {
				return nil
			}
			updated, err := s.invoices.ApplyPromotion(ctx, inv.ID, application.ApplyPromotionRequest{Code: req.PromotionCode})
			if err != nil {
				return err
			}
			inv = updated
			return nil
		},
	})

	sg.AddStep(SagaStep{
		Name: "issue_invoice",
		Execute: func(ctx context.Context) error {
			if inv.Status != string(invoice.StatusDraft) {
				return nil
			}
			issued, err := s.invoices.IssueInvoice(ctx, inv.ID)
			if err != nil {
				return err
			}
			inv = issued
			return nil
		},
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("booking settled",
		zap.String("booking_id", bookingID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("status", inv.Status),
		zap.String("total_amount", inv.TotalAmount),
	)
	return inv, nil
}
