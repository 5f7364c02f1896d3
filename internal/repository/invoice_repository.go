package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hotelcore/service-booking/internal/common/database"
	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
)

// reportDate is the column expression invoices are dated by in listings and
// revenue reports.
const reportDate = "COALESCE(issued_at, created_at)"

// InvoiceModel is the GORM persistence model for the invoices table.
type InvoiceModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	HotelID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	BookingID      *uuid.UUID      `gorm:"type:uuid"`
	OrderID        *uuid.UUID      `gorm:"type:uuid"`
	GuestID        *uuid.UUID      `gorm:"type:uuid"`
	InvoiceNumber  string          `gorm:"type:varchar(40);not null"`
	Status         string          `gorm:"type:varchar(20);not null;default:'draft'"`
	SubTotal       decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	PaidAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	VatIncluded    bool            `gorm:"not null"`
	IssuedAt       *time.Time      `gorm:"type:timestamptz"`
	PaidAt         *time.Time      `gorm:"type:timestamptz"`
	CancelledAt    *time.Time      `gorm:"type:timestamptz"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (InvoiceModel) TableName() string { return "invoices" }

// InvoiceLineModel is the GORM model for the invoice_lines table.
type InvoiceLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	SourceType  string          `gorm:"type:varchar(20);not null"`
	SourceID    *uuid.UUID      `gorm:"type:uuid"`
}

// TableName specifies the table name for GORM.
func (InvoiceLineModel) TableName() string { return "invoice_lines" }

// InvoiceRepositoryImpl is the GORM-based implementation of invoice.Repository.
type InvoiceRepositoryImpl struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new GORM-based invoice repository.
func NewInvoiceRepository(db *gorm.DB) *InvoiceRepositoryImpl {
	return &InvoiceRepositoryImpl{db: db}
}

// Save persists a new invoice with its lines. A second active invoice for the
// same booking violates a partial unique index and is reported as Conflict.
func (r *InvoiceRepositoryImpl) Save(ctx context.Context, inv *invoice.Invoice) error {
	db := database.Conn(ctx, r.db)
	if err := db.Create(toInvoiceModel(inv)).Error; err != nil {
		return translate(err, "booking already has an active invoice")
	}
	return r.insertLines(db, inv)
}

// Update persists changes to an existing invoice with optimistic locking.
// Lines are replaced wholesale.
func (r *InvoiceRepositoryImpl) Update(ctx context.Context, inv *invoice.Invoice) error {
	db := database.Conn(ctx, r.db)
	m := toInvoiceModel(inv)

	result := db.Model(&InvoiceModel{}).
		Where("id = ? AND version = ?", inv.ID(), inv.Version()-1).
		Updates(map[string]interface{}{
			"status":          m.Status,
			"sub_total":       m.SubTotal,
			"discount_amount": m.DiscountAmount,
			"tax_amount":      m.TaxAmount,
			"total_amount":    m.TotalAmount,
			"paid_amount":     m.PaidAmount,
			"vat_included":    m.VatIncluded,
			"issued_at":       m.IssuedAt,
			"paid_at":         m.PaidAt,
			"cancelled_at":    m.CancelledAt,
			"version":         m.Version,
			"updated_at":      m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("invoice was modified by another transaction")
	}

	if err := db.Where("invoice_id = ?", inv.ID()).Delete(&InvoiceLineModel{}).Error; err != nil {
		return err
	}
	return r.insertLines(db, inv)
}

// FindByID retrieves an invoice with its lines.
func (r *InvoiceRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	db := database.Conn(ctx, r.db)
	var model InvoiceModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Invoice", id.String())
		}
		return nil, err
	}
	out, err := r.hydrate(db, []InvoiceModel{model})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// FindActiveByBooking retrieves the non-cancelled invoice of a booking.
func (r *InvoiceRepositoryImpl) FindActiveByBooking(ctx context.Context, bookingID uuid.UUID) (*invoice.Invoice, error) {
	db := database.Conn(ctx, r.db)
	var model InvoiceModel
	if err := db.Where("booking_id = ? AND status <> ?", bookingID, string(invoice.StatusCancelled)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Invoice for booking", bookingID.String())
		}
		return nil, err
	}
	out, err := r.hydrate(db, []InvoiceModel{model})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// List retrieves one page of a hotel's invoices, newest report date first.
func (r *InvoiceRepositoryImpl) List(ctx context.Context, filter invoice.ListFilter, page, pageSize int) ([]*invoice.Invoice, int64, error) {
	db := database.Conn(ctx, r.db)
	q := db.Model(&InvoiceModel{}).Where("hotel_id = ?", filter.HotelID)
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	q = withinReportRange(q, filter.From, filter.To)
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []InvoiceModel
	if err := q.Order(reportDate + " DESC").Order("id").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	invoices, err := r.hydrate(db, models)
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// FindForRevenue retrieves every non-cancelled invoice matching filter.
func (r *InvoiceRepositoryImpl) FindForRevenue(ctx context.Context, filter invoice.RevenueFilter) ([]*invoice.Invoice, error) {
	db := database.Conn(ctx, r.db)
	q := db.Model(&InvoiceModel{}).
		Where("hotel_id = ? AND status <> ?", filter.HotelID, string(invoice.StatusCancelled))
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	q = withinReportRange(q, filter.From, filter.To)

	var models []InvoiceModel
	if err := q.Order(reportDate).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.hydrate(db, models)
}

func withinReportRange(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where(reportDate+" >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where(reportDate+" <= ?", to.UTC())
	}
	return q
}

func (r *InvoiceRepositoryImpl) insertLines(db *gorm.DB, inv *invoice.Invoice) error {
	if len(inv.Lines()) == 0 {
		return nil
	}
	models := make([]InvoiceLineModel, len(inv.Lines()))
	for i, l := range inv.Lines() {
		models[i] = InvoiceLineModel{
			ID:          l.ID,
			InvoiceID:   inv.ID(),
			Position:    l.Position,
			Description: l.Description,
			Amount:      l.Amount,
			SourceType:  string(l.SourceType),
			SourceID:    l.SourceID,
		}
	}
	return db.Create(&models).Error
}

func (r *InvoiceRepositoryImpl) hydrate(db *gorm.DB, models []InvoiceModel) ([]*invoice.Invoice, error) {
	if len(models) == 0 {
		return []*invoice.Invoice{}, nil
	}
	ids := make([]uuid.UUID, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	var lines []InvoiceLineModel
	if err := db.Where("invoice_id IN ?", ids).Order("invoice_id, position").Find(&lines).Error; err != nil {
		return nil, err
	}
	byInvoice := make(map[uuid.UUID][]invoice.Line, len(models))
	for _, l := range lines {
		byInvoice[l.InvoiceID] = append(byInvoice[l.InvoiceID], invoice.Line{
			ID:          l.ID,
			Position:    l.Position,
			Description: l.Description,
			Amount:      l.Amount,
			SourceType:  invoice.SourceType(l.SourceType),
			SourceID:    l.SourceID,
		})
	}

	out := make([]*invoice.Invoice, len(models))
	for i := range models {
		m := &models[i]
		out[i] = invoice.Reconstitute(
			m.ID, m.HotelID, m.BookingID, m.OrderID, m.GuestID,
			m.InvoiceNumber, invoice.Status(m.Status), byInvoice[m.ID],
			m.SubTotal, m.DiscountAmount, m.TaxAmount, m.TotalAmount, m.PaidAmount,
			m.VatIncluded, m.IssuedAt, m.PaidAt, m.CancelledAt,
			m.Version, m.CreatedAt, m.UpdatedAt,
		)
	}
	return out, nil
}

func toInvoiceModel(inv *invoice.Invoice) *InvoiceModel {
	return &InvoiceModel{
		ID:             inv.ID(),
		HotelID:        inv.HotelID(),
		BookingID:      inv.BookingID(),
		OrderID:        inv.OrderID(),
		GuestID:        inv.GuestID(),
		InvoiceNumber:  inv.Number(),
		Status:         string(inv.Status()),
		SubTotal:       inv.SubTotal(),
		DiscountAmount: inv.DiscountAmount(),
		TaxAmount:      inv.TaxAmount(),
		TotalAmount:    inv.TotalAmount(),
		PaidAmount:     inv.PaidAmount(),
		VatIncluded:    inv.VatIncluded(),
		IssuedAt:       inv.IssuedAt(),
		PaidAt:         inv.PaidAt(),
		CancelledAt:    inv.CancelledAt(),
		Version:        inv.Version(),
		CreatedAt:      inv.CreatedAt(),
		UpdatedAt:      inv.UpdatedAt(),
	}
}
