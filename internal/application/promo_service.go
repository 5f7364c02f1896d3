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
	promoDomain "github.com/hotelcore/service-booking/internal/domain/promo"
)

// CreatePromotionRequest holds data to create a promotion. Dates accept
// YYYY-MM-DD or RFC3339; a calendar end date covers the whole day.
type CreatePromotionRequest struct {
	HotelID      uuid.UUID       `json:"hotel_id"`
	Code         string          `json:"code"`
	Description  string          `json:"description"`
	Value        decimal.Decimal `json:"value"`
	IsPercentage bool            `json:"is_percentage"`
	StartDate    string          `json:"start_date"`
	EndDate      string          `json:"end_date"`
}

// ValidatePromotionRequest holds data to validate a promotion code. Amount is
// optional; when set the discount against it is returned.
type ValidatePromotionRequest struct {
	HotelID uuid.UUID        `json:"hotel_id"`
	Code    string           `json:"code"`
	Amount  *decimal.Decimal `json:"amount"`
}

// PromotionDTO is the API response representation of a promotion.
type PromotionDTO struct {
	ID           uuid.UUID `json:"id"`
	HotelID      uuid.UUID `json:"hotel_id"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
	Value        string    `json:"value"`
	IsPercentage bool      `json:"is_percentage"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// PromotionValidationDTO is the result of validating a promotion code.
type PromotionValidationDTO struct {
	Valid     bool          `json:"valid"`
	Promotion *PromotionDTO `json:"promotion"`
	Discount  string        `json:"discount,omitempty"`
}

// PromoService handles promotion use cases.
type PromoService struct {
	repo   promoDomain.Repository
	tx     TxManager
	logger *zap.Logger
	now    func() time.Time
}

// NewPromoService creates a new PromoService.
func NewPromoService(repo promoDomain.Repository, tx TxManager, logger *zap.Logger) *PromoService {
	return &PromoService{repo: repo, tx: tx, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreatePromotion creates a new active promotion for a hotel.
func (s *PromoService) CreatePromotion(ctx context.Context, req CreatePromotionRequest) (*PromotionDTO, error) {
	if err := ensureHotelAccess(ctx, req.HotelID, "Hotel", req.HotelID); err != nil {
		return nil, err
	}

	errs := domain.Fields{}
	start := parseDate(errs, "start_date", req.StartDate, time.UTC, false)
	end := parseDate(errs, "end_date", req.EndDate, time.UTC, true)
	if start == nil && req.StartDate == "" {
		errs.Add("start_date", "is required")
	}
	if end == nil && req.EndDate == "" {
		errs.Add("end_date", "is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	p, err := promoDomain.NewPromotion(req.HotelID, req.Code, req.Description, req.Value, req.IsPercentage, *start, *end)
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, p)
	}); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save promotion: %w", err)
	}

	s.logger.Info("promotion created",
		zap.String("promotion_id", p.ID().String()),
		zap.String("hotel_id", p.HotelID().String()),
		zap.String("code", p.Code()),
	)
	return toPromotionDTO(p), nil
}

// Resolve returns the promotion behind code when it is usable at now.
func (s *PromoService) Resolve(ctx context.Context, hotelID uuid.UUID, code string, now time.Time) (*promoDomain.Promotion, error) {
	normalized := promoDomain.NormalizeCode(code)
	if normalized == "" {
		return nil, domain.NewValidationError(map[string][]string{"code": {"is required"}})
	}
	p, err := s.repo.FindByCode(ctx, hotelID, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, promoDomain.InvalidCodeError(normalized)
		}
		return nil, err
	}
	if !p.IsValidAt(now) {
		return nil, promoDomain.InvalidCodeError(normalized)
	}
	return p, nil
}

// ValidatePromotion checks a code and, when an amount is given, prices it.
func (s *PromoService) ValidatePromotion(ctx context.Context, req ValidatePromotionRequest) (*PromotionValidationDTO, error) {
	if err := ensureHotelAccess(ctx, req.HotelID, "Hotel", req.HotelID); err != nil {
		return nil, err
	}
	p, err := s.Resolve(ctx, req.HotelID, req.Code, s.now())
	if err != nil {
		return nil, err
	}
	out := &PromotionValidationDTO{Valid: true, Promotion: toPromotionDTO(p)}
	if req.Amount != nil {
		out.Discount = formatAmount(p.ComputeDiscount(*req.Amount))
	}
	return out, nil
}

// ListActivePromotions returns the promotions of a hotel usable right now.
func (s *PromoService) ListActivePromotions(ctx context.Context, rawHotelID string) ([]*PromotionDTO, error) {
	errs := domain.Fields{}
	hotelID := parseHotelID(errs, rawHotelID)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if err := ensureHotelAccess(ctx, hotelID, "Hotel", hotelID); err != nil {
		return nil, err
	}

	promos, err := s.repo.ListActive(ctx, hotelID, s.now())
	if err != nil {
		return nil, err
	}
	dtos := make([]*PromotionDTO, len(promos))
	for i, p := range promos {
		dtos[i] = toPromotionDTO(p)
	}
	return dtos, nil
}

// DeactivatePromotion switches a promotion off.
func (s *PromoService) DeactivatePromotion(ctx context.Context, id uuid.UUID) (*PromotionDTO, error) {
	var p *promoDomain.Promotion
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.repo.FindByID(ctx, id); err != nil {
			return err
		}
		if err := ensureHotelAccess(ctx, p.HotelID(), "Promotion", id); err != nil {
			return err
		}
		if !p.IsActive() {
			return nil
		}
		p.Deactivate()
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("promotion deactivated", zap.String("promotion_id", id.String()))
	return toPromotionDTO(p), nil
}

func toPromotionDTO(p *promoDomain.Promotion) *PromotionDTO {
	return &PromotionDTO{
		ID:           p.ID(),
		HotelID:      p.HotelID(),
		Code:         p.Code(),
		Description:  p.Description(),
		Value:        p.Value().String(),
		IsPercentage: p.IsPercentage(),
		StartDate:    p.StartDate(),
		EndDate:      p.EndDate(),
		IsActive:     p.IsActive(),
		CreatedAt:    p.CreatedAt(),
	}
}
