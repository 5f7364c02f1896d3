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
	promoDomain "github.com/hotelcore/service-booking/internal/domain/promo"
)

// PromotionModel is the GORM model for the promotions table.
type PromotionModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	HotelID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_promotions_hotel_code"`
	Code         string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_promotions_hotel_code"`
	Description  string          `gorm:"type:text"`
	Value        decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	IsPercentage bool            `gorm:"not null"`
	StartDate    time.Time       `gorm:"type:timestamptz;not null"`
	EndDate      time.Time       `gorm:"type:timestamptz;not null"`
	IsActive     bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt    time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (PromotionModel) TableName() string { return "promotions" }

// GormPromoRepository implements promo.Repository using GORM.
type GormPromoRepository struct {
	db *gorm.DB
}

// NewGormPromoRepository creates a new GormPromoRepository.
func NewGormPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// Save persists a new promotion.
func (r *GormPromoRepository) Save(ctx context.Context, p *promoDomain.Promotion) error {
	if err := database.Conn(ctx, r.db).Create(toPromotionModel(p)).Error; err != nil {
		return translate(err, "promotion code "+p.Code()+" already exists for this hotel")
	}
	return nil
}

// Update updates a promotion.
func (r *GormPromoRepository) Update(ctx context.Context, p *promoDomain.Promotion) error {
	return database.Conn(ctx, r.db).Save(toPromotionModel(p)).Error
}

// FindByID returns a promotion by ID.
func (r *GormPromoRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.Promotion, error) {
	var model PromotionModel
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Promotion", id.String())
		}
		return nil, err
	}
	return toPromotionDomain(&model), nil
}

// FindByCode returns the promotion of a hotel with the given normalized code.
func (r *GormPromoRepository) FindByCode(ctx context.Context, hotelID uuid.UUID, code string) (*promoDomain.Promotion, error) {
	var model PromotionModel
	if err := database.Conn(ctx, r.db).
		Where("hotel_id = ? AND code = ?", hotelID, code).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Promotion", code)
		}
		return nil, err
	}
	return toPromotionDomain(&model), nil
}

// ListActive returns the promotions of a hotel usable at now.
func (r *GormPromoRepository) ListActive(ctx context.Context, hotelID uuid.UUID, now time.Time) ([]*promoDomain.Promotion, error) {
	var models []PromotionModel
	if err := database.Conn(ctx, r.db).
		Where("hotel_id = ? AND is_active", hotelID).
		Where("start_date <= ? AND end_date >= ?", now, now).
		Order("code").
		Find(&models).Error; err != nil {
		return nil, err
	}

	promos := make([]*promoDomain.Promotion, len(models))
	for i := range models {
		promos[i] = toPromotionDomain(&models[i])
	}
	return promos, nil
}

func toPromotionModel(p *promoDomain.Promotion) *PromotionModel {
	return &PromotionModel{
		ID:           p.ID(),
		HotelID:      p.HotelID(),
		Code:         p.Code(),
		Description:  p.Description(),
		Value:        p.Value(),
		IsPercentage: p.IsPercentage(),
		StartDate:    p.StartDate(),
		EndDate:      p.EndDate(),
		IsActive:     p.IsActive(),
		CreatedAt:    p.CreatedAt(),
		UpdatedAt:    p.UpdatedAt(),
	}
}

func toPromotionDomain(m *PromotionModel) *promoDomain.Promotion {
	return promoDomain.Reconstruct(
		m.ID, m.HotelID, m.Code, m.Description, m.Value, m.IsPercentage,
		m.StartDate, m.EndDate, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
}
