package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/promo"
)

// PromoStore is an in-memory promo.Repository.
type PromoStore struct {
	mu     sync.RWMutex
	promos map[uuid.UUID]*promo.Promotion
}

// NewPromoStore creates an empty PromoStore.
func NewPromoStore() *PromoStore {
	return &PromoStore{promos: make(map[uuid.UUID]*promo.Promotion)}
}

// Save stores a new promotion; codes are unique per hotel.
func (s *PromoStore) Save(_ context.Context, p *promo.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.promos {
		if existing.HotelID() == p.HotelID() && existing.Code() == p.Code() {
			return domain.NewConflictError("promotion code " + p.Code() + " already exists for this hotel")
		}
	}
	s.promos[p.ID()] = p.Clone()
	return nil
}

// Update replaces a stored promotion.
func (s *PromoStore) Update(_ context.Context, p *promo.Promotion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.promos[p.ID()]; !ok {
		return domain.NewNotFoundError("Promotion", p.ID().String())
	}
	s.promos[p.ID()] = p.Clone()
	return nil
}

// FindByID returns a copy of the promotion.
func (s *PromoStore) FindByID(_ context.Context, id uuid.UUID) (*promo.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.promos[id]
	if !ok {
		return nil, domain.NewNotFoundError("Promotion", id.String())
	}
	return p.Clone(), nil
}

// FindByCode returns the promotion of a hotel with the given normalized code.
func (s *PromoStore) FindByCode(_ context.Context, hotelID uuid.UUID, code string) (*promo.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.promos {
		if p.HotelID() == hotelID && p.Code() == code {
			return p.Clone(), nil
		}
	}
	return nil, domain.NewNotFoundError("Promotion", code)
}

// ListActive returns the promotions of a hotel usable at now, by code.
func (s *PromoStore) ListActive(_ context.Context, hotelID uuid.UUID, now time.Time) ([]*promo.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*promo.Promotion, 0)
	for _, p := range s.promos {
		if p.HotelID() == hotelID && p.IsValidAt(now) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code() < out[j].Code() })
	return out, nil
}
