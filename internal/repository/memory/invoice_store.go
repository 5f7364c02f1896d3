package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/invoice"
)

// InvoiceStore is an in-memory invoice.Repository.
type InvoiceStore struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]*invoice.Invoice
}

// NewInvoiceStore creates an empty InvoiceStore.
func NewInvoiceStore() *InvoiceStore {
	return &InvoiceStore{invoices: make(map[uuid.UUID]*invoice.Invoice)}
}

// Save stores a new invoice. A booking may hold one non-cancelled invoice.
func (s *InvoiceStore) Save(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID()]; ok {
		return domain.NewConflictError("invoice already exists")
	}
	if inv.BookingID() != nil && inv.Status() != invoice.StatusCancelled {
		if _, ok := s.activeByBooking(*inv.BookingID()); ok {
			return domain.NewConflictError("booking already has an active invoice")
		}
	}
	s.invoices[inv.ID()] = inv.Clone()
	return nil
}

// Update replaces an invoice when its stored version is the one it was loaded at.
func (s *InvoiceStore) Update(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.invoices[inv.ID()]
	if !ok {
		return domain.NewNotFoundError("Invoice", inv.ID().String())
	}
	if current.Version() != inv.Version()-1 {
		return domain.NewConflictError("invoice was modified by another transaction")
	}
	s.invoices[inv.ID()] = inv.Clone()
	return nil
}

// FindByID returns a copy of the invoice.
func (s *InvoiceStore) FindByID(_ context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, domain.NewNotFoundError("Invoice", id.String())
	}
	return inv.Clone(), nil
}

// FindActiveByBooking returns the non-cancelled invoice of a booking.
func (s *InvoiceStore) FindActiveByBooking(_ context.Context, bookingID uuid.UUID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.activeByBooking(bookingID)
	if !ok {
		return nil, domain.NewNotFoundError("Invoice for booking", bookingID.String())
	}
	return inv.Clone(), nil
}

// List returns one page of a hotel's invoices, newest report date first.
func (s *InvoiceStore) List(_ context.Context, filter invoice.ListFilter, page, pageSize int) ([]*invoice.Invoice, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter.HotelID, filter.From, filter.To, func(inv *invoice.Invoice) bool {
		return filter.Status == nil || inv.Status() == *filter.Status
	})
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].ReportDate(), matched[j].ReportDate()
		if !a.Equal(b) {
			return a.After(b)
		}
		return matched[i].ID().String() < matched[j].ID().String()
	})

	out := make([]*invoice.Invoice, 0, pageSize)
	for _, inv := range paginate(matched, page, pageSize) {
		out = append(out, inv.Clone())
	}
	return out, int64(len(matched)), nil
}

// FindForRevenue returns every non-cancelled invoice matching filter, oldest first.
func (s *InvoiceStore) FindForRevenue(_ context.Context, filter invoice.RevenueFilter) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(filter.HotelID, filter.From, filter.To, func(inv *invoice.Invoice) bool {
		if inv.Status() == invoice.StatusCancelled {
			return false
		}
		if len(filter.Statuses) == 0 {
			return true
		}
		for _, st := range filter.Statuses {
			if inv.Status() == st {
				return true
			}
		}
		return false
	})
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ReportDate().Before(matched[j].ReportDate())
	})
	out := make([]*invoice.Invoice, len(matched))
	for i, inv := range matched {
		out[i] = inv.Clone()
	}
	return out, nil
}

func (s *InvoiceStore) match(hotelID uuid.UUID, from, to *time.Time, keep func(*invoice.Invoice) bool) []*invoice.Invoice {
	out := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.HotelID() != hotelID || !keep(inv) {
			continue
		}
		d := inv.ReportDate()
		if from != nil && d.Before(*from) {
			continue
		}
		if to != nil && d.After(*to) {
			continue
		}
		out = append(out, inv)
	}
	return out
}

func (s *InvoiceStore) activeByBooking(bookingID uuid.UUID) (*invoice.Invoice, bool) {
	for _, inv := range s.invoices {
		if inv.BookingID() != nil && *inv.BookingID() == bookingID && inv.Status() != invoice.StatusCancelled {
			return inv, true
		}
	}
	return nil, false
}
