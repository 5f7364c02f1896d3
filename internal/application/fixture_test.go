package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/adapter"
	"github.com/hotelcore/service-booking/internal/common/auth"
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/repository/memory"
)

type publishedEvent struct {
	Topic   string
	Type    string
	Subject string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, eventType, subject string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Type: eventType, Subject: subject, Payload: payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	hotelID    uuid.UUID
	roomTypeID uuid.UUID
	rooms      *memory.RoomDirectory
	orders     *memory.OrderBook
	bookings   *memory.BookingStore
	invoices   *memory.InvoiceStore
	events     *recordingPublisher

	bookingSvc *BookingService
	promoSvc   *PromoService
	invoiceSvc *InvoiceService
	revenueSvc *RevenueService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	f := &fixture{
		hotelID:    uuid.New(),
		roomTypeID: uuid.New(),
		rooms:      memory.NewRoomDirectory(),
		orders:     memory.NewOrderBook(),
		bookings:   memory.NewBookingStore(),
		invoices:   memory.NewInvoiceStore(),
		events:     &recordingPublisher{},
	}
	tx := memory.TxManager{}
	f.bookingSvc = NewBookingService(f.bookings, f.rooms, tx, nil, f.events, logger)
	f.promoSvc = NewPromoService(memory.NewPromoStore(), tx, logger)
	f.invoiceSvc = NewInvoiceService(f.invoices, f.bookings, f.orders, f.promoSvc,
		adapter.NewSequenceGenerator("INV"), tx, f.events, logger, true, time.UTC)
	f.revenueSvc = NewRevenueService(f.invoices, time.UTC, logger)
	return f
}

// addRoom registers a physical room of the fixture's room type.
func (f *fixture) addRoom(number string) uuid.UUID {
	id := uuid.New()
	f.rooms.Add(booking.PhysicalRoom{ID: id, HotelID: f.hotelID, RoomTypeID: f.roomTypeID, Number: number})
	return id
}

// createBooking books totalRoom rooms for two nights at 100.00 with a 50.00
// deposit and a 20.00 discount.
func (f *fixture) createBooking(t *testing.T, totalRoom int) *BookingDTO {
	t.Helper()
	dto, err := f.bookingSvc.CreateBooking(context.Background(), CreateBookingRequest{
		HotelID:        f.hotelID,
		DepositAmount:  decimal.RequireFromString("50.00"),
		DiscountAmount: decimal.RequireFromString("20.00"),
		RoomTypes: []BookingRoomTypeRequest{{
			RoomTypeID:    f.roomTypeID,
			TotalRoom:     totalRoom,
			CheckInDate:   "2026-01-10",
			CheckOutDate:  "2026-01-12",
			PricePerNight: decimal.RequireFromString("100.00"),
		}},
	})
	require.NoError(t, err)
	return dto
}

// completeBooking confirms b, assigns one room and runs the stay.
func (f *fixture) completeBooking(t *testing.T, b *BookingDTO) *BookingDTO {
	t.Helper()
	ctx := context.Background()
	_, err := f.bookingSvc.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)

	dto, err := f.bookingSvc.AssignRoom(ctx, b.ID, AssignRoomRequest{
		BookingRoomTypeID: b.RoomTypes[0].ID,
		RoomID:            f.addRoom("101"),
	})
	require.NoError(t, err)
	roomID := dto.RoomTypes[0].Rooms[0].ID

	in := time.Date(2026, 1, 10, 14, 0, 0, 0, time.UTC)
	out := time.Date(2026, 1, 12, 11, 0, 0, 0, time.UTC)
	_, err = f.bookingSvc.RecordCheckIn(ctx, roomID, StayEventRequest{At: &in})
	require.NoError(t, err)
	dto, err = f.bookingSvc.RecordCheckOut(ctx, roomID, StayEventRequest{At: &out})
	require.NoError(t, err)
	return dto
}

// staffContext returns a context authenticated for the given hotels only.
func staffContext(hotelIDs ...uuid.UUID) context.Context {
	ids := make([]string, len(hotelIDs))
	for i, id := range hotelIDs {
		ids[i] = id.String()
	}
	return auth.ContextWithClaims(context.Background(), &auth.Claims{Role: auth.RoleStaff, HotelIDs: ids})
}
