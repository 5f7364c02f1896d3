//go:build integration

package main_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/events/schema"
	"github.com/hotelcore/service-booking/internal/repository"
)

func createBooking(t *testing.T, svc *application.BookingService, hotelID, roomTypeID uuid.UUID, totalRoom int) *application.BookingDTO {
	t.Helper()
	dto, err := svc.CreateBooking(context.Background(), application.CreateBookingRequest{
		HotelID: hotelID,
		RoomTypes: []application.BookingRoomTypeRequest{{
			RoomTypeID:    roomTypeID,
			TotalRoom:     totalRoom,
			CheckInDate:   "2026-03-01",
			CheckOutDate:  "2026-03-03",
			PricePerNight: decimal.RequireFromString("120.00"),
		}},
	})
	require.NoError(t, err)
	return dto
}

// runStay confirms a single-room booking, assigns roomID and checks it in and out.
func runStay(t *testing.T, svc *application.BookingService, b *application.BookingDTO, roomID uuid.UUID) *application.BookingDTO {
	t.Helper()
	ctx := context.Background()
	_, err := svc.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	dto, err := svc.AssignRoom(ctx, b.ID, application.AssignRoomRequest{
		BookingRoomTypeID: b.RoomTypes[0].ID,
		RoomID:            roomID,
	})
	require.NoError(t, err)
	bookingRoomID := dto.RoomTypes[0].Rooms[0].ID

	_, err = svc.RecordCheckIn(ctx, bookingRoomID, application.StayEventRequest{})
	require.NoError(t, err)
	dto, err = svc.RecordCheckOut(ctx, bookingRoomID, application.StayEventRequest{})
	require.NoError(t, err)
	return dto
}

// TestAssignRoom_ConcurrentNeverExceedsQuota races more assignments than the
// room type allows and checks PostgreSQL keeps the quota.
func TestAssignRoom_ConcurrentNeverExceedsQuota(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	stack := setupServiceStack(t, db, nil)

	hotelID, roomTypeID := uuid.New(), uuid.New()
	b := createBooking(t, stack.Bookings, hotelID, roomTypeID, 2)

	const workers = 6
	rooms := make([]uuid.UUID, workers)
	for i := range rooms {
		rooms[i] = seedRoom(t, db, hotelID, roomTypeID, fmt.Sprintf("%d", 201+i))
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _, roomID := range rooms {
		wg.Add(1)
		go func(roomID uuid.UUID) {
			defer wg.Done()
			_, err := stack.Bookings.AssignRoom(context.Background(), b.ID, application.AssignRoomRequest{
				BookingRoomTypeID: b.RoomTypes[0].ID,
				RoomID:            roomID,
			})
			errs <- err
		}(roomID)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrQuotaExceeded), "unexpected error: %v", err)
	}
	assert.GreaterOrEqual(t, succeeded, 1)

	got, err := stack.Bookings.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, got.RoomTypes[0].AssignedCount, 2)
	assert.Equal(t, succeeded, got.RoomTypes[0].AssignedCount)

	var stored int64
	require.NoError(t, db.Model(&repository.BookingRoomModel{}).Where("booking_id = ?", b.ID).Count(&stored).Error)
	assert.Equal(t, int64(got.RoomTypes[0].AssignedCount), stored)
}

// TestSchema_RejectsOrphanRows checks the child tables refuse rows whose parent
// does not exist.
func TestSchema_RejectsOrphanRows(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	stack := setupServiceStack(t, db, nil)

	hotelID, roomTypeID := uuid.New(), uuid.New()
	b := createBooking(t, stack.Bookings, hotelID, roomTypeID, 1)
	roomID := seedRoom(t, db, hotelID, roomTypeID, "301")

	tests := []struct {
		name  string
		model any
	}{
		{"room of unknown booking", &repository.BookingRoomModel{
			ID: uuid.New(), BookingID: uuid.New(), BookingRoomTypeID: b.RoomTypes[0].ID,
			RoomID: roomID, CreatedAt: time.Now().UTC(),
		}},
		{"room of unknown room type", &repository.BookingRoomModel{
			ID: uuid.New(), BookingID: b.ID, BookingRoomTypeID: uuid.New(),
			RoomID: roomID, CreatedAt: time.Now().UTC(),
		}},
		{"guest of unknown room", &repository.BookingGuestModel{
			ID: uuid.New(), BookingRoomID: uuid.New(), GuestID: uuid.New(),
		}},
		{"line of unknown invoice", &repository.InvoiceLineModel{
			ID: uuid.New(), InvoiceID: uuid.New(), Description: "Room",
			Amount: decimal.RequireFromString("10.00"), SourceType: "room_charge",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, db.Create(tt.model).Error)
		})
	}

	var stored int64
	require.NoError(t, db.Model(&repository.BookingRoomModel{}).Where("booking_id = ?", b.ID).Count(&stored).Error)
	assert.Zero(t, stored)
}

// TestCreateFromBooking_OneActiveInvoice drafts the invoice of a completed
// booking twice and again after cancelling it.
func TestCreateFromBooking_OneActiveInvoice(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	stack := setupServiceStack(t, db, nil)
	ctx := context.Background()

	hotelID, roomTypeID := uuid.New(), uuid.New()
	b := createBooking(t, stack.Bookings, hotelID, roomTypeID, 1)
	done := runStay(t, stack.Bookings, b, seedRoom(t, db, hotelID, roomTypeID, "301"))
	require.Equal(t, "completed", done.Status)

	first, created, err := stack.Invoices.CreateFromBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "240.00", first.SubTotal)
	assert.Equal(t, "264.00", first.TotalAmount)

	again, created, err := stack.Invoices.CreateFromBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	_, err = stack.Invoices.CancelInvoice(ctx, first.ID)
	require.NoError(t, err)

	replacement, created, err := stack.Invoices.CreateFromBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, replacement.ID)

	var active int64
	require.NoError(t, db.Model(&repository.InvoiceModel{}).
		Where("booking_id = ? AND status <> ?", b.ID, "cancelled").
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

// TestBookingCompleted_DraftsInvoice runs a stay end to end over Kafka: the
// completion event is consumed and drafts the booking's invoice.
func TestBookingCompleted_DraftsInvoice(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupServiceStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // consumer group join

	hotelID, roomTypeID := uuid.New(), uuid.New()
	b := createBooking(t, stack.Bookings, hotelID, roomTypeID, 1)
	runStay(t, stack.Bookings, b, seedRoom(t, infra.DB, hotelID, roomTypeID, "401"))

	ce := consumeOneEvent(t, infra.KafkaBrokers, schema.TopicBookingEvents, schema.BookingCompleted, 15*time.Second)
	var completed schema.BookingEvent
	require.NoError(t, ce.ParseData(&completed))
	assert.Equal(t, b.ID, completed.BookingID)
	assert.Equal(t, hotelID, completed.HotelID)
	assert.True(t, decimal.RequireFromString("240.00").Equal(completed.TotalAmount))

	model := waitForInvoice(t, infra.DB, b.ID, 15*time.Second)
	assert.Equal(t, "draft", model.Status)
	assert.True(t, decimal.RequireFromString("264.00").Equal(model.TotalAmount))
}

// TestInvoiceIssued_PublishesEvent checks invoice lifecycle events reach Kafka.
func TestInvoiceIssued_PublishesEvent(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupServiceStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	ctx := context.Background()

	hotelID, orderID := uuid.New(), uuid.New()
	inv, err := stack.Invoices.CreateInvoice(ctx, application.CreateInvoiceRequest{
		HotelID: hotelID,
		OrderID: &orderID,
		Lines: []application.InvoiceLineRequest{{
			Description: "Late checkout",
			Amount:      decimal.RequireFromString("30.00"),
			SourceType:  "surcharge",
		}},
	})
	require.NoError(t, err)

	_, err = stack.Invoices.IssueInvoice(ctx, inv.ID)
	require.NoError(t, err)

	ce := consumeOneEvent(t, infra.KafkaBrokers, schema.TopicInvoiceEvents, schema.InvoiceIssued, 15*time.Second)
	var issued schema.InvoiceEvent
	require.NoError(t, ce.ParseData(&issued))
	assert.Equal(t, inv.ID, issued.InvoiceID)
	assert.Equal(t, inv.InvoiceNumber, issued.InvoiceNumber)
	assert.Equal(t, "issued", issued.Status)
}
