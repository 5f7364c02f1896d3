package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/events/schema"
)

// CreateBookingRequest holds data to create a reservation.
type CreateBookingRequest struct {
	HotelID        uuid.UUID                `json:"hotel_id"`
	PrimaryGuestID *uuid.UUID               `json:"primary_guest_id"`
	DepositAmount  decimal.Decimal          `json:"deposit_amount"`
	DiscountAmount decimal.Decimal          `json:"discount_amount"`
	RoomTypes      []BookingRoomTypeRequest `json:"room_types"`
}

// BookingRoomTypeRequest is one requested room category. Dates are calendar
// dates (YYYY-MM-DD).
type BookingRoomTypeRequest struct {
	RoomTypeID    uuid.UUID       `json:"room_type_id"`
	TotalRoom     int             `json:"total_room"`
	CheckInDate   string          `json:"check_in_date"`
	CheckOutDate  string          `json:"check_out_date"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
}

// AssignRoomRequest assigns a physical room to a booking room type.
type AssignRoomRequest struct {
	BookingRoomTypeID uuid.UUID   `json:"booking_room_type_id"`
	RoomID            uuid.UUID   `json:"room_id"`
	GuestIDs          []uuid.UUID `json:"guest_ids"`
}

// StayEventRequest records a check-in or check-out. At defaults to now.
type StayEventRequest struct {
	At *time.Time `json:"at"`
}

// CancelBookingRequest holds the cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// AddSurchargeRequest holds an extra charge.
type AddSurchargeRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// RecordDepositRequest holds a deposit payment.
type RecordDepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ListBookingsRequest holds the query of a booking listing.
type ListBookingsRequest struct {
	HotelID  string `form:"hotelId"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// BookingDTO is the API response representation of a booking.
type BookingDTO struct {
	ID             uuid.UUID            `json:"id"`
	HotelID        uuid.UUID            `json:"hotel_id"`
	PrimaryGuestID *uuid.UUID           `json:"primary_guest_id,omitempty"`
	Status         string               `json:"status"`
	TotalAmount    string               `json:"total_amount"`
	DepositAmount  string               `json:"deposit_amount"`
	DiscountAmount string               `json:"discount_amount"`
	LeftAmount     string               `json:"left_amount"`
	CancelReason   string               `json:"cancel_reason,omitempty"`
	ConfirmedAt    *time.Time           `json:"confirmed_at,omitempty"`
	CheckedInAt    *time.Time           `json:"checked_in_at,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
	RoomTypes      []BookingRoomTypeDTO `json:"room_types"`
	Surcharges     []SurchargeDTO       `json:"surcharges"`
	Version        int64                `json:"version"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// BookingRoomTypeDTO is a requested room category with its assignments.
type BookingRoomTypeDTO struct {
	ID            uuid.UUID        `json:"id"`
	RoomTypeID    uuid.UUID        `json:"room_type_id"`
	TotalRoom     int              `json:"total_room"`
	AssignedCount int              `json:"assigned_count"`
	CheckInDate   string           `json:"check_in_date"`
	CheckOutDate  string           `json:"check_out_date"`
	Nights        int              `json:"nights"`
	PricePerNight string           `json:"price_per_night"`
	Rooms         []BookingRoomDTO `json:"rooms"`
}

// BookingRoomDTO is an assigned physical room.
type BookingRoomDTO struct {
	ID           uuid.UUID   `json:"id"`
	RoomID       uuid.UUID   `json:"room_id"`
	CheckedInAt  *time.Time  `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time  `json:"checked_out_at,omitempty"`
	GuestIDs     []uuid.UUID `json:"guest_ids"`
}

// SurchargeDTO is an extra charge of a stay.
type SurchargeDTO struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Amount      string    `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// BookingService handles reservation lifecycle use cases.
type BookingService struct {
	repo   booking.Repository
	rooms  booking.RoomDirectory
	tx     TxManager
	locker AssignmentLocker
	events EventPublisher
	logger *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo booking.Repository,
	rooms booking.RoomDirectory,
	tx TxManager,
	locker AssignmentLocker,
	events EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{repo: repo, rooms: rooms, tx: tx, locker: locker, events: events, logger: logger}
}

// CreateBooking validates and stores a new pending reservation.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*BookingDTO, error) {
	if err := ensureHotelAccess(ctx, req.HotelID, "Hotel", req.HotelID); err != nil {
		return nil, err
	}

	errs := domain.Fields{}
	params := booking.CreateParams{
		HotelID:        req.HotelID,
		PrimaryGuestID: req.PrimaryGuestID,
		DepositAmount:  req.DepositAmount,
		DiscountAmount: req.DiscountAmount,
	}
	for i, rt := range req.RoomTypes {
		prefix := fmt.Sprintf("room_types[%d].", i)
		params.RoomTypes = append(params.RoomTypes, booking.RoomTypeRequest{
			RoomTypeID:    rt.RoomTypeID,
			TotalRoom:     rt.TotalRoom,
			CheckInDate:   parseCalendarDate(errs, prefix+"check_in_date", rt.CheckInDate),
			CheckOutDate:  parseCalendarDate(errs, prefix+"check_out_date", rt.CheckOutDate),
			PricePerNight: rt.PricePerNight,
		})
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	b, err := booking.NewBooking(params)
	if err != nil {
		return nil, err
	}
	if err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, b)
	}); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("booking created",
		zap.String("booking_id", b.ID().String()),
		zap.String("hotel_id", b.HotelID().String()),
		zap.String("total_amount", formatAmount(b.TotalAmount())),
	)
	return toBookingDTO(b), nil
}

// GetBooking returns a booking by ID.
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ensureHotelAccess(ctx, b.HotelID(), "Booking", id); err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// ListBookings returns one page of a hotel's bookings.
func (s *BookingService) ListBookings(ctx context.Context, req ListBookingsRequest) ([]*BookingDTO, int64, int, int, error) {
	errs := domain.Fields{}
	hotelID := parseHotelID(errs, req.HotelID)
	filter := booking.ListFilter{HotelID: hotelID}
	if req.Status != "" {
		st, err := booking.ParseStatus(req.Status)
		if err != nil {
			errs.Add("status", err.Error())
		}
		filter.Status = &st
	}
	if err := errs.Err(); err != nil {
		return nil, 0, 0, 0, err
	}
	if err := ensureHotelAccess(ctx, hotelID, "Hotel", hotelID); err != nil {
		return nil, 0, 0, 0, err
	}

	page, size := normalizePage(req.Page, req.PageSize)
	bookings, total, err := s.repo.List(ctx, filter, page, size)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	dtos := make([]*BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	return dtos, total, page, size, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *BookingService) ConfirmBooking(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	b, err := s.update(ctx, s.byID(id), func(b *booking.Booking) error {
		return b.Confirm()
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// AssignRoom assigns a physical room to a booking room type. When a locker is
// configured the room type is locked for the duration of the transaction; the
// store re-checks the quota at commit either way.
func (s *BookingService) AssignRoom(ctx context.Context, bookingID uuid.UUID, req AssignRoomRequest) (*BookingDTO, error) {
	errs := domain.Fields{}
	if req.BookingRoomTypeID == uuid.Nil {
		errs.Add("booking_room_type_id", "is required")
	}
	if req.RoomID == uuid.Nil {
		errs.Add("room_id", "is required")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, "booking-room-type:"+req.BookingRoomTypeID.String())
		if err != nil {
			return nil, err
		}
		defer release()
	}

	b, err := s.update(ctx, s.byID(bookingID), func(b *booking.Booking) error {
		room, err := s.rooms.FindRoom(ctx, req.RoomID)
		if err != nil {
			return err
		}
		assigned, err := b.AssignRoom(req.BookingRoomTypeID, *room, req.GuestIDs)
		if err != nil {
			return err
		}
		s.logger.Info("room assigned",
			zap.String("booking_id", b.ID().String()),
			zap.String("booking_room_id", assigned.ID().String()),
			zap.String("room_id", room.ID.String()),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// RecordCheckIn stamps the actual check-in of a booking room.
func (s *BookingService) RecordCheckIn(ctx context.Context, bookingRoomID uuid.UUID, req StayEventRequest) (*BookingDTO, error) {
	at := stayTime(req.At)
	b, err := s.update(ctx, s.byRoomID(bookingRoomID), func(b *booking.Booking) error {
		return b.RecordCheckIn(bookingRoomID, at)
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// RecordCheckOut stamps the actual check-out of a booking room. The booking
// completes automatically once every room has stayed.
func (s *BookingService) RecordCheckOut(ctx context.Context, bookingRoomID uuid.UUID, req StayEventRequest) (*BookingDTO, error) {
	at := stayTime(req.At)
	b, err := s.update(ctx, s.byRoomID(bookingRoomID), func(b *booking.Booking) error {
		return b.RecordCheckOut(bookingRoomID, at)
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// CancelBooking cancels a booking that has not finished.
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID, req CancelBookingRequest) (*BookingDTO, error) {
	b, err := s.update(ctx, s.byID(id), func(b *booking.Booking) error {
		return b.Cancel(req.Reason)
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// AddSurcharge adds an extra charge to an open booking.
func (s *BookingService) AddSurcharge(ctx context.Context, id uuid.UUID, req AddSurchargeRequest) (*BookingDTO, error) {
	b, err := s.update(ctx, s.byID(id), func(b *booking.Booking) error {
		_, err := b.AddSurcharge(req.Description, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// RecordDeposit adds a deposit payment to an open booking.
func (s *BookingService) RecordDeposit(ctx context.Context, id uuid.UUID, req RecordDepositRequest) (*BookingDTO, error) {
	b, err := s.update(ctx, s.byID(id), func(b *booking.Booking) error {
		return b.RecordDeposit(req.Amount)
	})
	if err != nil {
		return nil, err
	}
	return toBookingDTO(b), nil
}

// PurgeBooking deletes a cancelled booking and all of its children.
func (s *BookingService) PurgeBooking(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := ensureHotelAccess(ctx, b.HotelID(), "Booking", id); err != nil {
			return err
		}
		if b.Status() != booking.StatusCancelled {
			return domain.NewStateError(domain.CodeInvalidState,
				fmt.Sprintf("only cancelled bookings can be deleted; booking is %s", b.Status()))
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info("booking purged", zap.String("booking_id", id.String()))
		return nil
	})
}

// HandleGuestDeleted detaches a deleted guest from every booking.
func (s *BookingService) HandleGuestDeleted(ctx context.Context, event schema.GuestDeletedEvent) error {
	var affected int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		affected, err = s.repo.DetachGuest(ctx, event.GuestID)
		return err
	})
	if err != nil {
		return fmt.Errorf("detach guest %s: %w", event.GuestID, err)
	}
	s.logger.Info("guest detached from bookings",
		zap.String("guest_id", event.GuestID.String()),
		zap.Int64("affected", affected),
	)
	return nil
}

// HandleRoomDeleted removes the assignments of a deleted physical room.
func (s *BookingService) HandleRoomDeleted(ctx context.Context, event schema.RoomDeletedEvent) error {
	var removed int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.repo.RemovePhysicalRoom(ctx, event.RoomID)
		return err
	})
	if err != nil {
		return fmt.Errorf("remove room %s: %w", event.RoomID, err)
	}
	s.logger.Info("physical room removed from bookings",
		zap.String("room_id", event.RoomID.String()),
		zap.Int64("removed", removed),
	)
	return nil
}

type bookingLoader func(ctx context.Context) (*booking.Booking, error)

func (s *BookingService) byID(id uuid.UUID) bookingLoader {
	return func(ctx context.Context) (*booking.Booking, error) { return s.repo.FindByID(ctx, id) }
}

func (s *BookingService) byRoomID(id uuid.UUID) bookingLoader {
	return func(ctx context.Context) (*booking.Booking, error) { return s.repo.FindByRoomID(ctx, id) }
}

// update loads a booking, applies change and persists it in one transaction,
// then announces any status change.
func (s *BookingService) update(ctx context.Context, load bookingLoader, change func(*booking.Booking) error) (*booking.Booking, error) {
	var (
		b      *booking.Booking
		before booking.Status
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		if b, err = load(ctx); err != nil {
			return err
		}
		if err := ensureHotelAccess(ctx, b.HotelID(), "Booking", b.ID()); err != nil {
			return err
		}
		before = b.Status()
		if err := change(b); err != nil {
			return err
		}
		b.IncrementVersion()
		return s.repo.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}
	if b.Status() != before {
		s.announce(ctx, b, before)
	}
	return b, nil
}

func (s *BookingService) announce(ctx context.Context, b *booking.Booking, before booking.Status) {
	s.logger.Info("booking status changed",
		zap.String("booking_id", b.ID().String()),
		zap.String("from", string(before)),
		zap.String("to", string(b.Status())),
	)

	var eventType string
	switch b.Status() {
	case booking.StatusConfirmed:
		eventType = schema.BookingConfirmed
	case booking.StatusCancelled:
		eventType = schema.BookingCancelled
	case booking.StatusCompleted:
		eventType = schema.BookingCompleted
	default:
		return
	}
	publish(ctx, s.events, s.logger, schema.TopicBookingEvents, eventType, b.ID().String(), schema.BookingEvent{
		BookingID:   b.ID(),
		HotelID:     b.HotelID(),
		Status:      string(b.Status()),
		TotalAmount: b.TotalAmount(),
		Reason:      b.CancelReason(),
		OccurredAt:  time.Now().UTC(),
	})
}

func stayTime(at *time.Time) time.Time {
	if at == nil || at.IsZero() {
		return time.Now().UTC()
	}
	return at.UTC()
}

func parseCalendarDate(errs domain.Fields, field, raw string) time.Time {
	if raw == "" {
		errs.Add(field, "is required")
		return time.Time{}
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		errs.Add(field, "must be a date (YYYY-MM-DD)")
	}
	return d
}

func toBookingDTO(b *booking.Booking) *BookingDTO {
	dto := &BookingDTO{
		ID:             b.ID(),
		HotelID:        b.HotelID(),
		PrimaryGuestID: b.PrimaryGuestID(),
		Status:         string(b.Status()),
		TotalAmount:    formatAmount(b.TotalAmount()),
		DepositAmount:  formatAmount(b.DepositAmount()),
		DiscountAmount: formatAmount(b.DiscountAmount()),
		LeftAmount:     formatAmount(b.LeftAmount()),
		CancelReason:   b.CancelReason(),
		ConfirmedAt:    b.ConfirmedAt(),
		CheckedInAt:    b.CheckedInAt(),
		CompletedAt:    b.CompletedAt(),
		CancelledAt:    b.CancelledAt(),
		RoomTypes:      make([]BookingRoomTypeDTO, 0, len(b.RoomTypes())),
		Surcharges:     make([]SurchargeDTO, 0, len(b.Surcharges())),
		Version:        b.Version(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	}
	for _, rt := range b.RoomTypes() {
		rtDTO := BookingRoomTypeDTO{
			ID:            rt.ID(),
			RoomTypeID:    rt.RoomTypeID(),
			TotalRoom:     rt.TotalRoom(),
			AssignedCount: rt.AssignedCount(),
			CheckInDate:   rt.CheckInDate().Format("2006-01-02"),
			CheckOutDate:  rt.CheckOutDate().Format("2006-01-02"),
			Nights:        rt.Nights(),
			PricePerNight: formatAmount(rt.PricePerNight()),
			Rooms:         make([]BookingRoomDTO, 0, len(rt.Rooms())),
		}
		for _, r := range rt.Rooms() {
			guests := r.GuestIDs()
			if guests == nil {
				guests = []uuid.UUID{}
			}
			rtDTO.Rooms = append(rtDTO.Rooms, BookingRoomDTO{
				ID:           r.ID(),
				RoomID:       r.RoomID(),
				CheckedInAt:  r.CheckedInAt(),
				CheckedOutAt: r.CheckedOutAt(),
				GuestIDs:     guests,
			})
		}
		dto.RoomTypes = append(dto.RoomTypes, rtDTO)
	}
	for _, sc := range b.Surcharges() {
		dto.Surcharges = append(dto.Surcharges, SurchargeDTO{
			ID:          sc.ID(),
			Description: sc.Description(),
			Amount:      formatAmount(sc.Amount()),
			CreatedAt:   sc.CreatedAt(),
		})
	}
	return dto
}
