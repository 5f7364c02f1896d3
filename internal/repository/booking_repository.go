package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hotelcore/service-booking/internal/common/database"
	"github.com/hotelcore/service-booking/internal/common/domain"
	"github.com/hotelcore/service-booking/internal/domain/booking"
)

// BookingModel is the GORM persistence model for the bookings table.
type BookingModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	HotelID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	PrimaryGuestID *uuid.UUID      `gorm:"type:uuid"`
	Status         string          `gorm:"type:varchar(20);not null;default:'pending'"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	DepositAmount  decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	LeftAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CancelReason   string          `gorm:"type:text"`
	ConfirmedAt    *time.Time      `gorm:"type:timestamptz"`
	CheckedInAt    *time.Time      `gorm:"type:timestamptz"`
	CompletedAt    *time.Time      `gorm:"type:timestamptz"`
	CancelledAt    *time.Time      `gorm:"type:timestamptz"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;not null"`
	UpdatedAt      time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (BookingModel) TableName() string { return "bookings" }

// BookingRoomTypeModel is the GORM model for the booking_room_types table.
type BookingRoomTypeModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position      int             `gorm:"not null"`
	RoomTypeID    uuid.UUID       `gorm:"type:uuid;not null"`
	TotalRoom     int             `gorm:"not null"`
	AssignedCount int             `gorm:"not null;default:0"`
	CheckInDate   time.Time       `gorm:"type:date;not null"`
	CheckOutDate  time.Time       `gorm:"type:date;not null"`
	PricePerNight decimal.Decimal `gorm:"type:numeric(18,2);not null"`
}

// TableName specifies the table name for GORM.
func (BookingRoomTypeModel) TableName() string { return "booking_room_types" }

// BookingRoomModel is the GORM model for the booking_rooms table.
type BookingRoomModel struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	BookingRoomTypeID uuid.UUID  `gorm:"type:uuid;not null;index"`
	RoomID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	CheckedInAt       *time.Time `gorm:"type:timestamptz"`
	CheckedOutAt      *time.Time `gorm:"type:timestamptz"`
	CreatedAt         time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (BookingRoomModel) TableName() string { return "booking_rooms" }

// BookingGuestModel is the GORM model for the booking_guests table.
type BookingGuestModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingRoomID uuid.UUID `gorm:"type:uuid;not null;index"`
	GuestID       uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TableName specifies the table name for GORM.
func (BookingGuestModel) TableName() string { return "booking_guests" }

// BookingSurchargeModel is the GORM model for the booking_surcharges table.
type BookingSurchargeModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:text;not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	CreatedAt   time.Time       `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (BookingSurchargeModel) TableName() string { return "booking_surcharges" }

// BookingRepositoryImpl is the GORM-based implementation of booking.Repository.
type BookingRepositoryImpl struct {
	db *gorm.DB
}

// NewBookingRepository creates a new GORM-based booking repository.
func NewBookingRepository(db *gorm.DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

// FindByID retrieves a booking with all of its children.
func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	db := database.Conn(ctx, r.db)
	var model BookingModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, err
	}
	out, err := r.hydrate(db, []BookingModel{model})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// FindByRoomID retrieves the booking owning a booking room.
func (r *BookingRepositoryImpl) FindByRoomID(ctx context.Context, bookingRoomID uuid.UUID) (*booking.Booking, error) {
	var room BookingRoomModel
	if err := database.Conn(ctx, r.db).Select("booking_id").Where("id = ?", bookingRoomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("BookingRoom", bookingRoomID.String())
		}
		return nil, err
	}
	return r.FindByID(ctx, room.BookingID)
}

// Save persists a new booking aggregate.
func (r *BookingRepositoryImpl) Save(ctx context.Context, b *booking.Booking) error {
	db := database.Conn(ctx, r.db)
	if err := db.Create(toBookingModel(b)).Error; err != nil {
		return translate(err, "booking already exists")
	}
	for i, rt := range b.RoomTypes() {
		if err := db.Create(toRoomTypeModel(b.ID(), i, rt)).Error; err != nil {
			return err
		}
		for _, room := range rt.Rooms() {
			if err := r.insertRoom(db, b.ID(), room); err != nil {
				return err
			}
		}
	}
	for _, s := range b.Surcharges() {
		if err := db.Create(toSurchargeModel(b.ID(), s)).Error; err != nil {
			return err
		}
	}
	b.MarkCommitted()
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
// Newly assigned rooms re-check the room type quota with a conditional
// counter write, so a lost race surfaces as a Conflict.
func (r *BookingRepositoryImpl) Update(ctx context.Context, b *booking.Booking) error {
	db := database.Conn(ctx, r.db)
	m := toBookingModel(b)

	result := db.Model(&BookingModel{}).
		Where("id = ? AND version = ?", b.ID(), b.Version()-1).
		Updates(map[string]interface{}{
			"primary_guest_id": m.PrimaryGuestID,
			"status":           m.Status,
			"total_amount":     m.TotalAmount,
			"deposit_amount":   m.DepositAmount,
			"discount_amount":  m.DiscountAmount,
			"left_amount":      m.LeftAmount,
			"cancel_reason":    m.CancelReason,
			"confirmed_at":     m.ConfirmedAt,
			"checked_in_at":    m.CheckedInAt,
			"completed_at":     m.CompletedAt,
			"cancelled_at":     m.CancelledAt,
			"version":          m.Version,
			"updated_at":       m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	fresh := make(map[uuid.UUID]struct{}, len(b.UncommittedRooms()))
	for _, room := range b.UncommittedRooms() {
		fresh[room.ID()] = struct{}{}
		claimed := db.Model(&BookingRoomTypeModel{}).
			Where("id = ? AND assigned_count < total_room", room.BookingRoomTypeID()).
			UpdateColumn("assigned_count", gorm.Expr("assigned_count + 1"))
		if claimed.Error != nil {
			return claimed.Error
		}
		if claimed.RowsAffected == 0 {
			return domain.NewConflictError(fmt.Sprintf("room type %s was fully assigned by another transaction", room.BookingRoomTypeID()))
		}
		if err := r.insertRoom(db, b.ID(), room); err != nil {
			return err
		}
	}

	for _, room := range b.Rooms() {
		if _, ok := fresh[room.ID()]; ok {
			continue
		}
		if err := db.Model(&BookingRoomModel{}).Where("id = ?", room.ID()).
			Updates(map[string]interface{}{
				"checked_in_at":  room.CheckedInAt(),
				"checked_out_at": room.CheckedOutAt(),
			}).Error; err != nil {
			return err
		}
	}

	for _, s := range b.UncommittedSurcharges() {
		if err := db.Create(toSurchargeModel(b.ID(), s)).Error; err != nil {
			return err
		}
	}
	b.MarkCommitted()
	return nil
}

// List retrieves one page of bookings, newest first.
func (r *BookingRepositoryImpl) List(ctx context.Context, filter booking.ListFilter, page, pageSize int) ([]*booking.Booking, int64, error) {
	db := database.Conn(ctx, r.db)
	q := db.Model(&BookingModel{}).Where("hotel_id = ?", filter.HotelID)
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []BookingModel
	if err := q.Order("created_at DESC").Order("id").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	bookings, err := r.hydrate(db, models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// Delete removes a booking and its children, leaves first.
func (r *BookingRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	db := database.Conn(ctx, r.db)
	roomIDs := db.Model(&BookingRoomModel{}).Select("id").Where("booking_id = ?", id)
	steps := []func() *gorm.DB{
		func() *gorm.DB { return db.Where("booking_room_id IN (?)", roomIDs).Delete(&BookingGuestModel{}) },
		func() *gorm.DB { return db.Where("booking_id = ?", id).Delete(&BookingRoomModel{}) },
		func() *gorm.DB { return db.Where("booking_id = ?", id).Delete(&BookingRoomTypeModel{}) },
		func() *gorm.DB { return db.Where("booking_id = ?", id).Delete(&BookingSurchargeModel{}) },
	}
	for _, step := range steps {
		if err := step().Error; err != nil {
			return err
		}
	}
	result := db.Where("id = ?", id).Delete(&BookingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Booking", id.String())
	}
	return nil
}

// DetachGuest clears a deleted guest from every booking and returns the
// number of bookings touched.
func (r *BookingRepositoryImpl) DetachGuest(ctx context.Context, guestID uuid.UUID) (int64, error) {
	db := database.Conn(ctx, r.db)

	var rows []struct{ ID uuid.UUID }
	if err := db.Raw(`
		SELECT id FROM bookings WHERE primary_guest_id = ?
		UNION
		SELECT br.booking_id AS id FROM booking_rooms br
		JOIN booking_guests bg ON bg.booking_room_id = br.id
		WHERE bg.guest_id = ?`, guestID, guestID).
		Scan(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	if err := db.Where("guest_id = ?", guestID).Delete(&BookingGuestModel{}).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&BookingModel{}).Where("primary_guest_id = ?", guestID).
		UpdateColumn("primary_guest_id", nil).Error; err != nil {
		return 0, err
	}
	if err := r.bumpVersions(db, ids); err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// RemovePhysicalRoom deletes every assignment of a deleted physical room,
// releasing the quota it held, and returns the number of assignments removed.
func (r *BookingRepositoryImpl) RemovePhysicalRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	db := database.Conn(ctx, r.db)

	var rooms []BookingRoomModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ?", roomID).Find(&rooms).Error; err != nil {
		return 0, err
	}
	if len(rooms) == 0 {
		return 0, nil
	}

	roomIDs := make([]uuid.UUID, len(rooms))
	bookingIDs := make([]uuid.UUID, 0, len(rooms))
	seen := make(map[uuid.UUID]struct{}, len(rooms))
	for i, room := range rooms {
		roomIDs[i] = room.ID
		if _, ok := seen[room.BookingID]; !ok {
			seen[room.BookingID] = struct{}{}
			bookingIDs = append(bookingIDs, room.BookingID)
		}
	}

	if err := db.Where("booking_room_id IN ?", roomIDs).Delete(&BookingGuestModel{}).Error; err != nil {
		return 0, err
	}
	if err := db.Where("id IN ?", roomIDs).Delete(&BookingRoomModel{}).Error; err != nil {
		return 0, err
	}
	for _, room := range rooms {
		if err := db.Model(&BookingRoomTypeModel{}).
			Where("id = ? AND assigned_count > 0", room.BookingRoomTypeID).
			UpdateColumn("assigned_count", gorm.Expr("assigned_count - 1")).Error; err != nil {
			return 0, err
		}
	}
	if err := r.bumpVersions(db, bookingIDs); err != nil {
		return 0, err
	}
	return int64(len(rooms)), nil
}

func (r *BookingRepositoryImpl) bumpVersions(db *gorm.DB, ids []uuid.UUID) error {
	return db.Model(&BookingModel{}).Where("id IN ?", ids).
		UpdateColumns(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *BookingRepositoryImpl) insertRoom(db *gorm.DB, bookingID uuid.UUID, room *booking.Room) error {
	if err := db.Create(&BookingRoomModel{
		ID:                room.ID(),
		BookingID:         bookingID,
		BookingRoomTypeID: room.BookingRoomTypeID(),
		RoomID:            room.RoomID(),
		CheckedInAt:       room.CheckedInAt(),
		CheckedOutAt:      room.CheckedOutAt(),
		CreatedAt:         room.CreatedAt(),
	}).Error; err != nil {
		return translate(err, fmt.Sprintf("room %s is already assigned to booking %s", room.RoomID(), bookingID))
	}
	for _, g := range room.GuestIDs() {
		if err := db.Create(&BookingGuestModel{ID: uuid.New(), BookingRoomID: room.ID(), GuestID: g}).Error; err != nil {
			return err
		}
	}
	return nil
}

// hydrate batch-loads the children of models and rebuilds the aggregates.
func (r *BookingRepositoryImpl) hydrate(db *gorm.DB, models []BookingModel) ([]*booking.Booking, error) {
	if len(models) == 0 {
		return []*booking.Booking{}, nil
	}
	ids := make([]uuid.UUID, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	var roomTypes []BookingRoomTypeModel
	if err := db.Where("booking_id IN ?", ids).Order("booking_id, position").Find(&roomTypes).Error; err != nil {
		return nil, err
	}
	var rooms []BookingRoomModel
	if err := db.Where("booking_id IN ?", ids).Order("created_at, id").Find(&rooms).Error; err != nil {
		return nil, err
	}
	var surcharges []BookingSurchargeModel
	if err := db.Where("booking_id IN ?", ids).Order("created_at, id").Find(&surcharges).Error; err != nil {
		return nil, err
	}
	var guests []BookingGuestModel
	if len(rooms) > 0 {
		roomIDs := make([]uuid.UUID, len(rooms))
		for i, room := range rooms {
			roomIDs[i] = room.ID
		}
		if err := db.Where("booking_room_id IN ?", roomIDs).Order("id").Find(&guests).Error; err != nil {
			return nil, err
		}
	}

	guestsByRoom := make(map[uuid.UUID][]uuid.UUID)
	for _, g := range guests {
		guestsByRoom[g.BookingRoomID] = append(guestsByRoom[g.BookingRoomID], g.GuestID)
	}
	roomsByType := make(map[uuid.UUID][]*booking.Room)
	for _, m := range rooms {
		roomsByType[m.BookingRoomTypeID] = append(roomsByType[m.BookingRoomTypeID],
			booking.ReconstituteRoom(m.ID, m.BookingRoomTypeID, m.RoomID, m.CheckedInAt, m.CheckedOutAt, guestsByRoom[m.ID], m.CreatedAt))
	}
	typesByBooking := make(map[uuid.UUID][]*booking.RoomType)
	for _, m := range roomTypes {
		typesByBooking[m.BookingID] = append(typesByBooking[m.BookingID],
			booking.ReconstituteRoomType(m.ID, m.RoomTypeID, m.TotalRoom, m.CheckInDate, m.CheckOutDate, m.PricePerNight, roomsByType[m.ID]))
	}
	surchargesByBooking := make(map[uuid.UUID][]*booking.Surcharge)
	for _, m := range surcharges {
		surchargesByBooking[m.BookingID] = append(surchargesByBooking[m.BookingID],
			booking.ReconstituteSurcharge(m.ID, m.Description, m.Amount, m.CreatedAt))
	}

	out := make([]*booking.Booking, len(models))
	for i := range models {
		m := &models[i]
		out[i] = booking.Reconstitute(
			m.ID, m.HotelID, m.PrimaryGuestID, booking.Status(m.Status),
			m.TotalAmount, m.DepositAmount, m.DiscountAmount, m.LeftAmount,
			m.CancelReason,
			m.ConfirmedAt, m.CheckedInAt, m.CompletedAt, m.CancelledAt,
			typesByBooking[m.ID], surchargesByBooking[m.ID],
			m.Version, m.CreatedAt, m.UpdatedAt,
		)
	}
	return out, nil
}

func toBookingModel(b *booking.Booking) *BookingModel {
	return &BookingModel{
		ID:             b.ID(),
		HotelID:        b.HotelID(),
		PrimaryGuestID: b.PrimaryGuestID(),
		Status:         string(b.Status()),
		TotalAmount:    b.TotalAmount(),
		DepositAmount:  b.DepositAmount(),
		DiscountAmount: b.DiscountAmount(),
		LeftAmount:     b.LeftAmount(),
		CancelReason:   b.CancelReason(),
		ConfirmedAt:    b.ConfirmedAt(),
		CheckedInAt:    b.CheckedInAt(),
		CompletedAt:    b.CompletedAt(),
		CancelledAt:    b.CancelledAt(),
		Version:        b.Version(),
		CreatedAt:      b.CreatedAt(),
		UpdatedAt:      b.UpdatedAt(),
	}
}

func toRoomTypeModel(bookingID uuid.UUID, position int, rt *booking.RoomType) *BookingRoomTypeModel {
	return &BookingRoomTypeModel{
		ID:            rt.ID(),
		BookingID:     bookingID,
		Position:      position,
		RoomTypeID:    rt.RoomTypeID(),
		TotalRoom:     rt.TotalRoom(),
		AssignedCount: rt.AssignedCount(),
		CheckInDate:   rt.CheckInDate(),
		CheckOutDate:  rt.CheckOutDate(),
		PricePerNight: rt.PricePerNight(),
	}
}

func toSurchargeModel(bookingID uuid.UUID, s *booking.Surcharge) *BookingSurchargeModel {
	return &BookingSurchargeModel{
		ID:          s.ID(),
		BookingID:   bookingID,
		Description: s.Description(),
		Amount:      s.Amount(),
		CreatedAt:   s.CreatedAt(),
	}
}

// translate maps unique-key violations onto Conflict. It relies on the
// connection being opened with TranslateError.
func translate(err error, conflictMessage string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError(conflictMessage)
	}
	return err
}
