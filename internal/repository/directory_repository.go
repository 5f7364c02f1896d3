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
	"github.com/hotelcore/service-booking/internal/domain/booking"
	"github.com/hotelcore/service-booking/internal/domain/order"
)

// RoomModel is the GORM model for the rooms table, a read replica of the
// hotel room directory.
type RoomModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	HotelID    uuid.UUID `gorm:"type:uuid;not null;index"`
	RoomTypeID uuid.UUID `gorm:"type:uuid;not null"`
	Number     string    `gorm:"type:varchar(20);not null"`
}

// TableName sets the table name.
func (RoomModel) TableName() string { return "rooms" }

// OrderModel is the GORM model for the orders table.
type OrderModel struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey"`
	HotelID   uuid.UUID        `gorm:"type:uuid;not null"`
	GuestID   *uuid.UUID       `gorm:"type:uuid"`
	CreatedAt time.Time        `gorm:"type:timestamptz;not null"`
	Items     []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName sets the table name.
func (OrderModel) TableName() string { return "orders" }

// OrderItemModel is the GORM model for the order_items table.
type OrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:text;not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Status      string          `gorm:"type:varchar(20);not null"`
}

// TableName sets the table name.
func (OrderItemModel) TableName() string { return "order_items" }

// RoomDirectoryImpl reads physical rooms.
type RoomDirectoryImpl struct {
	db *gorm.DB
}

// NewRoomDirectory creates a GORM-based booking.RoomDirectory.
func NewRoomDirectory(db *gorm.DB) *RoomDirectoryImpl {
	return &RoomDirectoryImpl{db: db}
}

// FindRoom returns a physical room by ID.
func (r *RoomDirectoryImpl) FindRoom(ctx context.Context, roomID uuid.UUID) (*booking.PhysicalRoom, error) {
	var m RoomModel
	if err := database.Conn(ctx, r.db).Where("id = ?", roomID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Room", roomID.String())
		}
		return nil, err
	}
	return &booking.PhysicalRoom{ID: m.ID, HotelID: m.HotelID, RoomTypeID: m.RoomTypeID, Number: m.Number}, nil
}

// OrderReaderImpl reads walk-in orders.
type OrderReaderImpl struct {
	db *gorm.DB
}

// NewOrderReader creates a GORM-based order.Reader.
func NewOrderReader(db *gorm.DB) *OrderReaderImpl {
	return &OrderReaderImpl{db: db}
}

// FindByID returns an order with its items.
func (r *OrderReaderImpl) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var m OrderModel
	err := database.Conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Order", id.String())
		}
		return nil, err
	}

	o := &order.Order{ID: m.ID, HotelID: m.HotelID, GuestID: m.GuestID, Items: make([]order.Item, len(m.Items))}
	for i, it := range m.Items {
		o.Items[i] = order.Item{
			ID:          it.ID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Status:      order.ItemStatus(it.Status),
		}
	}
	return o, nil
}
