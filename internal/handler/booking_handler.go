package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/auth"
	"github.com/hotelcore/service-booking/internal/common/middleware"
	"github.com/hotelcore/service-booking/internal/common/response"
	"github.com/hotelcore/service-booking/internal/saga"
)

// BookingHandler handles HTTP requests for the booking lifecycle.
type BookingHandler struct {
	service    *application.BookingService
	settlement *saga.SettlementService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService, settlement *saga.SettlementService) *BookingHandler {
	return &BookingHandler{service: service, settlement: settlement}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	bookings := r.Group("/bookings")
	bookings.Use(mw...)
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.DELETE("/:id", middleware.RequireRole(auth.RoleAdmin), h.DeleteBooking)
		bookings.POST("/:id/confirm", h.ConfirmBooking)
		bookings.POST("/:id/rooms", h.AssignRoom)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.POST("/:id/surcharges", h.AddSurcharge)
		bookings.POST("/:id/deposits", h.RecordDeposit)
		bookings.POST("/:id/settle", h.SettleBooking)
		bookings.POST("/rooms/:bookingRoomId/checkin", h.CheckIn)
		bookings.POST("/rooms/:bookingRoomId/checkout", h.CheckOut)
	}
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req application.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// ListBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListBookings(c *gin.Context) {
	var req application.ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dtos, total, page, size, err := h.service.ListBookings(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dtos, total, page, size)
}

// GetBooking handles GET /api/v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dto, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// DeleteBooking handles DELETE /api/v1/bookings/:id
func (h *BookingHandler) DeleteBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.PurgeBooking(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "deleted": true})
}

// ConfirmBooking handles POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dto, err := h.service.ConfirmBooking(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// AssignRoom handles POST /api/v1/bookings/:id/rooms
func (h *BookingHandler) AssignRoom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.AssignRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.AssignRoom(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// CheckIn handles POST /api/v1/bookings/rooms/:bookingRoomId/checkin
func (h *BookingHandler) CheckIn(c *gin.Context) {
	id, ok := pathID(c, "bookingRoomId")
	if !ok {
		return
	}
	var req application.StayEventRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	dto, err := h.service.RecordCheckIn(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// CheckOut handles POST /api/v1/bookings/rooms/:bookingRoomId/checkout
func (h *BookingHandler) CheckOut(c *gin.Context) {
	id, ok := pathID(c, "bookingRoomId")
	if !ok {
		return
	}
	var req application.StayEventRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	dto, err := h.service.RecordCheckOut(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.CancelBookingRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	dto, err := h.service.CancelBooking(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// AddSurcharge handles POST /api/v1/bookings/:id/surcharges
func (h *BookingHandler) AddSurcharge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.AddSurchargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.AddSurcharge(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto)
}

// RecordDeposit handles POST /api/v1/bookings/:id/deposits
func (h *BookingHandler) RecordDeposit(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req application.RecordDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.RecordDeposit(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}

// SettleBooking handles POST /api/v1/bookings/:id/settle
func (h *BookingHandler) SettleBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req saga.SettleRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	dto, err := h.settlement.Settle(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto)
}
