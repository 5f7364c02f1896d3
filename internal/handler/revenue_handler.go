package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/response"
)

// RevenueHandler serves revenue reports.
type RevenueHandler struct {
	service *application.RevenueService
}

// NewRevenueHandler creates a new RevenueHandler.
func NewRevenueHandler(service *application.RevenueService) *RevenueHandler {
	return &RevenueHandler{service: service}
}

// RegisterRoutes registers the revenue report routes.
func (h *RevenueHandler) RegisterRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	rev := r.Group("/revenue")
	rev.Use(mw...)
	{
		rev.GET("", h.Summary)
		rev.GET("/breakdown", h.Breakdown)
	}
}

// Summary handles GET /api/v1/revenue.
func (h *RevenueHandler) Summary(c *gin.Context) {
	var req application.RevenueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Summary(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Breakdown handles GET /api/v1/revenue/breakdown.
func (h *RevenueHandler) Breakdown(c *gin.Context) {
	var req application.RevenueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Breakdown(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
