package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hotelcore/service-booking/internal/application"
	"github.com/hotelcore/service-booking/internal/common/auth"
	"github.com/hotelcore/service-booking/internal/common/middleware"
	"github.com/hotelcore/service-booking/internal/common/response"
)

// PromoHandler handles HTTP requests for promotion codes.
type PromoHandler struct {
	service *application.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(service *application.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

// RegisterRoutes registers all promotion routes.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, mw ...gin.HandlerFunc) {
	adminOnly := middleware.RequireRole(auth.RoleAdmin)

	promos := r.Group("/promotions")
	promos.Use(mw...)
	{
		promos.POST("", adminOnly, h.CreatePromotion)
		promos.POST("/validate", h.ValidatePromotion)
		promos.GET("/active", h.ListActivePromotions)
		promos.POST("/:id/deactivate", adminOnly, h.DeactivatePromotion)
	}
}

// CreatePromotion handles POST /api/v1/promotions.
func (h *PromoHandler) CreatePromotion(c *gin.Context) {
	var req application.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreatePromotion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// ValidatePromotion handles POST /api/v1/promotions/validate.
func (h *PromoHandler) ValidatePromotion(c *gin.Context) {
	var req application.ValidatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidatePromotion(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListActivePromotions handles GET /api/v1/promotions/active.
func (h *PromoHandler) ListActivePromotions(c *gin.Context) {
	result, err := h.service.ListActivePromotions(c.Request.Context(), c.Query("hotelId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// DeactivatePromotion handles POST /api/v1/promotions/:id/deactivate.
func (h *PromoHandler) DeactivatePromotion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.service.DeactivatePromotion(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
