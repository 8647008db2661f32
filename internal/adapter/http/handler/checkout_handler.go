package handler

import (
	"academy-commerce/internal/adapter/http/dto"
	"academy-commerce/internal/adapter/http/middleware"
	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"
	"academy-commerce/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler opens purchases for both product families.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// CheckoutCourse handles POST /api/v1/checkout/courses.
func (h *CheckoutHandler) CheckoutCourse(c *gin.Context) {
	h.checkout(c, domain.FamilyCourse)
}

// CheckoutPremium handles POST /api/v1/checkout/premium-products.
func (h *CheckoutHandler) CheckoutPremium(c *gin.Context) {
	h.checkout(c, domain.FamilyPremium)
}

func (h *CheckoutHandler) checkout(c *gin.Context, family domain.ProductFamily) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	key := c.GetHeader(middleware.HeaderIdempotencyKey)
	if len(key) > 128 {
		response.Error(c, apperror.Validation("Idempotency-Key must be at most 128 characters"))
		return
	}

	result, err := h.checkoutSvc.Checkout(c.Request.Context(), ports.CheckoutRequest{
		Family:         family,
		UserID:         userID,
		ProductID:      req.ProductID,
		VoucherCode:    req.VoucherCode,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
		response.OK(c, dto.ToCheckoutResponse(result))
		return
	}
	response.Created(c, dto.ToCheckoutResponse(result))
}
