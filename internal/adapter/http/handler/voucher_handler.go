package handler

import (
	"academy-commerce/internal/adapter/http/dto"
	"academy-commerce/internal/adapter/http/middleware"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"
	"academy-commerce/pkg/response"

	"github.com/gin-gonic/gin"
)

// VoucherHandler previews voucher discounts.
type VoucherHandler struct {
	voucherSvc ports.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(voucherSvc ports.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherSvc: voucherSvc}
}

// Check handles POST /api/v1/vouchers/check.
func (h *VoucherHandler) Check(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.VoucherCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	preview, err := h.voucherSvc.Preview(c.Request.Context(), ports.VoucherCheckRequest{
		UserID:           userID,
		Code:             req.Code,
		CourseID:         req.CourseID,
		PremiumProductID: req.PremiumProductID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, preview)
}
