package handler

import (
	"strconv"

	"academy-commerce/internal/adapter/http/dto"
	"academy-commerce/internal/adapter/http/middleware"
	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"
	"academy-commerce/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler serves the caller's purchase history.
type TransactionHandler struct {
	querySvc ports.TransactionQueryService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(querySvc ports.TransactionQueryService) *TransactionHandler {
	return &TransactionHandler{querySvc: querySvc}
}

// List handles GET /api/v1/transactions?family=&page=&page_size=.
func (h *TransactionHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	family, ok := domain.ParseFamily(c.Query("family"))
	if !ok {
		response.Error(c, apperror.Validation("family must be course or premium"))
		return
	}

	// the service applies the same bounds
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	txns, total, err := h.querySvc.ListMine(c.Request.Context(), family, userID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, dto.ToTransactionResponse(&txns[i]))
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}
	response.Paginated(c, items, total, page, pageSize)
}

// Logs handles GET /api/v1/transactions/:family/:id/logs.
func (h *TransactionHandler) Logs(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	family, ok := domain.ParseFamily(c.Param("family"))
	if !ok {
		response.Error(c, apperror.Validation("family must be course or premium"))
		return
	}

	logs, err := h.querySvc.Logs(c.Request.Context(), family, c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToPaymentLogResponses(logs))
}
