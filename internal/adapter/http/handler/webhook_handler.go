package handler

import (
	"encoding/json"
	"io"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"
	"academy-commerce/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives asynchronous payment notifications.
type WebhookHandler struct {
	reconciler ports.WebhookReconciler
	log        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconciler ports.WebhookReconciler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, log: log}
}

// Notify handles POST /api/v1/payments/webhook. Any accepted notification is
// acknowledged with 200 whatever status it carried.
func (h *WebhookHandler) Notify(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.ErrInvalidNotification("cannot read request body"))
		return
	}

	var notification domain.PaymentNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		response.Error(c, apperror.ErrInvalidNotification("malformed notification body"))
		return
	}
	notification.Raw = body

	result, err := h.reconciler.Reconcile(c.Request.Context(), &notification)
	if err != nil {
		h.log.Info().Err(err).Str("order_id", notification.OrderID).Msg("webhook rejected")
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
