package dto

import (
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CheckoutRequest is the request body for buying a course or premium product.
type CheckoutRequest struct {
	ProductID   string `json:"product_id" binding:"required,max=64,safe_id"`
	VoucherCode string `json:"voucher_code" binding:"omitempty,max=64,voucher_code"`
}

// VoucherCheckRequest is the request body for previewing a voucher discount.
// Exactly one of CourseID and PremiumProductID is expected.
type VoucherCheckRequest struct {
	Code             string `json:"code" binding:"required,max=64,voucher_code"`
	CourseID         string `json:"course_id" binding:"omitempty,max=64,safe_id"`
	PremiumProductID string `json:"premium_product_id" binding:"omitempty,max=64,safe_id"`
}

// TransactionResponse is the public view of a transaction.
type TransactionResponse struct {
	ID              string          `json:"id"`
	Family          string          `json:"family"`
	ProductID       string          `json:"product_id"`
	VoucherCode     *string         `json:"voucher_code,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	SnapToken       *string         `json:"snap_token,omitempty"`
	SnapRedirectURL *string         `json:"snap_redirect_url,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

// CheckoutResponse is the response body for a created checkout.
type CheckoutResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Price       decimal.Decimal     `json:"price"`
	Discount    decimal.Decimal     `json:"discount"`
}

// PaymentLogResponse is one accepted gateway notification.
type PaymentLogResponse struct {
	ID            int64  `json:"id"`
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// ToTransactionResponse converts domain.Transaction to DTO.
func ToTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		Family:          string(tx.Family),
		ProductID:       tx.ProductID,
		VoucherCode:     tx.VoucherCode,
		Amount:          tx.Amount,
		Status:          string(tx.Status),
		SnapToken:       tx.SnapToken,
		SnapRedirectURL: tx.SnapRedirectURL,
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       tx.UpdatedAt.Format(time.RFC3339),
	}
}

// ToCheckoutResponse converts a checkout result to DTO.
func ToCheckoutResponse(r *ports.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{
		Transaction: ToTransactionResponse(r.Transaction),
		Price:       r.Price,
		Discount:    r.Discount,
	}
}

// ToPaymentLogResponses converts payment log rows to DTOs. Raw gateway
// payloads are not exposed to buyers.
func ToPaymentLogResponses(logs []domain.PaymentLog) []PaymentLogResponse {
	out := make([]PaymentLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, PaymentLogResponse{
			ID:            l.ID,
			PaymentMethod: l.PaymentMethod,
			Status:        l.Status,
			CreatedAt:     l.CreatedAt.Format(time.RFC3339),
		})
	}
	return out
}
