package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus represents the lifecycle state of a checkout transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSuccess   TransactionStatus = "success"
	TransactionStatusFailure   TransactionStatus = "failure"
	TransactionStatusChallenge TransactionStatus = "challenge"
)

// IsTerminal returns true only for success. Failure and challenge can still
// be moved by a later gateway notification.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess
}

// Transaction is one checkout attempt for a single product.
// ID is numeric for courses and a UUID for premium products; both are
// handled as opaque strings outside the storage layer.
type Transaction struct {
	ID              string            `json:"id"`
	Family          ProductFamily     `json:"family"`
	UserID          int64             `json:"user_id"`
	ProductID       string            `json:"product_id"`
	VoucherCode     *string           `json:"voucher_code,omitempty"`
	Amount          decimal.Decimal   `json:"amount"`
	Status          TransactionStatus `json:"status"`
	Meta            json.RawMessage   `json:"meta,omitempty"` // product snapshot taken at checkout
	SnapToken       *string           `json:"snap_token,omitempty"`
	SnapRedirectURL *string           `json:"snap_redirect_url,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsTerminal returns true if the transaction can no longer change state.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// Voucher returns the redeemed voucher code, or "" when none was used.
func (t *Transaction) Voucher() string {
	if t.VoucherCode == nil {
		return ""
	}
	return *t.VoucherCode
}

// StaleCursor is a keyset position in the oldest-first listing of open
// transactions. The zero value starts from the beginning.
type StaleCursor struct {
	CreatedAt time.Time
	ID        string
}

// IsZero reports whether the cursor points at the start of the listing.
func (c StaleCursor) IsZero() bool {
	return c.ID == "" && c.CreatedAt.IsZero()
}

// CursorAfter returns the position just past t.
func CursorAfter(t *Transaction) StaleCursor {
	return StaleCursor{CreatedAt: t.CreatedAt, ID: t.ID}
}
