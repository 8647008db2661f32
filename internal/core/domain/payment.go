package domain

import (
	"encoding/json"
	"time"
)

// Gateway transaction_status values.
const (
	GatewayStatusCapture    = "capture"
	GatewayStatusSettlement = "settlement"
	GatewayStatusPending    = "pending"
	GatewayStatusCancel     = "cancel"
	GatewayStatusDeny       = "deny"
	GatewayStatusExpire     = "expire"
)

// Gateway fraud_status values.
const (
	FraudStatusAccept    = "accept"
	FraudStatusChallenge = "challenge"
)

// PaymentNotification is the asynchronous status callback sent by the gateway.
type PaymentNotification struct {
	OrderID           string          `json:"order_id"`
	StatusCode        string          `json:"status_code"`
	GrossAmount       string          `json:"gross_amount"`
	SignatureKey      string          `json:"signature_key"`
	TransactionStatus string          `json:"transaction_status"`
	PaymentType       string          `json:"payment_type"`
	FraudStatus       string          `json:"fraud_status,omitempty"`
	Raw               json.RawMessage `json:"-"` // body as received, kept for the audit log
}

// RawPayload returns the body as received, or a re-encoding when Raw is empty.
func (n *PaymentNotification) RawPayload() json.RawMessage {
	if len(n.Raw) > 0 {
		return n.Raw
	}
	b, err := json.Marshal(n)
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

// PaymentLog is an append-only record of one accepted gateway notification.
type PaymentLog struct {
	ID            int64           `json:"id"`
	Family        ProductFamily   `json:"family"`
	TransactionID string          `json:"transaction_id"`
	UserID        int64           `json:"user_id"`
	PaymentMethod string          `json:"payment_method"`
	Status        string          `json:"status"` // raw gateway transaction_status
	RawResponse   json.RawMessage `json:"raw_response"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MapGatewayStatus translates the gateway vocabulary into a TransactionStatus.
// ok is false for any combination outside the table; callers keep the
// current status in that case.
func MapGatewayStatus(transactionStatus, fraudStatus string) (status TransactionStatus, ok bool) {
	switch transactionStatus {
	case GatewayStatusCapture:
		switch fraudStatus {
		case FraudStatusChallenge:
			return TransactionStatusChallenge, true
		case FraudStatusAccept:
			return TransactionStatusSuccess, true
		}
	case GatewayStatusSettlement:
		return TransactionStatusSuccess, true
	case GatewayStatusCancel, GatewayStatusDeny, GatewayStatusExpire:
		return TransactionStatusFailure, true
	case GatewayStatusPending:
		return TransactionStatusPending, true
	}
	return "", false
}
