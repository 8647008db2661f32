package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SignatureService computes and checks gateway notification signatures.
type SignatureService interface {
	Sign(orderID, statusCode, grossAmount string) string
	Verify(notification *domain.PaymentNotification) bool
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID int64) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID int64
}

// ReplayCache stores checkout responses keyed by Idempotency-Key.
type ReplayCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RunLock is a lease shared by every replica of the service. Acquire
// returns false while another holder's lease is live.
type RunLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

// --- Outbound adapters ---

// PaymentGateway is the hosted-checkout processor.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*GatewaySession, error)
	// CheckStatus fetches the current gateway view of an order in the same
	// shape as an asynchronous notification.
	CheckStatus(ctx context.Context, orderID string) (*domain.PaymentNotification, error)
}

// SessionRequest describes the charge a hosted checkout session is opened for.
type SessionRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Product  domain.Product
	Customer domain.User
}

// GatewaySession is the hosted checkout handle returned to the client.
type GatewaySession struct {
	Token       string
	RedirectURL string
}

// Notifier queues outbound mail.
type Notifier interface {
	Send(ctx context.Context, mail Mail) error
}

// Mail is a templated message addressed to one user.
type Mail struct {
	To       string            `json:"to"`
	Name     string            `json:"name"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// Catalog is the per-family product lookup and entitlement writer.
type Catalog interface {
	Family() domain.ProductFamily
	Quote(ctx context.Context, productID string) (*domain.Product, error)
	// HasEntitlement reports whether the user already owns the product in the
	// scope that blocks a new purchase.
	HasEntitlement(ctx context.Context, userID int64, productID string) (bool, error)
	Grant(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
}

// --- Service Ports (Business Logic) ---

// VoucherService evaluates discount codes without consuming them.
type VoucherService interface {
	Evaluate(ctx context.Context, code string, price decimal.Decimal, userID int64, family domain.ProductFamily) (decimal.Decimal, *domain.Voucher, error)
	Preview(ctx context.Context, req VoucherCheckRequest) (*VoucherPreview, error)
}

// VoucherCheckRequest holds input for the discount preview. Exactly one of
// CourseID and PremiumProductID must be set.
type VoucherCheckRequest struct {
	UserID           int64
	Code             string
	CourseID         string
	PremiumProductID string
}

// VoucherPreview is the would-be outcome of applying a voucher.
type VoucherPreview struct {
	Code      string               `json:"code"`
	Type      domain.VoucherType   `json:"type"`
	Family    domain.ProductFamily `json:"family"`
	ProductID string               `json:"product_id"`
	Price     decimal.Decimal      `json:"price"`
	Discount  decimal.Decimal      `json:"discount"`
	Amount    decimal.Decimal      `json:"amount"`
}

// CheckoutService opens a transaction for a product purchase.
type CheckoutService interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}

// CheckoutRequest holds validated input for a checkout.
type CheckoutRequest struct {
	Family         domain.ProductFamily
	UserID         int64
	ProductID      string
	VoucherCode    string
	IdempotencyKey string
}

// CheckoutResult is the created transaction and how it was priced.
type CheckoutResult struct {
	Transaction *domain.Transaction `json:"transaction"`
	Price       decimal.Decimal     `json:"price"`
	Discount    decimal.Decimal     `json:"discount"`
	Replayed    bool                `json:"-"`
}

// WebhookReconciler applies gateway notifications to local transactions.
type WebhookReconciler interface {
	Reconcile(ctx context.Context, notification *domain.PaymentNotification) (*ReconcileResult, error)
}

// ReconcileResult reports what a notification did.
type ReconcileResult struct {
	Family         domain.ProductFamily     `json:"family"`
	TransactionID  string                   `json:"transaction_id"`
	PreviousStatus domain.TransactionStatus `json:"previous_status"`
	Status         domain.TransactionStatus `json:"status"`
	Mapped         bool                     `json:"mapped"`
	Fulfilled      bool                     `json:"fulfilled"`
}

// FulfillmentService grants entitlements and sends confirmations.
type FulfillmentService interface {
	// Grant runs inside the transaction that moved the purchase to success.
	Grant(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// Notify is best-effort and never returns an error.
	Notify(ctx context.Context, transaction *domain.Transaction)
}

// TransactionQueryService lets a buyer read their own purchase history.
type TransactionQueryService interface {
	ListMine(ctx context.Context, family domain.ProductFamily, userID int64, page, pageSize int) ([]domain.Transaction, int64, error)
	Logs(ctx context.Context, family domain.ProductFamily, transactionID string, userID int64) ([]domain.PaymentLog, error)
}
