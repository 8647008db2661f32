package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository persists the checkout transactions of one product family.
// Methods accepting pgx.Tx run inside the caller's transaction block.
type TransactionRepository interface {
	Family() domain.ProductFamily
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	// GetByID returns nil, nil when no row matches, including ids that are not
	// well-formed for this family.
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status domain.TransactionStatus) error
	SetSnapSession(ctx context.Context, tx pgx.Tx, id, token, redirectURL string) error
	ExistsByUserAndVoucher(ctx context.Context, userID int64, voucherCode string) (bool, error)
	ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Transaction, int64, error)
	// ListStale returns pending and challenge transactions created before
	// olderThan, oldest first, starting after the given cursor.
	ListStale(ctx context.Context, olderThan time.Time, after domain.StaleCursor, limit int) ([]domain.Transaction, error)
}

// PaymentLogRepository persists the append-only gateway notification log.
type PaymentLogRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.PaymentLog) error
	ListByTransaction(ctx context.Context, family domain.ProductFamily, transactionID string) ([]domain.PaymentLog, error)
}

// VoucherRepository defines persistence operations for vouchers.
type VoucherRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)
	// DecrementQuota takes one use. It fails with ErrVoucherExhausted when the
	// quota is already zero.
	DecrementQuota(ctx context.Context, tx pgx.Tx, code string) error
}

// CourseRepository reads courses and their batches.
type CourseRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Course, error)
	// NextBatch returns the earliest batch starting after now, or nil.
	NextBatch(ctx context.Context, courseID int64, now time.Time) (*domain.Batch, error)
}

// EnrollmentRepository persists course entitlements.
type EnrollmentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, enrollment *domain.Enrollment) error
	ExistsActive(ctx context.Context, userID, courseID, batchID int64) (bool, error)
}

// PremiumProductRepository reads premium products and maintains their counters.
type PremiumProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.PremiumProduct, error)
	IncrementPurchaseCount(ctx context.Context, tx pgx.Tx, id string) error
}

// PremiumPurchaseRepository persists premium entitlements.
type PremiumPurchaseRepository interface {
	Create(ctx context.Context, tx pgx.Tx, purchase *domain.PremiumPurchase) error
	Exists(ctx context.Context, userID int64, premiumProductID string) (bool, error)
}

// UserRepository reads buyers.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
