package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// transactionTable describes one family's transaction table. Course rows
// use a bigserial key, premium rows a UUID generated by the application.
type transactionTable struct {
	family        domain.ProductFamily
	name          string
	productColumn string
	keyType       string // bigint | uuid
	validID       func(string) bool
}

var (
	courseTransactions = transactionTable{
		family:        domain.FamilyCourse,
		name:          "course_transactions",
		productColumn: "course_id",
		keyType:       "bigint",
		validID:       isBigintID,
	}
	premiumTransactions = transactionTable{
		family:        domain.FamilyPremium,
		name:          "premium_transactions",
		productColumn: "premium_product_id",
		keyType:       "uuid",
		validID:       isUUID,
	}
)

// TransactionRepo implements ports.TransactionRepository for one family.
type TransactionRepo struct {
	pool  Pool
	table transactionTable
	cols  string
}

// NewCourseTransactionRepo creates the repository for course_transactions.
func NewCourseTransactionRepo(pool Pool) *TransactionRepo {
	return newTransactionRepo(pool, courseTransactions)
}

// NewPremiumTransactionRepo creates the repository for premium_transactions.
func NewPremiumTransactionRepo(pool Pool) *TransactionRepo {
	return newTransactionRepo(pool, premiumTransactions)
}

func newTransactionRepo(pool Pool, table transactionTable) *TransactionRepo {
	return &TransactionRepo{
		pool:  pool,
		table: table,
		cols: fmt.Sprintf(`id::text, user_id, %s::text, voucher_code, amount::text, status, meta::text, snap_token, snap_redirect_url, created_at, updated_at`,
			table.productColumn),
	}
}

// Family returns the product family this repository serves.
func (r *TransactionRepo) Family() domain.ProductFamily {
	return r.table.family
}

// Create inserts a new transaction and fills in its ID and timestamps.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	now := time.Now().UTC()
	meta := string(t.Meta)
	if meta == "" {
		meta = "{}"
	}

	var row pgx.Row
	if r.table.keyType == "uuid" {
		query := fmt.Sprintf(`INSERT INTO %s (id, user_id, %s, voucher_code, amount, status, meta, created_at, updated_at)
		VALUES ($1::text::uuid, $2, $3::text::uuid, $4, $5::text::numeric, $6, $7::jsonb, $8, $8)
		RETURNING id::text`, r.table.name, r.table.productColumn)
		row = tx.QueryRow(ctx, query, uuid.NewString(), t.UserID, t.ProductID, t.VoucherCode, t.Amount.String(), t.Status, meta, now)
	} else {
		query := fmt.Sprintf(`INSERT INTO %s (user_id, %s, voucher_code, amount, status, meta, created_at, updated_at)
		VALUES ($1, $2::text::bigint, $3, $4::text::numeric, $5, $6::jsonb, $7, $7)
		RETURNING id::text`, r.table.name, r.table.productColumn)
		row = tx.QueryRow(ctx, query, t.UserID, t.ProductID, t.VoucherCode, t.Amount.String(), t.Status, meta, now)
	}

	if err := row.Scan(&t.ID); err != nil {
		return fmt.Errorf("insert %s: %w", r.table.name, err)
	}
	t.Family = r.table.family
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// GetByID fetches a transaction. Ids malformed for this family match nothing.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	if !r.table.validID(id) {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1::text::%s`, r.cols, r.table.name, r.table.keyType)
	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches and row-locks a transaction until tx ends.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Transaction, error) {
	if !r.table.validID(id) {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1::text::%s FOR UPDATE`, r.cols, r.table.name, r.table.keyType)
	return r.scanTransaction(tx.QueryRow(ctx, query, id))
}

// UpdateStatus sets the status of a transaction.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status domain.TransactionStatus) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = $2 WHERE id = $3::text::%s`, r.table.name, r.table.keyType)

	tag, err := tx.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update %s status: %w", r.table.name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// SetSnapSession stores the hosted checkout token on a transaction.
func (r *TransactionRepo) SetSnapSession(ctx context.Context, tx pgx.Tx, id, token, redirectURL string) error {
	query := fmt.Sprintf(`UPDATE %s SET snap_token = $1, snap_redirect_url = $2, updated_at = $3 WHERE id = $4::text::%s`,
		r.table.name, r.table.keyType)

	tag, err := tx.Exec(ctx, query, token, redirectURL, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set snap session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// ExistsByUserAndVoucher reports whether the user has any transaction in this
// family that used voucherCode, whatever its status.
func (r *TransactionRepo) ExistsByUserAndVoucher(ctx context.Context, userID int64, voucherCode string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE user_id = $1 AND voucher_code = $2)`, r.table.name)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, voucherCode).Scan(&exists); err != nil {
		return false, fmt.Errorf("check voucher usage: %w", err)
	}
	return exists, nil
}

// ListByUser returns one page of the user's transactions, newest first.
func (r *TransactionRepo) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]domain.Transaction, int64, error) {
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, r.table.name)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	offset := (page - 1) * pageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		r.cols, r.table.name)
	txns, err := r.queryTransactions(ctx, dataQuery, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ListStale returns pending and challenge transactions created before olderThan,
// oldest first. A non-zero cursor resumes the listing after that row.
func (r *TransactionRepo) ListStale(ctx context.Context, olderThan time.Time, after domain.StaleCursor, limit int) ([]domain.Transaction, error) {
	if after.IsZero() {
		query := fmt.Sprintf(`SELECT %s FROM %s WHERE status IN ('pending', 'challenge') AND created_at < $1
			ORDER BY created_at ASC, id ASC LIMIT $2`, r.cols, r.table.name)
		return r.queryTransactions(ctx, query, olderThan, limit)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status IN ('pending', 'challenge') AND created_at < $1
			AND (created_at, id) > ($3, $4::text::%s)
			ORDER BY created_at ASC, id ASC LIMIT $2`, r.cols, r.table.name, r.table.keyType)
	return r.queryTransactions(ctx, query, olderThan, limit, after.CreatedAt, after.ID)
}

func (r *TransactionRepo) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

// scanTransaction is a helper to scan a single row into a Transaction.
func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{Family: r.table.family}
	var amount string
	var meta *string
	err := row.Scan(
		&t.ID, &t.UserID, &t.ProductID, &t.VoucherCode, &amount, &t.Status,
		&meta, &t.SnapToken, &t.SnapRedirectURL, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if t.Amount, err = parseDecimal("amount", amount); err != nil {
		return nil, err
	}
	if meta != nil {
		t.Meta = json.RawMessage(*meta)
	}
	return t, nil
}
