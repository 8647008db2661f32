package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PaymentLogRepo implements ports.PaymentLogRepository. Rows of both
// families share the payment_logs table and are told apart by family.
type PaymentLogRepo struct {
	pool Pool
}

// NewPaymentLogRepo creates a new PaymentLogRepo.
func NewPaymentLogRepo(pool Pool) *PaymentLogRepo {
	return &PaymentLogRepo{pool: pool}
}

// Create appends a payment log row within a DB transaction.
func (r *PaymentLogRepo) Create(ctx context.Context, tx pgx.Tx, l *domain.PaymentLog) error {
	raw := string(l.RawResponse)
	if raw == "" {
		raw = "{}"
	}
	l.CreatedAt = time.Now().UTC()

	query := `INSERT INTO payment_logs (family, transaction_id, user_id, payment_method, status, raw_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		RETURNING id`

	err := tx.QueryRow(ctx, query,
		l.Family, l.TransactionID, l.UserID, l.PaymentMethod, l.Status, raw, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("insert payment log: %w", err)
	}
	return nil
}

// ListByTransaction returns the log rows of one transaction in arrival order.
func (r *PaymentLogRepo) ListByTransaction(ctx context.Context, family domain.ProductFamily, transactionID string) ([]domain.PaymentLog, error) {
	query := `SELECT id, family, transaction_id, user_id, payment_method, status, raw_response::text, created_at FROM payment_logs
		WHERE family = $1 AND transaction_id = $2 ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, family, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list payment logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.PaymentLog
	for rows.Next() {
		var l domain.PaymentLog
		var raw string
		if err := rows.Scan(&l.ID, &l.Family, &l.TransactionID, &l.UserID, &l.PaymentMethod, &l.Status, &raw, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment log: %w", err)
		}
		l.RawResponse = json.RawMessage(raw)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment log rows: %w", err)
	}
	return logs, nil
}
