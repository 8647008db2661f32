package postgres

import (
	"context"
	"errors"
	"fmt"

	"academy-commerce/internal/core/domain"
	"academy-commerce/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// VoucherRepo implements ports.VoucherRepository.
type VoucherRepo struct {
	pool Pool
}

// NewVoucherRepo creates a new VoucherRepo.
func NewVoucherRepo(pool Pool) *VoucherRepo {
	return &VoucherRepo{pool: pool}
}

// GetByCode fetches a voucher by its code. Returns nil, nil when absent.
func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := `SELECT id, code, type, nominal::text, quota, start_at, end_at, is_repeatable, is_active FROM vouchers WHERE code = $1`

	var v domain.Voucher
	var nominal string
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&v.ID, &v.Code, &v.Type, &nominal, &v.Quota, &v.StartAt, &v.EndAt, &v.IsRepeatable, &v.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}
	if v.Nominal, err = parseDecimal("nominal", nominal); err != nil {
		return nil, err
	}
	return &v, nil
}

// DecrementQuota consumes one use of the voucher. The conditional update is
// the only guard against two checkouts racing for the last use.
func (r *VoucherRepo) DecrementQuota(ctx context.Context, tx pgx.Tx, code string) error {
	query := `UPDATE vouchers SET quota = quota - 1, updated_at = NOW() WHERE code = $1 AND quota > 0`

	tag, err := tx.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("decrement voucher quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrVoucherExhausted()
	}
	return nil
}
