package service

import (
	"context"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	nested     *mockTx
}

// Begin returns the savepoint transaction, the same one on every call.
func (m *mockTx) Begin(_ context.Context) (pgx.Tx, error) {
	return m.savepoint(), nil
}

func (m *mockTx) savepoint() *mockTx {
	if m.nested == nil {
		m.nested = &mockTx{}
	}
	return m.nested
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

func activeVoucher(code string, typ domain.VoucherType, nominal string, quota int) *domain.Voucher {
	now := time.Now()
	return &domain.Voucher{
		ID:       1,
		Code:     code,
		Type:     typ,
		Nominal:  dec(nominal),
		Quota:    quota,
		StartAt:  now.Add(-24 * time.Hour),
		EndAt:    now.Add(24 * time.Hour),
		IsActive: true,
	}
}
