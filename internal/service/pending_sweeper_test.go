package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/internal/core/ports/mocks"
	"academy-commerce/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestPendingSweeper_RunOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	courseRepo := mocks.NewMockTransactionRepository(ctrl)
	premiumRepo := mocks.NewMockTransactionRepository(ctrl)
	gateway := mocks.NewMockPaymentGateway(ctrl)
	reconciler := mocks.NewMockWebhookReconciler(ctrl)
	courseRepo.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()
	premiumRepo.EXPECT().Family().Return(domain.FamilyPremium).AnyTimes()

	sweeper := NewPendingSweeper(
		[]ports.TransactionRepository{courseRepo, premiumRepo},
		gateway, reconciler, nil, SweepOptions{MinAge: 30 * time.Minute, BatchSize: 50}, zerolog.Nop(),
	)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }
	cutoff := now.Add(-30 * time.Minute)

	settled := &domain.PaymentNotification{OrderID: "1", TransactionStatus: "settlement"}
	raced := &domain.PaymentNotification{OrderID: "2", TransactionStatus: "settlement"}
	stillPending := &domain.PaymentNotification{OrderID: "4", TransactionStatus: "pending"}
	pending := []domain.Transaction{
		{ID: "1", Status: domain.TransactionStatusPending},
		{ID: "2", Status: domain.TransactionStatusPending},
		{ID: "3", Status: domain.TransactionStatusPending},
		{ID: "4", Status: domain.TransactionStatusPending},
	}

	courseRepo.EXPECT().ListStale(gomock.Any(), cutoff, domain.StaleCursor{}, 50).Return(pending, nil)
	premiumRepo.EXPECT().ListStale(gomock.Any(), cutoff, domain.StaleCursor{}, 50).Return(nil, errors.New("db down"))

	gateway.EXPECT().CheckStatus(gomock.Any(), "1").Return(settled, nil)
	gateway.EXPECT().CheckStatus(gomock.Any(), "2").Return(raced, nil)
	gateway.EXPECT().CheckStatus(gomock.Any(), "3").Return(nil, apperror.ErrGatewayUnavailable(errors.New("timeout")))
	gateway.EXPECT().CheckStatus(gomock.Any(), "4").Return(stillPending, nil)

	reconciler.EXPECT().Reconcile(gomock.Any(), settled).Return(&ports.ReconcileResult{Status: domain.TransactionStatusSuccess}, nil)
	reconciler.EXPECT().Reconcile(gomock.Any(), raced).Return(nil, apperror.ErrAlreadyProcessed())

	stats := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepStats{Checked: 4, Reconciled: 1, Unchanged: 2, Failed: 1}, stats)
	assert.Empty(t, sweeper.cursors, "short pages restart from the oldest row")
}

func TestPendingSweeper_SkipsUnmappedStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	gateway := mocks.NewMockPaymentGateway(ctrl)
	reconciler := mocks.NewMockWebhookReconciler(ctrl)
	repo.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()

	sweeper := NewPendingSweeper(
		[]ports.TransactionRepository{repo}, gateway, reconciler, nil,
		SweepOptions{BatchSize: 10}, zerolog.Nop(),
	)
	repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.StaleCursor{}, 10).
		Return([]domain.Transaction{{ID: "1", Status: domain.TransactionStatusChallenge}}, nil)
	gateway.EXPECT().CheckStatus(gomock.Any(), "1").
		Return(&domain.PaymentNotification{OrderID: "1", TransactionStatus: "refund"}, nil)

	stats := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepStats{Checked: 1, Unchanged: 1}, stats)
}

func TestPendingSweeper_PagesPastUnknownOrders(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	gateway := mocks.NewMockPaymentGateway(ctrl)
	reconciler := mocks.NewMockWebhookReconciler(ctrl)
	repo.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()

	sweeper := NewPendingSweeper(
		[]ports.TransactionRepository{repo}, gateway, reconciler, nil,
		SweepOptions{BatchSize: 1}, zerolog.Nop(),
	)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	oldest := domain.Transaction{ID: "1001", Status: domain.TransactionStatusPending, CreatedAt: created}
	newer := domain.Transaction{ID: "1002", Status: domain.TransactionStatusPending, CreatedAt: created.Add(time.Minute)}
	settled := &domain.PaymentNotification{OrderID: "1002", TransactionStatus: "settlement"}

	gomock.InOrder(
		repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.StaleCursor{}, 1).Return([]domain.Transaction{oldest}, nil),
		gateway.EXPECT().CheckStatus(gomock.Any(), "1001").Return(nil, apperror.ErrTransactionNotFound()),
		repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.CursorAfter(&oldest), 1).Return([]domain.Transaction{newer}, nil),
		gateway.EXPECT().CheckStatus(gomock.Any(), "1002").Return(settled, nil),
		reconciler.EXPECT().Reconcile(gomock.Any(), settled).Return(&ports.ReconcileResult{Status: domain.TransactionStatusSuccess}, nil),
		repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.CursorAfter(&newer), 1).Return(nil, nil),
		repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.StaleCursor{}, 1).Return([]domain.Transaction{oldest}, nil),
		gateway.EXPECT().CheckStatus(gomock.Any(), "1001").Return(nil, apperror.ErrTransactionNotFound()),
	)

	var total SweepStats
	for i := 0; i < 4; i++ {
		stats := sweeper.RunOnce(context.Background())
		total.Checked += stats.Checked
		total.Reconciled += stats.Reconciled
		total.Unchanged += stats.Unchanged
	}
	assert.Equal(t, SweepStats{Checked: 3, Reconciled: 1, Unchanged: 2}, total)
}

func TestPendingSweeper_ExpiresAbandonedOrder(t *testing.T) {
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		locked    *domain.Transaction
		wantStats SweepStats
		wantWrite bool
	}{
		{
			name:      "still pending",
			locked:    &domain.Transaction{ID: "1001", Family: domain.FamilyCourse, Status: domain.TransactionStatusPending},
			wantStats: SweepStats{Checked: 1, Expired: 1},
			wantWrite: true,
		},
		{
			name:      "settled meanwhile",
			locked:    &domain.Transaction{ID: "1001", Family: domain.FamilyCourse, Status: domain.TransactionStatusSuccess},
			wantStats: SweepStats{Checked: 1, Unchanged: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockTransactionRepository(ctrl)
			gateway := mocks.NewMockPaymentGateway(ctrl)
			transactor := mocks.NewMockDBTransactor(ctrl)
			repo.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()

			sweeper := NewPendingSweeper(
				[]ports.TransactionRepository{repo}, gateway, nil, transactor,
				SweepOptions{BatchSize: 10, ExpireAfter: 24 * time.Hour}, zerolog.Nop(),
			)
			sweeper.now = func() time.Time { return now }

			stale := domain.Transaction{ID: "1001", Status: domain.TransactionStatusPending, CreatedAt: now.Add(-25 * time.Hour)}
			tx := &mockTx{}
			repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.StaleCursor{}, 10).Return([]domain.Transaction{stale}, nil)
			gateway.EXPECT().CheckStatus(gomock.Any(), "1001").Return(nil, apperror.ErrTransactionNotFound())
			transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
			repo.EXPECT().GetByIDForUpdate(gomock.Any(), tx, "1001").Return(tt.locked, nil)
			if tt.wantWrite {
				repo.EXPECT().UpdateStatus(gomock.Any(), tx, "1001", domain.TransactionStatusFailure).Return(nil)
			}

			stats := sweeper.RunOnce(context.Background())
			assert.Equal(t, tt.wantStats, stats)
			assert.Equal(t, tt.wantWrite, tx.committed)
		})
	}
}

func TestPendingSweeper_KeepsRecentUnknownOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTransactionRepository(ctrl)
	gateway := mocks.NewMockPaymentGateway(ctrl)
	repo.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()

	// no transactor expectations: nothing may be written
	sweeper := NewPendingSweeper(
		[]ports.TransactionRepository{repo}, gateway, nil, mocks.NewMockDBTransactor(ctrl),
		SweepOptions{BatchSize: 10, ExpireAfter: 24 * time.Hour}, zerolog.Nop(),
	)
	now := time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	repo.EXPECT().ListStale(gomock.Any(), gomock.Any(), domain.StaleCursor{}, 10).
		Return([]domain.Transaction{{ID: "1001", Status: domain.TransactionStatusPending, CreatedAt: now.Add(-2 * time.Hour)}}, nil)
	gateway.EXPECT().CheckStatus(gomock.Any(), "1001").Return(nil, apperror.ErrTransactionNotFound())

	stats := sweeper.RunOnce(context.Background())
	assert.Equal(t, SweepStats{Checked: 1, Unchanged: 1}, stats)
}

func TestPendingSweeper_StartRejectsBadSchedule(t *testing.T) {
	sweeper := NewPendingSweeper(nil, nil, nil, nil, SweepOptions{MinAge: time.Minute}, zerolog.Nop())

	assert.Error(t, sweeper.Start("not a schedule"))
	assert.NotPanics(t, sweeper.Stop)
}

func TestPendingSweeper_StartStop(t *testing.T) {
	sweeper := NewPendingSweeper(nil, nil, nil, nil, SweepOptions{MinAge: time.Minute}, zerolog.Nop())

	require.NoError(t, sweeper.Start("@every 1h"))
	sweeper.Stop()
}

func TestPendingSweeper_Acquire(t *testing.T) {
	ctrl := gomock.NewController(t)
	lock := mocks.NewMockRunLock(ctrl)
	sweeper := NewPendingSweeper(nil, nil, nil, nil, SweepOptions{MinAge: time.Minute}, zerolog.Nop())

	assert.True(t, sweeper.acquire(context.Background()), "no lock configured")

	sweeper.WithLock(lock)
	gomock.InOrder(
		lock.EXPECT().Acquire(gomock.Any(), "pending-sweeper", sweepTimeout).Return(true, nil),
		lock.EXPECT().Acquire(gomock.Any(), "pending-sweeper", sweepTimeout).Return(false, nil),
		lock.EXPECT().Acquire(gomock.Any(), "pending-sweeper", sweepTimeout).Return(false, errors.New("redis down")),
	)

	assert.True(t, sweeper.acquire(context.Background()))
	assert.False(t, sweeper.acquire(context.Background()))
	assert.False(t, sweeper.acquire(context.Background()))
}
