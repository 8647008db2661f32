package service

import (
	"context"
	"errors"
	"testing"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/internal/core/ports/mocks"
	"academy-commerce/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupQueryService(t *testing.T) (ports.TransactionQueryService, *mocks.MockTransactionRepository, *mocks.MockPaymentLogRepository) {
	ctrl := gomock.NewController(t)
	txRepo := mocks.NewMockTransactionRepository(ctrl)
	logRepo := mocks.NewMockPaymentLogRepository(ctrl)
	txRepo.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()
	return NewTransactionQueryService([]ports.TransactionRepository{txRepo}, logRepo), txRepo, logRepo
}

func TestTransactionQuery_ListMine_NormalizesPaging(t *testing.T) {
	svc, txRepo, _ := setupQueryService(t)
	ctx := context.Background()

	txRepo.EXPECT().ListByUser(ctx, int64(7), 1, 20).Return([]domain.Transaction{{ID: "1"}}, int64(1), nil)
	txns, total, err := svc.ListMine(ctx, domain.FamilyCourse, 7, 0, 0)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
	assert.Equal(t, int64(1), total)

	txRepo.EXPECT().ListByUser(ctx, int64(7), 3, 100).Return(nil, int64(0), nil)
	_, _, err = svc.ListMine(ctx, domain.FamilyCourse, 7, 3, 500)
	require.NoError(t, err)
}

func TestTransactionQuery_ListMine_UnknownFamily(t *testing.T) {
	svc, _, _ := setupQueryService(t)

	_, _, err := svc.ListMine(context.Background(), domain.FamilyPremium, 7, 1, 20)
	assert.Equal(t, "SYS_002", apperror.CodeOf(err))
}

func TestTransactionQuery_ListMine_RepoError(t *testing.T) {
	svc, txRepo, _ := setupQueryService(t)
	txRepo.EXPECT().ListByUser(gomock.Any(), int64(7), 1, 20).Return(nil, int64(0), errors.New("boom"))

	_, _, err := svc.ListMine(context.Background(), domain.FamilyCourse, 7, 1, 20)
	assert.Equal(t, "SYS_001", apperror.CodeOf(err))
}

func TestTransactionQuery_Logs(t *testing.T) {
	svc, txRepo, logRepo := setupQueryService(t)
	ctx := context.Background()

	txRepo.EXPECT().GetByID(ctx, "1001").Return(&domain.Transaction{ID: "1001", UserID: 7}, nil)
	logRepo.EXPECT().ListByTransaction(ctx, domain.FamilyCourse, "1001").Return([]domain.PaymentLog{{ID: 1}, {ID: 2}}, nil)

	logs, err := svc.Logs(ctx, domain.FamilyCourse, "1001", 7)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestTransactionQuery_Logs_OtherUsersTransactionIsHidden(t *testing.T) {
	svc, txRepo, _ := setupQueryService(t)

	txRepo.EXPECT().GetByID(gomock.Any(), "1001").Return(&domain.Transaction{ID: "1001", UserID: 8}, nil)

	_, err := svc.Logs(context.Background(), domain.FamilyCourse, "1001", 7)
	assert.True(t, errors.Is(err, apperror.ErrTransactionNotFound()))
}
