package service

import (
	"context"
	"errors"
	"testing"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/internal/core/ports/mocks"
	"academy-commerce/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fulfillmentTestDeps struct {
	courseCatalog  *mocks.MockCatalog
	premiumCatalog *mocks.MockCatalog
	voucherRepo    *mocks.MockVoucherRepository
	userRepo       *mocks.MockUserRepository
	notifier       *mocks.MockNotifier
}

func setupFulfillment(t *testing.T, consumeOnSettlement bool) (*FulfillmentServiceImpl, *fulfillmentTestDeps) {
	ctrl := gomock.NewController(t)
	d := &fulfillmentTestDeps{
		courseCatalog:  mocks.NewMockCatalog(ctrl),
		premiumCatalog: mocks.NewMockCatalog(ctrl),
		voucherRepo:    mocks.NewMockVoucherRepository(ctrl),
		userRepo:       mocks.NewMockUserRepository(ctrl),
		notifier:       mocks.NewMockNotifier(ctrl),
	}
	d.courseCatalog.EXPECT().Family().Return(domain.FamilyCourse).AnyTimes()
	d.premiumCatalog.EXPECT().Family().Return(domain.FamilyPremium).AnyTimes()

	svc := NewFulfillmentService(
		[]ports.Catalog{d.courseCatalog, d.premiumCatalog},
		d.voucherRepo, d.userRepo, d.notifier, consumeOnSettlement, zerolog.Nop(),
	)
	return svc, d
}

func TestFulfillment_Grant_DispatchesByFamily(t *testing.T) {
	svc, d := setupFulfillment(t, false)
	tx := &mockTx{}
	txn := &domain.Transaction{ID: "p-tx", Family: domain.FamilyPremium, VoucherCode: strPtr("SAVE10")}

	d.premiumCatalog.EXPECT().Grant(gomock.Any(), tx, txn).Return(nil)
	// Quota was consumed at checkout; no DecrementQuota expected here.

	require.NoError(t, svc.Grant(context.Background(), tx, txn))
}

func TestFulfillment_Grant_ConsumesVoucherAtSettlement(t *testing.T) {
	svc, d := setupFulfillment(t, true)
	tx := &mockTx{}
	txn := &domain.Transaction{ID: "1", Family: domain.FamilyCourse, VoucherCode: strPtr("SAVE10")}

	gomock.InOrder(
		d.voucherRepo.EXPECT().DecrementQuota(gomock.Any(), tx, "SAVE10").Return(nil),
		d.courseCatalog.EXPECT().Grant(gomock.Any(), tx, txn).Return(nil),
	)

	require.NoError(t, svc.Grant(context.Background(), tx, txn))
}

func TestFulfillment_Grant_ExhaustedAtSettlementStillGrants(t *testing.T) {
	svc, d := setupFulfillment(t, true)
	tx := &mockTx{}
	txn := &domain.Transaction{ID: "1", Family: domain.FamilyCourse, VoucherCode: strPtr("SAVE10")}

	d.voucherRepo.EXPECT().DecrementQuota(gomock.Any(), tx, "SAVE10").Return(apperror.ErrVoucherExhausted())
	d.courseCatalog.EXPECT().Grant(gomock.Any(), tx, txn).Return(nil)

	require.NoError(t, svc.Grant(context.Background(), tx, txn))
}

func TestFulfillment_Grant_PropagatesEntitlementError(t *testing.T) {
	svc, d := setupFulfillment(t, false)
	txn := &domain.Transaction{ID: "1", Family: domain.FamilyCourse}

	d.courseCatalog.EXPECT().Grant(gomock.Any(), gomock.Any(), txn).Return(apperror.ErrDatabaseError(errors.New("unique violation")))

	err := svc.Grant(context.Background(), &mockTx{}, txn)
	assert.Equal(t, "SYS_001", apperror.CodeOf(err))
}

func TestFulfillment_Grant_UnknownFamily(t *testing.T) {
	svc, _ := setupFulfillment(t, false)

	err := svc.Grant(context.Background(), &mockTx{}, &domain.Transaction{ID: "1", Family: "webinar"})
	assert.Error(t, err)
}

func TestFulfillment_Notify_SendsCourseMail(t *testing.T) {
	svc, d := setupFulfillment(t, false)
	ctx := context.Background()
	txn := &domain.Transaction{ID: "1001", Family: domain.FamilyCourse, UserID: 7, ProductID: "42", Amount: dec("90000")}

	d.userRepo.EXPECT().GetByID(ctx, int64(7)).Return(&domain.User{ID: 7, Name: "Ayu", Email: "ayu@example.com"}, nil)
	d.courseCatalog.EXPECT().Quote(ctx, "42").Return(&domain.Product{ID: "42", Title: "Go Fundamentals"}, nil)
	d.notifier.EXPECT().Send(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, m ports.Mail) error {
		assert.Equal(t, "ayu@example.com", m.To)
		assert.Equal(t, TemplateCourseEnrollment, m.Template)
		assert.Equal(t, "Go Fundamentals", m.Data["product_title"])
		assert.Equal(t, "90000.00", m.Data["amount"])
		return nil
	})

	svc.Notify(ctx, txn)
}

func TestFulfillment_Notify_SwallowsFailures(t *testing.T) {
	t.Run("send fails", func(t *testing.T) {
		svc, d := setupFulfillment(t, false)
		txn := &domain.Transaction{ID: "p-1", Family: domain.FamilyPremium, UserID: 7, ProductID: "prod"}

		d.userRepo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(&domain.User{ID: 7, Email: "a@b.c"}, nil)
		d.premiumCatalog.EXPECT().Quote(gomock.Any(), "prod").Return(&domain.Product{ID: "prod", Title: "E-book"}, nil)
		d.notifier.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		assert.NotPanics(t, func() { svc.Notify(context.Background(), txn) })
	})

	t.Run("user missing", func(t *testing.T) {
		svc, d := setupFulfillment(t, false)
		d.userRepo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(nil, nil)

		svc.Notify(context.Background(), &domain.Transaction{ID: "1", Family: domain.FamilyCourse, UserID: 7})
	})

	t.Run("product lookup fails", func(t *testing.T) {
		svc, d := setupFulfillment(t, false)
		d.userRepo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(&domain.User{ID: 7}, nil)
		d.courseCatalog.EXPECT().Quote(gomock.Any(), "42").Return(nil, apperror.ErrNotFound("Course"))

		svc.Notify(context.Background(), &domain.Transaction{ID: "1", Family: domain.FamilyCourse, UserID: 7, ProductID: "42"})
	})
}
