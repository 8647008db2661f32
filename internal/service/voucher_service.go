package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/shopspring/decimal"
)

// VoucherServiceImpl implements ports.VoucherService. It never changes quota;
// the checkout commit path owns the decrement.
type VoucherServiceImpl struct {
	voucherRepo ports.VoucherRepository
	txRepos     map[domain.ProductFamily]ports.TransactionRepository
	catalogs    map[domain.ProductFamily]ports.Catalog
	now         func() time.Time
}

// NewVoucherService creates a new VoucherServiceImpl.
func NewVoucherService(
	voucherRepo ports.VoucherRepository,
	txRepos []ports.TransactionRepository,
	catalogs []ports.Catalog,
) *VoucherServiceImpl {
	return &VoucherServiceImpl{
		voucherRepo: voucherRepo,
		txRepos:     indexTransactionRepos(txRepos),
		catalogs:    indexCatalogs(catalogs),
		now:         time.Now,
	}
}

// Evaluate validates code for the buyer and returns the discount it grants on price.
// Checks run in a fixed order and the first failure wins.
func (s *VoucherServiceImpl) Evaluate(
	ctx context.Context,
	code string,
	price decimal.Decimal,
	userID int64,
	family domain.ProductFamily,
) (decimal.Decimal, *domain.Voucher, error) {
	voucher, err := s.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		return decimal.Zero, nil, apperror.ErrDatabaseError(fmt.Errorf("get voucher: %w", err))
	}
	if voucher == nil {
		return decimal.Zero, nil, apperror.ErrVoucherNotFound()
	}
	if !voucher.IsActive {
		return decimal.Zero, nil, apperror.ErrVoucherInactive()
	}
	if !voucher.InWindow(s.now()) {
		return decimal.Zero, nil, apperror.ErrVoucherOutsideWindow()
	}
	if voucher.Exhausted() {
		return decimal.Zero, nil, apperror.ErrVoucherExhausted()
	}

	if !voucher.IsRepeatable {
		txRepo, ok := s.txRepos[family]
		if !ok {
			return decimal.Zero, nil, apperror.Validation(fmt.Sprintf("unknown product family %q", family))
		}
		// Any earlier transaction counts, whatever its status.
		used, err := txRepo.ExistsByUserAndVoucher(ctx, userID, voucher.Code)
		if err != nil {
			return decimal.Zero, nil, apperror.ErrDatabaseError(fmt.Errorf("check voucher usage: %w", err))
		}
		if used {
			return decimal.Zero, nil, apperror.ErrVoucherAlreadyUsed()
		}
	}

	return voucher.Discount(price), voucher, nil
}

// Preview computes the would-be discount for one product without mutating anything.
func (s *VoucherServiceImpl) Preview(ctx context.Context, req ports.VoucherCheckRequest) (*ports.VoucherPreview, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, apperror.Validation("code is required")
	}

	var family domain.ProductFamily
	var productID string
	switch {
	case req.CourseID != "" && req.PremiumProductID != "":
		return nil, apperror.Validation("only one of course_id and premium_product_id may be given")
	case req.CourseID != "":
		family, productID = domain.FamilyCourse, req.CourseID
	case req.PremiumProductID != "":
		family, productID = domain.FamilyPremium, req.PremiumProductID
	default:
		return nil, apperror.Validation("one of course_id and premium_product_id is required")
	}

	catalog, ok := s.catalogs[family]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown product family %q", family))
	}
	product, err := catalog.Quote(ctx, productID)
	if err != nil {
		return nil, err
	}

	price := product.PayablePrice()
	discount, voucher, err := s.Evaluate(ctx, code, price, req.UserID, family)
	if err != nil {
		return nil, err
	}

	return &ports.VoucherPreview{
		Code:      voucher.Code,
		Type:      voucher.Type,
		Family:    family,
		ProductID: product.ID,
		Price:     price,
		Discount:  discount,
		Amount:    domain.ApplyDiscount(price, discount),
	}, nil
}

func indexTransactionRepos(repos []ports.TransactionRepository) map[domain.ProductFamily]ports.TransactionRepository {
	m := make(map[domain.ProductFamily]ports.TransactionRepository, len(repos))
	for _, r := range repos {
		m[r.Family()] = r
	}
	return m
}

func indexCatalogs(catalogs []ports.Catalog) map[domain.ProductFamily]ports.Catalog {
	m := make(map[domain.ProductFamily]ports.Catalog, len(catalogs))
	for _, c := range catalogs {
		m[c.Family()] = c
	}
	return m
}
