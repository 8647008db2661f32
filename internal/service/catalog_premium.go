package service

import (
	"context"
	"fmt"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PremiumCatalog implements ports.Catalog for premium product purchases.
type PremiumCatalog struct {
	products  ports.PremiumProductRepository
	purchases ports.PremiumPurchaseRepository
}

// NewPremiumCatalog creates a new PremiumCatalog.
func NewPremiumCatalog(products ports.PremiumProductRepository, purchases ports.PremiumPurchaseRepository) *PremiumCatalog {
	return &PremiumCatalog{products: products, purchases: purchases}
}

func (c *PremiumCatalog) Family() domain.ProductFamily { return domain.FamilyPremium }

func (c *PremiumCatalog) Quote(ctx context.Context, productID string) (*domain.Product, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, apperror.ErrNotFound("Premium product")
	}
	product, err := c.products.GetByID(ctx, productID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get premium product: %w", err))
	}
	if product == nil {
		return nil, apperror.ErrNotFound("Premium product")
	}
	return &domain.Product{
		Family:        domain.FamilyPremium,
		ID:            product.ID,
		Title:         product.Title,
		Price:         product.Price,
		DiscountPrice: product.DiscountPrice,
	}, nil
}

// HasEntitlement reports any earlier purchase of the product. Premium
// products can only ever be bought once.
func (c *PremiumCatalog) HasEntitlement(ctx context.Context, userID int64, productID string) (bool, error) {
	owned, err := c.purchases.Exists(ctx, userID, productID)
	if err != nil {
		return false, apperror.ErrDatabaseError(fmt.Errorf("check premium purchase: %w", err))
	}
	return owned, nil
}

// Grant records the purchase and bumps the product's purchase counter.
func (c *PremiumCatalog) Grant(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	purchase := &domain.PremiumPurchase{
		UserID:               t.UserID,
		PremiumProductID:     t.ProductID,
		PremiumTransactionID: t.ID,
		Status:               domain.EntitlementActive,
	}
	if err := c.purchases.Create(ctx, tx, purchase); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("create premium purchase: %w", err))
	}
	if err := c.products.IncrementPurchaseCount(ctx, tx, t.ProductID); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("increment purchase count: %w", err))
	}
	return nil
}
