package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PremiumProductRepo implements ports.PremiumProductRepository.
type PremiumProductRepo struct {
	pool Pool
}

// NewPremiumProductRepo creates a new PremiumProductRepo.
func NewPremiumProductRepo(pool Pool) *PremiumProductRepo {
	return &PremiumProductRepo{pool: pool}
}

// GetByID fetches a premium product. Returns nil, nil when absent or when id is not a UUID.
func (r *PremiumProductRepo) GetByID(ctx context.Context, id string) (*domain.PremiumProduct, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT id::text, title, price::text, discount_price::text, purchase_count FROM premium_products WHERE id = $1::text::uuid`

	var p domain.PremiumProduct
	var price string
	var discount *string
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Title, &price, &discount, &p.PurchaseCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get premium product by id: %w", err)
	}

	if p.Price, err = parseDecimal("price", price); err != nil {
		return nil, err
	}
	if p.DiscountPrice, err = parseNullDecimal("discount_price", discount); err != nil {
		return nil, err
	}
	return &p, nil
}

// IncrementPurchaseCount bumps the denormalized purchase counter.
func (r *PremiumProductRepo) IncrementPurchaseCount(ctx context.Context, tx pgx.Tx, id string) error {
	query := `UPDATE premium_products SET purchase_count = purchase_count + 1 WHERE id = $1::text::uuid`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment purchase count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("premium product not found: %s", id)
	}
	return nil
}

// PremiumPurchaseRepo implements ports.PremiumPurchaseRepository.
type PremiumPurchaseRepo struct {
	pool Pool
}

// NewPremiumPurchaseRepo creates a new PremiumPurchaseRepo.
func NewPremiumPurchaseRepo(pool Pool) *PremiumPurchaseRepo {
	return &PremiumPurchaseRepo{pool: pool}
}

// Create inserts a purchase. UNIQUE(premium_transaction_id) rejects a second
// purchase for the same transaction.
func (r *PremiumPurchaseRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PremiumPurchase) error {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()

	query := `INSERT INTO premium_purchases (id, user_id, premium_product_id, premium_transaction_id, status, created_at)
		VALUES ($1::text::uuid, $2, $3::text::uuid, $4::text::uuid, $5, $6)`

	_, err := tx.Exec(ctx, query, p.ID, p.UserID, p.PremiumProductID, p.PremiumTransactionID, p.Status, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert premium purchase: %w", err)
	}
	return nil
}

// Exists reports whether the user has ever purchased the product.
func (r *PremiumPurchaseRepo) Exists(ctx context.Context, userID int64, productID string) (bool, error) {
	if !isUUID(productID) {
		return false, nil
	}
	query := `SELECT EXISTS(SELECT 1 FROM premium_purchases WHERE user_id = $1 AND premium_product_id = $2::text::uuid)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, productID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check premium purchase: %w", err)
	}
	return exists, nil
}
