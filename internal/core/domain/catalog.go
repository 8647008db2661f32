package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Course is a purchasable course. DiscountPrice, when set, replaces Price.
type Course struct {
	ID            int64            `json:"id"`
	Title         string           `json:"title"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
}

// Batch is a scheduled cohort of a course.
type Batch struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
}

// PremiumProduct is a downloadable digital product.
type PremiumProduct struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	PurchaseCount int64            `json:"purchase_count"`
}

// User is the buyer as known to this service.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product is the family-agnostic view of whatever is being bought.
type Product struct {
	Family        ProductFamily    `json:"family"`
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Price         decimal.Decimal  `json:"price"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
}

// PayablePrice is the discounted list price if one exists, else the base price.
func (p Product) PayablePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// Snapshot serializes the product for Transaction.Meta.
func (p Product) Snapshot() (json.RawMessage, error) {
	return json.Marshal(p)
}
