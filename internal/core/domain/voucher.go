package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherType selects how the nominal value is applied.
type VoucherType string

const (
	VoucherTypeFixed      VoucherType = "Fixed"
	VoucherTypePercentage VoucherType = "Persentase"
)

var hundred = decimal.NewFromInt(100)

// Voucher is a discount code with a quota, a validity window and a
// repeatability rule.
type Voucher struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Type         VoucherType     `json:"type"`
	Nominal      decimal.Decimal `json:"nominal"`
	Quota        int             `json:"quota"` // remaining uses
	StartAt      time.Time       `json:"start_at"`
	EndAt        time.Time       `json:"end_at"`
	IsRepeatable bool            `json:"is_repeatable"`
	IsActive     bool            `json:"is_active"`
}

// InWindow reports whether now falls within [StartAt, EndAt], bounds included.
func (v *Voucher) InWindow(now time.Time) bool {
	return !now.Before(v.StartAt) && !now.After(v.EndAt)
}

// Exhausted reports whether the quota is used up.
func (v *Voucher) Exhausted() bool {
	return v.Quota <= 0
}

// Discount computes the discount for the given payable price. The result is
// not capped; callers clamp the final amount at zero.
func (v *Voucher) Discount(price decimal.Decimal) decimal.Decimal {
	switch v.Type {
	case VoucherTypeFixed:
		return v.Nominal
	case VoucherTypePercentage:
		return v.Nominal.Mul(price).Div(hundred).Round(2)
	default:
		return decimal.Zero
	}
}

// ApplyDiscount subtracts discount from price, clamped at zero.
func ApplyDiscount(price, discount decimal.Decimal) decimal.Decimal {
	amount := price.Sub(discount)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
