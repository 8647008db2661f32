package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseFamily(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"course", true},
		{"premium", true},
		{"Course", false},
		{"", false},
		{"webinar", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok := ParseFamily(tt.in)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestTransaction_IsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		status TransactionStatus
		want   bool
	}{
		{"pending", TransactionStatusPending, false},
		{"success", TransactionStatusSuccess, true},
		{"failure", TransactionStatusFailure, false},
		{"challenge", TransactionStatusChallenge, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Status: tt.status}
			assert.Equal(t, tt.want, tx.IsTerminal())
		})
	}
}

func TestTransaction_Voucher(t *testing.T) {
	code := "SAVE10"
	assert.Equal(t, "SAVE10", (&Transaction{VoucherCode: &code}).Voucher())
	assert.Equal(t, "", (&Transaction{}).Voucher())
}

func TestVoucher_Discount(t *testing.T) {
	tests := []struct {
		name    string
		voucher Voucher
		price   decimal.Decimal
		want    decimal.Decimal
	}{
		{"fixed", Voucher{Type: VoucherTypeFixed, Nominal: dec("50000")}, dec("200000"), dec("50000")},
		{"percentage", Voucher{Type: VoucherTypePercentage, Nominal: dec("15")}, dec("200000"), dec("30000.00")},
		{"percentage rounds to cents", Voucher{Type: VoucherTypePercentage, Nominal: dec("33")}, dec("999.99"), dec("330.00")},
		{"fixed above price is not capped", Voucher{Type: VoucherTypeFixed, Nominal: dec("75000")}, dec("50000"), dec("75000")},
		{"unknown type", Voucher{Type: "Bogus", Nominal: dec("10")}, dec("1000"), decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.voucher.Discount(tt.price)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestApplyDiscount_ClampsAtZero(t *testing.T) {
	assert.True(t, dec("90000").Equal(ApplyDiscount(dec("100000"), dec("10000"))))
	assert.True(t, ApplyDiscount(dec("50000"), dec("75000")).IsZero())
	assert.True(t, ApplyDiscount(dec("50000"), dec("50000")).IsZero())
}

func TestVoucher_InWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)
	v := &Voucher{StartAt: start, EndAt: end}

	assert.True(t, v.InWindow(start), "start bound is inclusive")
	assert.True(t, v.InWindow(end), "end bound is inclusive")
	assert.True(t, v.InWindow(start.Add(24*time.Hour)))
	assert.False(t, v.InWindow(start.Add(-time.Second)))
	assert.False(t, v.InWindow(end.Add(time.Second)))
}

func TestVoucher_Exhausted(t *testing.T) {
	assert.True(t, (&Voucher{Quota: 0}).Exhausted())
	assert.False(t, (&Voucher{Quota: 1}).Exhausted())
}

func TestProduct_PayablePrice(t *testing.T) {
	discounted := dec("75000")

	assert.True(t, dec("100000").Equal(Product{Price: dec("100000")}.PayablePrice()))
	assert.True(t, discounted.Equal(Product{Price: dec("100000"), DiscountPrice: &discounted}.PayablePrice()))
}

func TestProduct_Snapshot(t *testing.T) {
	p := Product{Family: FamilyCourse, ID: "42", Title: "Go Fundamentals", Price: dec("100000")}

	raw, err := p.Snapshot()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "course", got["family"])
	assert.Equal(t, "42", got["id"])
	assert.Equal(t, "Go Fundamentals", got["title"])
}

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		txStatus string
		fraud    string
		want     TransactionStatus
		ok       bool
	}{
		{"capture", "challenge", TransactionStatusChallenge, true},
		{"capture", "accept", TransactionStatusSuccess, true},
		{"settlement", "", TransactionStatusSuccess, true},
		{"settlement", "accept", TransactionStatusSuccess, true},
		{"cancel", "", TransactionStatusFailure, true},
		{"deny", "accept", TransactionStatusFailure, true},
		{"expire", "", TransactionStatusFailure, true},
		{"pending", "", TransactionStatusPending, true},
		{"pending", "challenge", TransactionStatusPending, true},
		{"capture", "", "", false},
		{"capture", "deny", "", false},
		{"refund", "", "", false},
		{"authorize", "accept", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.txStatus+"/"+tt.fraud, func(t *testing.T) {
			got, ok := MapGatewayStatus(tt.txStatus, tt.fraud)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaymentNotification_RawPayload(t *testing.T) {
	n := &PaymentNotification{OrderID: "42", Raw: json.RawMessage(`{"order_id":"42","extra":true}`)}
	assert.JSONEq(t, `{"order_id":"42","extra":true}`, string(n.RawPayload()))

	n.Raw = nil
	var got map[string]any
	require.NoError(t, json.Unmarshal(n.RawPayload(), &got))
	assert.Equal(t, "42", got["order_id"])
}

func TestBuildCheckoutReplayKey(t *testing.T) {
	assert.Equal(t, "premium:7:abc-123", BuildCheckoutReplayKey(FamilyPremium, 7, "abc-123"))
}
