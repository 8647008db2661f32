package domain

import "time"

// EntitlementStatus is the state of a granted access record.
type EntitlementStatus string

const EntitlementActive EntitlementStatus = "ACTIVE"

// Enrollment grants a user access to a course batch. BatchID is 0 for
// courses enrolled directly without a batch.
type Enrollment struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	CourseID      int64             `json:"course_id"`
	BatchID       int64             `json:"batch_id"`
	TransactionID string            `json:"transaction_id"`
	Status        EntitlementStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// PremiumPurchase grants a user access to a premium product.
type PremiumPurchase struct {
	ID                   string            `json:"id"`
	UserID               int64             `json:"user_id"`
	PremiumProductID     string            `json:"premium_product_id"`
	PremiumTransactionID string            `json:"premium_transaction_id"`
	Status               EntitlementStatus `json:"status"`
	CreatedAt            time.Time         `json:"created_at"`
}
