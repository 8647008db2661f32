package postgres

import (
	"context"
	"fmt"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// EnrollmentRepo implements ports.EnrollmentRepository.
type EnrollmentRepo struct {
	pool Pool
}

// NewEnrollmentRepo creates a new EnrollmentRepo.
func NewEnrollmentRepo(pool Pool) *EnrollmentRepo {
	return &EnrollmentRepo{pool: pool}
}

// Create inserts an enrollment. The UNIQUE(transaction_id) constraint rejects
// a second enrollment for the same course transaction.
func (r *EnrollmentRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.Enrollment) error {
	e.CreatedAt = time.Now().UTC()

	query := `INSERT INTO enrollments (user_id, course_id, batch_id, transaction_id, status, created_at)
		VALUES ($1, $2, $3, $4::text::bigint, $5, $6)
		RETURNING id`

	if err := tx.QueryRow(ctx, query, e.UserID, e.CourseID, e.BatchID, e.TransactionID, e.Status, e.CreatedAt).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// ExistsActive reports whether the user holds an active enrollment in the given course batch.
func (r *EnrollmentRepo) ExistsActive(ctx context.Context, userID, courseID, batchID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM enrollments
		WHERE user_id = $1 AND course_id = $2 AND batch_id = $3 AND status = $4)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, courseID, batchID, domain.EntitlementActive).Scan(&exists); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}
