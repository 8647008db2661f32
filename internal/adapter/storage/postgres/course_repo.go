package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"academy-commerce/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// CourseRepo implements ports.CourseRepository.
type CourseRepo struct {
	pool Pool
}

// NewCourseRepo creates a new CourseRepo.
func NewCourseRepo(pool Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

// GetByID fetches a course. Returns nil, nil when absent.
func (r *CourseRepo) GetByID(ctx context.Context, id int64) (*domain.Course, error) {
	query := `SELECT id, title, price::text, discount_price::text FROM courses WHERE id = $1`

	var c domain.Course
	var price string
	var discount *string
	if err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &price, &discount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	var err error
	if c.Price, err = parseDecimal("price", price); err != nil {
		return nil, err
	}
	if c.DiscountPrice, err = parseNullDecimal("discount_price", discount); err != nil {
		return nil, err
	}
	return &c, nil
}

// NextBatch returns the earliest batch of the course starting after now, or
// nil, nil when none is scheduled.
func (r *CourseRepo) NextBatch(ctx context.Context, courseID int64, now time.Time) (*domain.Batch, error) {
	query := `SELECT id, course_id, name, start_date FROM batches
		WHERE course_id = $1 AND start_date > $2
		ORDER BY start_date ASC LIMIT 1`

	var b domain.Batch
	if err := r.pool.QueryRow(ctx, query, courseID, now).Scan(&b.ID, &b.CourseID, &b.Name, &b.StartDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get next batch: %w", err)
	}
	return &b, nil
}
