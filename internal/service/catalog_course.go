package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// CourseCatalog implements ports.Catalog for course purchases.
type CourseCatalog struct {
	courses     ports.CourseRepository
	enrollments ports.EnrollmentRepository
	now         func() time.Time
}

// NewCourseCatalog creates a new CourseCatalog.
func NewCourseCatalog(courses ports.CourseRepository, enrollments ports.EnrollmentRepository) *CourseCatalog {
	return &CourseCatalog{
		courses:     courses,
		enrollments: enrollments,
		now:         time.Now,
	}
}

func (c *CourseCatalog) Family() domain.ProductFamily { return domain.FamilyCourse }

// Quote looks up the course and returns its pricing view.
func (c *CourseCatalog) Quote(ctx context.Context, productID string) (*domain.Product, error) {
	courseID, ok := parseCourseID(productID)
	if !ok {
		return nil, apperror.ErrNotFound("Course")
	}
	course, err := c.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get course: %w", err))
	}
	if course == nil {
		return nil, apperror.ErrNotFound("Course")
	}
	return &domain.Product{
		Family:        domain.FamilyCourse,
		ID:            strconv.FormatInt(course.ID, 10),
		Title:         course.Title,
		Price:         course.Price,
		DiscountPrice: course.DiscountPrice,
	}, nil
}

// HasEntitlement reports an active enrollment in the batch a new purchase
// would land in.
func (c *CourseCatalog) HasEntitlement(ctx context.Context, userID int64, productID string) (bool, error) {
	courseID, ok := parseCourseID(productID)
	if !ok {
		return false, apperror.ErrNotFound("Course")
	}
	batchID, err := c.applicableBatch(ctx, courseID)
	if err != nil {
		return false, err
	}
	owned, err := c.enrollments.ExistsActive(ctx, userID, courseID, batchID)
	if err != nil {
		return false, apperror.ErrDatabaseError(fmt.Errorf("check enrollment: %w", err))
	}
	return owned, nil
}

// Grant enrolls the buyer into the next upcoming batch, or batch 0 for
// courses without batches.
func (c *CourseCatalog) Grant(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	courseID, ok := parseCourseID(t.ProductID)
	if !ok {
		return apperror.InternalError(fmt.Errorf("transaction %s has malformed course id %q", t.ID, t.ProductID))
	}
	batchID, err := c.applicableBatch(ctx, courseID)
	if err != nil {
		return err
	}

	enrollment := &domain.Enrollment{
		UserID:        t.UserID,
		CourseID:      courseID,
		BatchID:       batchID,
		TransactionID: t.ID,
		Status:        domain.EntitlementActive,
	}
	if err := c.enrollments.Create(ctx, tx, enrollment); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("create enrollment: %w", err))
	}
	return nil
}

func (c *CourseCatalog) applicableBatch(ctx context.Context, courseID int64) (int64, error) {
	batch, err := c.courses.NextBatch(ctx, courseID, c.now())
	if err != nil {
		return 0, apperror.ErrDatabaseError(fmt.Errorf("find next batch: %w", err))
	}
	if batch == nil {
		return 0, nil
	}
	return batch.ID, nil
}

func parseCourseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
