package service

import (
	"context"
	"errors"
	"fmt"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Mail templates rendered by the mail worker.
const (
	TemplateCourseEnrollment = "course_enrollment"
	TemplatePremiumPurchase  = "premium_purchase"
)

// FulfillmentServiceImpl implements ports.FulfillmentService.
type FulfillmentServiceImpl struct {
	catalogs            map[domain.ProductFamily]ports.Catalog
	voucherRepo         ports.VoucherRepository
	userRepo            ports.UserRepository
	notifier            ports.Notifier
	consumeOnSettlement bool
	log                 zerolog.Logger
}

// NewFulfillmentService creates a new FulfillmentServiceImpl. When
// consumeOnSettlement is set, voucher quota is taken here instead of at checkout.
func NewFulfillmentService(
	catalogs []ports.Catalog,
	voucherRepo ports.VoucherRepository,
	userRepo ports.UserRepository,
	notifier ports.Notifier,
	consumeOnSettlement bool,
	log zerolog.Logger,
) *FulfillmentServiceImpl {
	return &FulfillmentServiceImpl{
		catalogs:            indexCatalogs(catalogs),
		voucherRepo:         voucherRepo,
		userRepo:            userRepo,
		notifier:            notifier,
		consumeOnSettlement: consumeOnSettlement,
		log:                 log,
	}
}

// Grant writes the entitlement for a transaction that just became successful.
// Errors propagate so the caller's transaction rolls back.
func (s *FulfillmentServiceImpl) Grant(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	catalog, ok := s.catalogs[t.Family]
	if !ok {
		return apperror.InternalError(fmt.Errorf("no catalog for family %q", t.Family))
	}

	if s.consumeOnSettlement && t.VoucherCode != nil {
		err := s.voucherRepo.DecrementQuota(ctx, tx, *t.VoucherCode)
		switch {
		case errors.Is(err, apperror.ErrVoucherExhausted()):
			// The buyer already paid; honour the price they were quoted.
			s.log.Warn().
				Str("tx_id", t.ID).
				Str("voucher", *t.VoucherCode).
				Msg("voucher quota exhausted at settlement, granting anyway")
		case err != nil:
			return apperror.ErrDatabaseError(fmt.Errorf("consume voucher: %w", err))
		}
	}

	if err := catalog.Grant(ctx, tx, t); err != nil {
		s.log.Error().Err(err).
			Str("tx_id", t.ID).
			Str("family", string(t.Family)).
			Msg("fulfillment: entitlement creation failed")
		return err
	}
	return nil
}

// Notify queues the purchase confirmation mail. Failures are logged only.
func (s *FulfillmentServiceImpl) Notify(ctx context.Context, t *domain.Transaction) {
	user, err := s.userRepo.GetByID(ctx, t.UserID)
	if err != nil || user == nil {
		s.log.Warn().Err(err).Int64("user_id", t.UserID).Str("tx_id", t.ID).Msg("notify: buyer lookup failed, skipping mail")
		return
	}

	catalog, ok := s.catalogs[t.Family]
	if !ok {
		s.log.Warn().Str("family", string(t.Family)).Msg("notify: unknown family, skipping mail")
		return
	}
	product, err := catalog.Quote(ctx, t.ProductID)
	if err != nil {
		s.log.Warn().Err(err).Str("product_id", t.ProductID).Str("tx_id", t.ID).Msg("notify: product lookup failed, skipping mail")
		return
	}

	mail := ports.Mail{
		To:   user.Email,
		Name: user.Name,
		Data: map[string]string{
			"product_title":  product.Title,
			"transaction_id": t.ID,
			"amount":         t.Amount.StringFixed(2),
		},
	}
	switch t.Family {
	case domain.FamilyCourse:
		mail.Subject = "You are enrolled in " + product.Title
		mail.Template = TemplateCourseEnrollment
	default:
		mail.Subject = "Your purchase of " + product.Title
		mail.Template = TemplatePremiumPurchase
	}

	if err := s.notifier.Send(ctx, mail); err != nil {
		s.log.Error().Err(err).Str("tx_id", t.ID).Str("to", user.Email).Msg("notify: confirmation mail failed")
		return
	}
	s.log.Debug().Str("tx_id", t.ID).Str("template", mail.Template).Msg("notify: confirmation mail queued")
}
