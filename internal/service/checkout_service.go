package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const replayTTL = 24 * time.Hour

// CheckoutOptions carries the checkout business settings.
type CheckoutOptions struct {
	MinimumAmount       decimal.Decimal
	ConsumeOnSettlement bool
}

// CheckoutServiceImpl implements ports.CheckoutService.
type CheckoutServiceImpl struct {
	catalogs    map[domain.ProductFamily]ports.Catalog
	txRepos     map[domain.ProductFamily]ports.TransactionRepository
	vouchers    ports.VoucherService
	voucherRepo ports.VoucherRepository
	userRepo    ports.UserRepository
	gateway     ports.PaymentGateway
	fulfillment ports.FulfillmentService
	replayCache ports.ReplayCache
	transactor  ports.DBTransactor
	opts        CheckoutOptions
	log         zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(
	catalogs []ports.Catalog,
	txRepos []ports.TransactionRepository,
	vouchers ports.VoucherService,
	voucherRepo ports.VoucherRepository,
	userRepo ports.UserRepository,
	gateway ports.PaymentGateway,
	fulfillment ports.FulfillmentService,
	replayCache ports.ReplayCache,
	transactor ports.DBTransactor,
	opts CheckoutOptions,
	log zerolog.Logger,
) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		catalogs:    indexCatalogs(catalogs),
		txRepos:     indexTransactionRepos(txRepos),
		vouchers:    vouchers,
		voucherRepo: voucherRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		fulfillment: fulfillment,
		replayCache: replayCache,
		transactor:  transactor,
		opts:        opts,
		log:         log,
	}
}

// Checkout prices the product, opens the transaction and, when money is
// owed, a hosted payment session. Fully discounted purchases are fulfilled
// immediately.
func (s *CheckoutServiceImpl) Checkout(ctx context.Context, req ports.CheckoutRequest) (*ports.CheckoutResult, error) {
	catalog, ok := s.catalogs[req.Family]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown product family %q", req.Family))
	}
	txRepo, ok := s.txRepos[req.Family]
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("unknown product family %q", req.Family))
	}

	var replayKey string
	if req.IdempotencyKey != "" {
		replayKey = domain.BuildCheckoutReplayKey(req.Family, req.UserID, req.IdempotencyKey)
		cached, err := s.replayCache.Get(ctx, replayKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", replayKey).Msg("replay cache lookup failed, processing checkout")
		}
		if cached != nil {
			return s.unmarshalReplay(cached)
		}
	}

	product, err := catalog.Quote(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	owned, err := catalog.HasEntitlement(ctx, req.UserID, product.ID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, apperror.ErrAlreadyOwned()
	}

	price := product.PayablePrice()
	discount := decimal.Zero
	var voucherCode *string
	if code := strings.TrimSpace(req.VoucherCode); code != "" {
		d, voucher, err := s.vouchers.Evaluate(ctx, code, price, req.UserID, req.Family)
		if err != nil {
			return nil, err
		}
		discount = d
		voucherCode = &voucher.Code
	}

	amount := domain.ApplyDiscount(price, discount)
	if amount.IsPositive() && amount.LessThan(s.opts.MinimumAmount) {
		return nil, apperror.ErrBelowMinimumAmount(s.opts.MinimumAmount.String())
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("User")
	}

	meta, err := product.Snapshot()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("snapshot product: %w", err))
	}

	txn := &domain.Transaction{
		Family:      req.Family,
		UserID:      req.UserID,
		ProductID:   product.ID,
		VoucherCode: voucherCode,
		Amount:      amount,
		Status:      domain.TransactionStatusPending,
		Meta:        meta,
	}
	free := amount.IsZero()
	if free {
		txn.Status = domain.TransactionStatusSuccess
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}

	if voucherCode != nil && !s.opts.ConsumeOnSettlement {
		if err := s.voucherRepo.DecrementQuota(ctx, dbTx, *voucherCode); err != nil {
			return nil, asAppError(err, "consume voucher")
		}
	}

	if free {
		if err := s.fulfillment.Grant(ctx, dbTx, txn); err != nil {
			return nil, asAppError(err, "fulfill free checkout")
		}
	} else {
		session, err := s.gateway.CreateSession(ctx, ports.SessionRequest{
			OrderID:  txn.ID,
			Amount:   amount,
			Product:  *product,
			Customer: *user,
		})
		if err != nil {
			return nil, asAppError(err, "create payment session")
		}
		if err := txRepo.SetSnapSession(ctx, dbTx, txn.ID, session.Token, session.RedirectURL); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("store payment session: %w", err))
		}
		txn.SnapToken = &session.Token
		txn.SnapRedirectURL = &session.RedirectURL
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	if free {
		s.fulfillment.Notify(ctx, txn)
	}

	result := &ports.CheckoutResult{
		Transaction: txn,
		Price:       price,
		Discount:    discount,
	}

	// Post-process: cache for replays (best-effort)
	if replayKey != "" {
		if respJSON, err := json.Marshal(result); err != nil {
			s.log.Warn().Err(err).Str("key", replayKey).Msg("failed to marshal checkout for replay cache")
		} else if err := s.replayCache.Set(ctx, replayKey, respJSON, replayTTL); err != nil {
			s.log.Warn().Err(err).Str("key", replayKey).Msg("failed to cache checkout in redis")
		}
	}

	s.log.Info().
		Str("tx_id", txn.ID).
		Str("family", string(req.Family)).
		Int64("user_id", req.UserID).
		Str("amount", amount.String()).
		Str("status", string(txn.Status)).
		Msg("checkout created")

	return result, nil
}

func (s *CheckoutServiceImpl) unmarshalReplay(data []byte) (*ports.CheckoutResult, error) {
	var result ports.CheckoutResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached checkout: %w", err))
	}
	result.Replayed = true
	return &result, nil
}

// asAppError passes AppErrors through unchanged and wraps anything else as
// an internal error.
func asAppError(err error, op string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.InternalError(fmt.Errorf("%s: %w", op, err))
}
