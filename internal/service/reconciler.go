package service

import (
	"context"
	"fmt"
	"strings"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ReconcilerImpl implements ports.WebhookReconciler.
type ReconcilerImpl struct {
	txRepos     []ports.TransactionRepository
	logRepo     ports.PaymentLogRepository
	sigSvc      ports.SignatureService
	fulfillment ports.FulfillmentService
	transactor  ports.DBTransactor
	log         zerolog.Logger
}

// NewReconciler creates a new ReconcilerImpl. txRepos are searched in the
// order given when resolving an order_id.
func NewReconciler(
	txRepos []ports.TransactionRepository,
	logRepo ports.PaymentLogRepository,
	sigSvc ports.SignatureService,
	fulfillment ports.FulfillmentService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ReconcilerImpl {
	return &ReconcilerImpl{
		txRepos:     txRepos,
		logRepo:     logRepo,
		sigSvc:      sigSvc,
		fulfillment: fulfillment,
		transactor:  transactor,
		log:         log,
	}
}

// Reconcile applies one gateway notification to the matching transaction.
// Everything after the signature check runs under a row lock so concurrent
// deliveries for the same order serialize and fulfillment fires at most once.
func (s *ReconcilerImpl) Reconcile(ctx context.Context, n *domain.PaymentNotification) (*ports.ReconcileResult, error) {
	if n == nil || strings.TrimSpace(n.OrderID) == "" {
		return nil, apperror.ErrInvalidNotification("order_id is required")
	}

	txRepo, found, err := s.resolve(ctx, n.OrderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("resolve order: %w", err))
	}
	if found == nil {
		s.log.Warn().Str("order_id", n.OrderID).Msg("reconcile: unknown order")
		return nil, apperror.ErrTransactionNotFound()
	}

	if !s.sigSvc.Verify(n) {
		s.log.Warn().
			Str("order_id", n.OrderID).
			Str("family", string(found.Family)).
			Msg("reconcile: signature mismatch, notification rejected")
		return nil, apperror.ErrInvalidSignature()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := txRepo.GetByIDForUpdate(ctx, dbTx, found.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound()
	}

	// Every authenticated delivery is recorded, duplicates included.
	paymentLog := &domain.PaymentLog{
		Family:        txn.Family,
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		PaymentMethod: n.PaymentType,
		Status:        n.TransactionStatus,
		RawResponse:   n.RawPayload(),
	}
	if err := s.logRepo.Create(ctx, dbTx, paymentLog); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create payment log: %w", err))
	}

	result := &ports.ReconcileResult{
		Family:         txn.Family,
		TransactionID:  txn.ID,
		PreviousStatus: txn.Status,
		Status:         txn.Status,
	}

	if txn.IsTerminal() {
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		s.log.Info().Str("tx_id", txn.ID).Str("gateway_status", n.TransactionStatus).Msg("reconcile: transaction already settled")
		return result, apperror.ErrAlreadyProcessed()
	}

	status, mapped := domain.MapGatewayStatus(n.TransactionStatus, n.FraudStatus)
	if !mapped {
		s.log.Warn().
			Str("tx_id", txn.ID).
			Str("family", string(txn.Family)).
			Str("transaction_status", n.TransactionStatus).
			Str("fraud_status", n.FraudStatus).
			Str("current_status", string(txn.Status)).
			Msg("reconcile: unmapped gateway status, transaction status left unchanged")
		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		return result, nil
	}

	// The transition runs under a savepoint so a failed grant still leaves
	// the log row to commit.
	sp, err := dbTx.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("open savepoint: %w", err))
	}
	defer sp.Rollback(ctx) //nolint:errcheck

	if err := s.transition(ctx, sp, txRepo, txn, status); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		if cErr := dbTx.Commit(ctx); cErr != nil {
			s.log.Error().Err(cErr).Str("tx_id", txn.ID).Msg("reconcile: payment log lost after failed transition")
		}
		s.log.Error().Err(err).
			Str("tx_id", txn.ID).
			Str("family", string(txn.Family)).
			Str("gateway_status", n.TransactionStatus).
			Msg("reconcile: transition failed, status left unchanged")
		return nil, err
	}

	result.Mapped = true
	result.Status = status
	result.Fulfilled = status == domain.TransactionStatusSuccess

	if err := sp.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("release savepoint: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	if result.Fulfilled {
		s.fulfillment.Notify(ctx, txn)
	}

	s.log.Info().
		Str("tx_id", txn.ID).
		Str("family", string(txn.Family)).
		Str("from", string(result.PreviousStatus)).
		Str("to", string(result.Status)).
		Bool("fulfilled", result.Fulfilled).
		Msg("reconcile: transaction updated")

	return result, nil
}

// transition persists the mapped status and, on success, grants the
// entitlement. txn.Status is only updated once both writes went through.
func (s *ReconcilerImpl) transition(
	ctx context.Context,
	tx pgx.Tx,
	txRepo ports.TransactionRepository,
	txn *domain.Transaction,
	status domain.TransactionStatus,
) error {
	if err := txRepo.UpdateStatus(ctx, tx, txn.ID, status); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update status: %w", err))
	}
	if status != domain.TransactionStatusSuccess {
		txn.Status = status
		return nil
	}

	granted := *txn
	granted.Status = status
	if err := s.fulfillment.Grant(ctx, tx, &granted); err != nil {
		return asAppError(err, "fulfill transaction")
	}
	txn.Status = status
	return nil
}

// resolve finds the repository owning orderID, searching families in order.
func (s *ReconcilerImpl) resolve(ctx context.Context, orderID string) (ports.TransactionRepository, *domain.Transaction, error) {
	for _, repo := range s.txRepos {
		txn, err := repo.GetByID(ctx, orderID)
		if err != nil {
			return nil, nil, fmt.Errorf("%s lookup: %w", repo.Family(), err)
		}
		if txn != nil {
			return repo, txn, nil
		}
	}
	return nil, nil, nil
}
