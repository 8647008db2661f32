package service

import (
	"context"
	"fmt"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// transactionQueryService implements ports.TransactionQueryService.
type transactionQueryService struct {
	txRepos map[domain.ProductFamily]ports.TransactionRepository
	logRepo ports.PaymentLogRepository
}

// NewTransactionQueryService creates a new transaction query service.
func NewTransactionQueryService(
	txRepos []ports.TransactionRepository,
	logRepo ports.PaymentLogRepository,
) ports.TransactionQueryService {
	return &transactionQueryService{
		txRepos: indexTransactionRepos(txRepos),
		logRepo: logRepo,
	}
}

// ListMine returns a page of the user's transactions in one family.
func (s *transactionQueryService) ListMine(
	ctx context.Context,
	family domain.ProductFamily,
	userID int64,
	page, pageSize int,
) ([]domain.Transaction, int64, error) {
	repo, ok := s.txRepos[family]
	if !ok {
		return nil, 0, apperror.Validation("invalid family: must be course or premium")
	}
	page, pageSize = normalizePage(page, pageSize)

	txns, total, err := repo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// Logs returns the payment log of a transaction owned by userID.
func (s *transactionQueryService) Logs(
	ctx context.Context,
	family domain.ProductFamily,
	transactionID string,
	userID int64,
) ([]domain.PaymentLog, error) {
	repo, ok := s.txRepos[family]
	if !ok {
		return nil, apperror.Validation("invalid family: must be course or premium")
	}

	txn, err := repo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	// Someone else's transaction is reported as missing.
	if txn == nil || txn.UserID != userID {
		return nil, apperror.ErrTransactionNotFound()
	}

	logs, err := s.logRepo.ListByTransaction(ctx, family, txn.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list payment logs: %w", err))
	}
	return logs, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
