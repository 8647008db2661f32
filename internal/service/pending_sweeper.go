package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// sweepTimeout bounds a single scheduled run.
const (
	sweepTimeout  = 4 * time.Minute
	sweepLockName = "pending-sweeper"
)

// SweepStats summarizes one sweeper run.
type SweepStats struct {
	Checked    int
	Reconciled int
	Unchanged  int
	Expired    int
	Failed     int
}

// SweepOptions tunes the pending sweeper.
type SweepOptions struct {
	MinAge      time.Duration // younger transactions are left for the webhook
	BatchSize   int
	ExpireAfter time.Duration // orders the gateway never heard of are failed past this age
}

// PendingSweeper polls the gateway for transactions whose notification never
// arrived and replays the answer through the reconciler. Each run reads one
// page per family and the next run continues after it, so orders that stay
// open cannot hold the rest of the backlog back.
type PendingSweeper struct {
	txRepos    []ports.TransactionRepository
	gateway    ports.PaymentGateway
	reconciler ports.WebhookReconciler
	transactor ports.DBTransactor
	opts       SweepOptions
	lock       ports.RunLock
	cron       *cron.Cron
	now        func() time.Time
	log        zerolog.Logger

	mu      sync.Mutex
	cursors map[domain.ProductFamily]domain.StaleCursor
}

// NewPendingSweeper creates a sweeper.
func NewPendingSweeper(
	txRepos []ports.TransactionRepository,
	gateway ports.PaymentGateway,
	reconciler ports.WebhookReconciler,
	transactor ports.DBTransactor,
	opts SweepOptions,
	log zerolog.Logger,
) *PendingSweeper {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &PendingSweeper{
		txRepos:    txRepos,
		gateway:    gateway,
		reconciler: reconciler,
		transactor: transactor,
		opts:       opts,
		now:        time.Now,
		log:        log,
		cursors:    make(map[domain.ProductFamily]domain.StaleCursor),
	}
}

// WithLock makes scheduled runs take a shared lease first, so only one
// replica sweeps per tick.
func (s *PendingSweeper) WithLock(lock ports.RunLock) *PendingSweeper {
	s.lock = lock
	return s
}

// Start schedules RunOnce on the given cron spec. Overlapping runs are skipped.
func (s *PendingSweeper) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if !s.acquire(ctx) {
			return
		}
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("scheduling pending sweeper: %w", err)
	}
	s.cron = c
	c.Start()
	s.log.Info().
		Str("schedule", schedule).
		Dur("min_age", s.opts.MinAge).
		Dur("expire_after", s.opts.ExpireAfter).
		Msg("pending sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *PendingSweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *PendingSweeper) acquire(ctx context.Context) bool {
	if s.lock == nil {
		return true
	}
	ok, err := s.lock.Acquire(ctx, sweepLockName, sweepTimeout)
	if err != nil {
		s.log.Warn().Err(err).Msg("sweeper: lock unavailable, skipping run")
		return false
	}
	return ok
}

// RunOnce checks the next page of stale pending or challenged transactions
// in every family.
func (s *PendingSweeper) RunOnce(ctx context.Context) SweepStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats SweepStats
	cutoff := s.now().Add(-s.opts.MinAge)

	for _, repo := range s.txRepos {
		family := repo.Family()
		stale, err := repo.ListStale(ctx, cutoff, s.cursors[family], s.opts.BatchSize)
		if err != nil {
			s.log.Error().Err(err).Str("family", string(family)).Msg("sweeper: listing stale transactions failed")
			continue
		}

		// A short page means the end of the backlog; start over next run.
		if len(stale) < s.opts.BatchSize {
			delete(s.cursors, family)
		} else {
			s.cursors[family] = domain.CursorAfter(&stale[len(stale)-1])
		}

		for i := range stale {
			stats.Checked++
			s.check(ctx, repo, &stale[i], &stats)
		}
	}

	if stats.Checked > 0 {
		s.log.Info().
			Int("checked", stats.Checked).
			Int("reconciled", stats.Reconciled).
			Int("unchanged", stats.Unchanged).
			Int("expired", stats.Expired).
			Int("failed", stats.Failed).
			Msg("sweeper: run complete")
	}
	return stats
}

func (s *PendingSweeper) check(ctx context.Context, repo ports.TransactionRepository, txn *domain.Transaction, stats *SweepStats) {
	notification, err := s.gateway.CheckStatus(ctx, txn.ID)
	switch {
	case errors.Is(err, apperror.ErrTransactionNotFound()):
		// No payment method was ever chosen on the Snap page.
		if !s.abandoned(txn) {
			stats.Unchanged++
			return
		}
		expired, err := s.expire(ctx, repo, txn.ID)
		if err != nil {
			stats.Failed++
			s.log.Warn().Err(err).Str("tx_id", txn.ID).Msg("sweeper: expiring abandoned transaction failed")
			return
		}
		if expired {
			stats.Expired++
		} else {
			stats.Unchanged++
		}
		return
	case err != nil:
		stats.Failed++
		s.log.Warn().Err(err).Str("tx_id", txn.ID).Msg("sweeper: gateway status check failed")
		return
	}

	status, mapped := domain.MapGatewayStatus(notification.TransactionStatus, notification.FraudStatus)
	if !mapped {
		stats.Unchanged++
		s.log.Warn().
			Str("tx_id", txn.ID).
			Str("transaction_status", notification.TransactionStatus).
			Str("fraud_status", notification.FraudStatus).
			Msg("sweeper: unmapped gateway status, skipping")
		return
	}
	if status == txn.Status {
		stats.Unchanged++
		return
	}

	_, err = s.reconciler.Reconcile(ctx, notification)
	switch {
	case err == nil:
		stats.Reconciled++
	case errors.Is(err, apperror.ErrAlreadyProcessed()):
		// settled by a webhook that raced us
		stats.Unchanged++
	default:
		stats.Failed++
		s.log.Warn().Err(err).Str("tx_id", txn.ID).Msg("sweeper: reconcile failed")
	}
}

func (s *PendingSweeper) abandoned(txn *domain.Transaction) bool {
	if s.opts.ExpireAfter <= 0 {
		return false
	}
	return txn.CreatedAt.Before(s.now().Add(-s.opts.ExpireAfter))
}

// expire moves an open transaction the gateway has no record of to failure.
// It reports false when the row was settled or moved in the meantime.
func (s *PendingSweeper) expire(ctx context.Context, repo ports.TransactionRepository, id string) (bool, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := repo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return false, fmt.Errorf("lock transaction: %w", err)
	}
	if txn == nil || (txn.Status != domain.TransactionStatusPending && txn.Status != domain.TransactionStatusChallenge) {
		return false, nil
	}

	if err := repo.UpdateStatus(ctx, dbTx, id, domain.TransactionStatusFailure); err != nil {
		return false, fmt.Errorf("update status: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	s.log.Info().
		Str("tx_id", id).
		Str("family", string(txn.Family)).
		Str("from", string(txn.Status)).
		Msg("sweeper: abandoned transaction marked as failed")
	return true, nil
}
