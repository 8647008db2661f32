package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"academy-commerce/internal/core/domain"
	"academy-commerce/internal/core/ports"
	"academy-commerce/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memStore is a stateful stand-in for PostgreSQL. txMu serializes database
// transactions the way a row lock on the transaction would; dataMu guards
// individual reads and writes.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	data   memData
}

type memData struct {
	nextCourseTxID  int64
	txns            map[domain.ProductFamily]map[string]domain.Transaction
	logs            []domain.PaymentLog
	vouchers        map[string]domain.Voucher
	courses         map[int64]domain.Course
	batches         []domain.Batch
	enrollments     []domain.Enrollment
	premiumProducts map[string]domain.PremiumProduct
	purchases       []domain.PremiumPurchase
	users           map[int64]domain.User
}

func newMemStore() *memStore {
	return &memStore{data: memData{
		nextCourseTxID: 1000,
		txns: map[domain.ProductFamily]map[string]domain.Transaction{
			domain.FamilyCourse:  {},
			domain.FamilyPremium: {},
		},
		vouchers:        map[string]domain.Voucher{},
		courses:         map[int64]domain.Course{},
		premiumProducts: map[string]domain.PremiumProduct{},
		users:           map[int64]domain.User{},
	}}
}

func (d memData) clone() memData {
	c := d
	c.txns = map[domain.ProductFamily]map[string]domain.Transaction{}
	for f, m := range d.txns {
		c.txns[f] = map[string]domain.Transaction{}
		for k, v := range m {
			c.txns[f][k] = v
		}
	}
	c.logs = append([]domain.PaymentLog(nil), d.logs...)
	c.vouchers = map[string]domain.Voucher{}
	for k, v := range d.vouchers {
		c.vouchers[k] = v
	}
	c.enrollments = append([]domain.Enrollment(nil), d.enrollments...)
	c.premiumProducts = map[string]domain.PremiumProduct{}
	for k, v := range d.premiumProducts {
		c.premiumProducts[k] = v
	}
	c.purchases = append([]domain.PremiumPurchase(nil), d.purchases...)
	return c
}

func (s *memStore) with(fn func(d *memData)) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	fn(&s.data)
}

// Begin implements ports.DBTransactor.
func (s *memStore) Begin(_ context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	tx := &memTx{store: s}
	s.with(func(d *memData) { tx.snapshot = d.clone() })
	return tx, nil
}

type memTx struct {
	pgx.Tx
	store    *memStore
	snapshot memData
	done     bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.txMu.Unlock()
	return nil
}

// Begin opens a savepoint inside the transaction.
func (t *memTx) Begin(_ context.Context) (pgx.Tx, error) {
	sp := &memSavepoint{store: t.store}
	t.store.with(func(d *memData) { sp.snapshot = d.clone() })
	return sp, nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.with(func(d *memData) { *d = t.snapshot })
	t.store.txMu.Unlock()
	return nil
}

// memSavepoint restores the data it captured when rolled back. The outer
// memTx keeps holding txMu.
type memSavepoint struct {
	pgx.Tx
	store    *memStore
	snapshot memData
	done     bool
}

func (sp *memSavepoint) Commit(_ context.Context) error {
	if sp.done {
		return pgx.ErrTxClosed
	}
	sp.done = true
	return nil
}

func (sp *memSavepoint) Rollback(_ context.Context) error {
	if sp.done {
		return nil
	}
	sp.done = true
	sp.store.with(func(d *memData) { *d = sp.snapshot })
	return nil
}

// --- repositories ---

type memTxRepo struct {
	store  *memStore
	family domain.ProductFamily
}

func (r *memTxRepo) Family() domain.ProductFamily { return r.family }

func (r *memTxRepo) Create(_ context.Context, _ pgx.Tx, t *domain.Transaction) error {
	r.store.with(func(d *memData) {
		if r.family == domain.FamilyCourse {
			d.nextCourseTxID++
			t.ID = strconv.FormatInt(d.nextCourseTxID, 10)
		} else {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = time.Now()
		t.UpdatedAt = t.CreatedAt
		d.txns[r.family][t.ID] = *t
	})
	return nil
}

func (r *memTxRepo) get(id string) *domain.Transaction {
	var out *domain.Transaction
	r.store.with(func(d *memData) {
		if t, ok := d.txns[r.family][id]; ok {
			out = &t
		}
	})
	return out
}

func (r *memTxRepo) GetByID(_ context.Context, id string) (*domain.Transaction, error) {
	return r.get(id), nil
}

func (r *memTxRepo) GetByIDForUpdate(_ context.Context, _ pgx.Tx, id string) (*domain.Transaction, error) {
	return r.get(id), nil
}

func (r *memTxRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id string, status domain.TransactionStatus) error {
	r.store.with(func(d *memData) {
		t := d.txns[r.family][id]
		t.Status = status
		d.txns[r.family][id] = t
	})
	return nil
}

func (r *memTxRepo) SetSnapSession(_ context.Context, _ pgx.Tx, id, token, redirectURL string) error {
	r.store.with(func(d *memData) {
		t := d.txns[r.family][id]
		t.SnapToken, t.SnapRedirectURL = &token, &redirectURL
		d.txns[r.family][id] = t
	})
	return nil
}

func (r *memTxRepo) ExistsByUserAndVoucher(_ context.Context, userID int64, code string) (bool, error) {
	found := false
	r.store.with(func(d *memData) {
		for _, t := range d.txns[r.family] {
			if t.UserID == userID && t.Voucher() == code {
				found = true
			}
		}
	})
	return found, nil
}

func (r *memTxRepo) all() []domain.Transaction {
	var out []domain.Transaction
	r.store.with(func(d *memData) {
		for _, t := range d.txns[r.family] {
			out = append(out, t)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memTxRepo) ListByUser(_ context.Context, userID int64, _, _ int) ([]domain.Transaction, int64, error) {
	var out []domain.Transaction
	for _, t := range r.all() {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memTxRepo) ListStale(_ context.Context, olderThan time.Time, after domain.StaleCursor, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, t := range r.all() {
		if t.Status != domain.TransactionStatusPending && t.Status != domain.TransactionStatusChallenge {
			continue
		}
		if !t.CreatedAt.Before(olderThan) || (!after.IsZero() && !pastCursor(t, after)) {
			continue
		}
		if len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func pastCursor(t domain.Transaction, c domain.StaleCursor) bool {
	if !t.CreatedAt.Equal(c.CreatedAt) {
		return t.CreatedAt.After(c.CreatedAt)
	}
	return t.ID > c.ID
}

type memLogRepo struct{ store *memStore }

func (r *memLogRepo) Create(_ context.Context, _ pgx.Tx, l *domain.PaymentLog) error {
	r.store.with(func(d *memData) {
		l.ID = int64(len(d.logs) + 1)
		d.logs = append(d.logs, *l)
	})
	return nil
}

func (r *memLogRepo) ListByTransaction(_ context.Context, family domain.ProductFamily, id string) ([]domain.PaymentLog, error) {
	var out []domain.PaymentLog
	r.store.with(func(d *memData) {
		for _, l := range d.logs {
			if l.Family == family && l.TransactionID == id {
				out = append(out, l)
			}
		}
	})
	return out, nil
}

type memVoucherRepo struct{ store *memStore }

func (r *memVoucherRepo) GetByCode(_ context.Context, code string) (*domain.Voucher, error) {
	var out *domain.Voucher
	r.store.with(func(d *memData) {
		if v, ok := d.vouchers[code]; ok {
			out = &v
		}
	})
	return out, nil
}

func (r *memVoucherRepo) DecrementQuota(_ context.Context, _ pgx.Tx, code string) error {
	var err error
	r.store.with(func(d *memData) {
		v, ok := d.vouchers[code]
		if !ok || v.Quota <= 0 {
			err = apperror.ErrVoucherExhausted()
			return
		}
		v.Quota--
		d.vouchers[code] = v
	})
	return err
}

type memCourseRepo struct{ store *memStore }

func (r *memCourseRepo) GetByID(_ context.Context, id int64) (*domain.Course, error) {
	var out *domain.Course
	r.store.with(func(d *memData) {
		if c, ok := d.courses[id]; ok {
			out = &c
		}
	})
	return out, nil
}

func (r *memCourseRepo) NextBatch(_ context.Context, courseID int64, now time.Time) (*domain.Batch, error) {
	var out *domain.Batch
	r.store.with(func(d *memData) {
		for _, b := range d.batches {
			if b.CourseID == courseID && b.StartDate.After(now) && (out == nil || b.StartDate.Before(out.StartDate)) {
				b := b
				out = &b
			}
		}
	})
	return out, nil
}

type memEnrollmentRepo struct{ store *memStore }

var errUniqueViolation = errors.New("duplicate key value violates unique constraint")

func (r *memEnrollmentRepo) Create(_ context.Context, _ pgx.Tx, e *domain.Enrollment) error {
	var err error
	r.store.with(func(d *memData) {
		for _, existing := range d.enrollments {
			if existing.TransactionID == e.TransactionID {
				err = errUniqueViolation
				return
			}
		}
		e.ID = int64(len(d.enrollments) + 1)
		d.enrollments = append(d.enrollments, *e)
	})
	return err
}

func (r *memEnrollmentRepo) ExistsActive(_ context.Context, userID, courseID, batchID int64) (bool, error) {
	found := false
	r.store.with(func(d *memData) {
		for _, e := range d.enrollments {
			if e.UserID == userID && e.CourseID == courseID && e.BatchID == batchID && e.Status == domain.EntitlementActive {
				found = true
			}
		}
	})
	return found, nil
}

type memPremiumProductRepo struct{ store *memStore }

func (r *memPremiumProductRepo) GetByID(_ context.Context, id string) (*domain.PremiumProduct, error) {
	var out *domain.PremiumProduct
	r.store.with(func(d *memData) {
		if p, ok := d.premiumProducts[id]; ok {
			out = &p
		}
	})
	return out, nil
}

func (r *memPremiumProductRepo) IncrementPurchaseCount(_ context.Context, _ pgx.Tx, id string) error {
	r.store.with(func(d *memData) {
		p := d.premiumProducts[id]
		p.PurchaseCount++
		d.premiumProducts[id] = p
	})
	return nil
}

type memPurchaseRepo struct{ store *memStore }

func (r *memPurchaseRepo) Create(_ context.Context, _ pgx.Tx, p *domain.PremiumPurchase) error {
	var err error
	r.store.with(func(d *memData) {
		for _, existing := range d.purchases {
			if existing.PremiumTransactionID == p.PremiumTransactionID {
				err = errUniqueViolation
				return
			}
		}
		p.ID = uuid.NewString()
		d.purchases = append(d.purchases, *p)
	})
	return err
}

func (r *memPurchaseRepo) Exists(_ context.Context, userID int64, productID string) (bool, error) {
	found := false
	r.store.with(func(d *memData) {
		for _, p := range d.purchases {
			if p.UserID == userID && p.PremiumProductID == productID {
				found = true
			}
		}
	})
	return found, nil
}

type memUserRepo struct{ store *memStore }

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	r.store.with(func(d *memData) {
		if u, ok := d.users[id]; ok {
			out = &u
		}
	})
	return out, nil
}

// --- outbound fakes ---

// fakeGateway answers status checks from answers and reports every other
// order as unknown, like an abandoned Snap session.
type fakeGateway struct {
	mu       sync.Mutex
	sessions []ports.SessionRequest
	answers  map[string]*domain.PaymentNotification
	checked  []string
}

func (g *fakeGateway) CreateSession(_ context.Context, req ports.SessionRequest) (*ports.GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions = append(g.sessions, req)
	return &ports.GatewaySession{Token: "snap-" + req.OrderID, RedirectURL: "https://pay.example/" + req.OrderID}, nil
}

func (g *fakeGateway) CheckStatus(_ context.Context, orderID string) (*domain.PaymentNotification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checked = append(g.checked, orderID)
	if n, ok := g.answers[orderID]; ok {
		return n, nil
	}
	return nil, apperror.ErrTransactionNotFound()
}

func (g *fakeGateway) answer(n *domain.PaymentNotification) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.answers == nil {
		g.answers = make(map[string]*domain.PaymentNotification)
	}
	g.answers[n.OrderID] = n
}

func (g *fakeGateway) checkedOrders() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.checked...)
}

func (g *fakeGateway) sessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Mail
}

func (n *recordingNotifier) Send(_ context.Context, m ports.Mail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
