// Package memory holds map-backed repositories used by the memory backend
// and by service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
	"pocketbook/internal/storage"
)

// Store keeps every entity behind one mutex.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]core.User
	pockets      map[uuid.UUID]core.Pocket
	transactions map[int64]core.Transaction
	budgets      map[int64]core.Budget
	nextTxID     int64
	nextBudgetID int64
	// seq orders rows created within the same clock tick.
	seq   int64
	order map[any]int64
}

func New() *Store {
	return &Store{
		users:        make(map[uuid.UUID]core.User),
		pockets:      make(map[uuid.UUID]core.Pocket),
		transactions: make(map[int64]core.Transaction),
		budgets:      make(map[int64]core.Budget),
		order:        make(map[any]int64),
	}
}

// Repositories exposes the store through the storage interfaces.
func (s *Store) Repositories() *storage.Repositories {
	return &storage.Repositories{
		Users:        userRepo{s},
		Pockets:      pocketRepo{s},
		Transactions: transactionRepo{s},
		Budgets:      budgetRepo{s},
		Health:       s,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) stamp(key any) time.Time {
	s.seq++
	s.order[key] = s.seq
	return time.Now().UTC()
}

// newerFirst orders by created_at DESC, falling back to insertion order.
func (s *Store) newerFirst(a, b any, ca, cb time.Time) bool {
	if !ca.Equal(cb) {
		return ca.After(cb)
	}
	return s.order[a] > s.order[b]
}

func window[T any](items []T, p storage.Page) []T {
	if p.Limit <= 0 {
		return items
	}
	start := 0
	if p.Page > 1 {
		start = (p.Page - 1) * p.Limit
	}
	if start >= len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, id uuid.UUID) (*core.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*core.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r userRepo) Create(_ context.Context, u *core.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return storage.ErrConflict
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = r.s.stamp(u.ID)
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r userRepo) modify(id uuid.UUID, fn func(*core.User)) (*core.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return &u, nil
}

func (r userRepo) UpdateName(_ context.Context, id uuid.UUID, name string) (*core.User, error) {
	return r.modify(id, func(u *core.User) { u.Name = name })
}

func (r userRepo) UpdateHideBalance(_ context.Context, id uuid.UUID, hide bool) (*core.User, error) {
	return r.modify(id, func(u *core.User) { u.HideBalance = hide })
}

func (r userRepo) List(context.Context) ([]core.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]core.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		return r.s.newerFirst(users[i].ID, users[j].ID, users[i].CreatedAt, users[j].CreatedAt)
	})
	return users, nil
}

type pocketRepo struct{ s *Store }

func (r pocketRepo) FindByID(_ context.Context, id uuid.UUID) (*core.Pocket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.pockets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &p, nil
}

func (r pocketRepo) FindByOwner(_ context.Context, userID uuid.UUID) ([]core.Pocket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	pockets := []core.Pocket{}
	for _, p := range r.s.pockets {
		if p.UserID == userID {
			pockets = append(pockets, p)
		}
	}
	sort.Slice(pockets, func(i, j int) bool {
		return r.s.newerFirst(pockets[i].ID, pockets[j].ID, pockets[i].CreatedAt, pockets[j].CreatedAt)
	})
	return pockets, nil
}

func (r pocketRepo) Create(_ context.Context, p *core.Pocket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = r.s.stamp(p.ID)
	p.UpdatedAt = p.CreatedAt
	r.s.pockets[p.ID] = *p
	return nil
}

func (r pocketRepo) Update(_ context.Context, p *core.Pocket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.pockets[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	existing.Name = p.Name
	existing.Emoji = p.Emoji
	existing.UpdatedAt = time.Now().UTC()
	r.s.pockets[p.ID] = existing
	p.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r pocketRepo) AdjustBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.pockets[id]
	if !ok {
		return storage.ErrNotFound
	}
	p.Balance = p.Balance.Add(delta)
	p.UpdatedAt = time.Now().UTC()
	r.s.pockets[id] = p
	return nil
}

func (r pocketRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.pockets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.pockets, id)
	// Mirror ON DELETE SET NULL.
	for txID, t := range r.s.transactions {
		if t.AccountID != nil && *t.AccountID == id {
			t.AccountID = nil
			r.s.transactions[txID] = t
		}
	}
	return nil
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) FindByID(_ context.Context, id int64) (*core.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func matchTransaction(t core.Transaction, userID uuid.UUID, q storage.TransactionQuery) bool {
	switch {
	case t.UserID != userID:
		return false
	case q.Category != nil && (t.Category == nil || *t.Category != *q.Category):
		return false
	case q.From != nil && t.TransactionDate.Before(*q.From):
		return false
	case q.To != nil && t.TransactionDate.After(*q.To):
		return false
	case q.Type != nil && t.Type != *q.Type:
		return false
	}
	return true
}

func (r transactionRepo) filter(userID uuid.UUID, q storage.TransactionQuery) []core.Transaction {
	txs := []core.Transaction{}
	for _, t := range r.s.transactions {
		if matchTransaction(t, userID, q) {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.TransactionDate.Equal(b.TransactionDate.Time) {
			return a.TransactionDate.After(b.TransactionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return txs
}

func (r transactionRepo) FindByOwner(_ context.Context, userID uuid.UUID, q storage.TransactionQuery) ([]core.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return window(r.filter(userID, q), q.Page), nil
}

func (r transactionRepo) CountByOwner(_ context.Context, userID uuid.UUID, q storage.TransactionQuery) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q.Page = storage.Page{}
	return int64(len(r.filter(userID, q))), nil
}

func (r transactionRepo) FindByDateRange(ctx context.Context, userID uuid.UUID, from, to core.Date) ([]core.Transaction, error) {
	return r.FindByOwner(ctx, userID, storage.TransactionQuery{From: &from, To: &to})
}

func (r transactionRepo) Create(_ context.Context, t *core.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextTxID++
	t.ID = r.s.nextTxID
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	r.s.transactions[t.ID] = *t
	return nil
}

func (r transactionRepo) Update(_ context.Context, t *core.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.transactions[t.ID]
	if !ok {
		return storage.ErrNotFound
	}
	t.UserID = existing.UserID
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	r.s.transactions[t.ID] = *t
	return nil
}

func (r transactionRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.transactions[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.transactions, id)
	return nil
}

type budgetRepo struct{ s *Store }

func (r budgetRepo) FindByID(_ context.Context, id int64) (*core.Budget, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.budgets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func matchBudget(b core.Budget, userID uuid.UUID, q storage.BudgetQuery) bool {
	switch {
	case b.UserID != userID:
		return false
	case q.Category != nil && !strings.Contains(strings.ToLower(b.Category), strings.ToLower(*q.Category)):
		return false
	case q.PeriodType != nil && b.PeriodType != *q.PeriodType:
		return false
	case q.IsActive != nil && b.IsActive != *q.IsActive:
		return false
	}
	return true
}

func (r budgetRepo) filter(userID uuid.UUID, q storage.BudgetQuery) []core.Budget {
	budgets := []core.Budget{}
	for _, b := range r.s.budgets {
		if matchBudget(b, userID, q) {
			budgets = append(budgets, b)
		}
	}
	sort.Slice(budgets, func(i, j int) bool {
		if !budgets[i].CreatedAt.Equal(budgets[j].CreatedAt) {
			return budgets[i].CreatedAt.After(budgets[j].CreatedAt)
		}
		return budgets[i].ID > budgets[j].ID
	})
	return budgets
}

func (r budgetRepo) FindByOwner(_ context.Context, userID uuid.UUID, q storage.BudgetQuery) ([]core.Budget, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return window(r.filter(userID, q), q.Page), nil
}

func (r budgetRepo) CountByOwner(_ context.Context, userID uuid.UUID, q storage.BudgetQuery) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.filter(userID, q))), nil
}

func (r budgetRepo) Categories(_ context.Context, userID uuid.UUID) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[string]struct{})
	categories := []string{}
	for _, b := range r.s.budgets {
		if b.UserID != userID {
			continue
		}
		if _, ok := seen[b.Category]; !ok {
			seen[b.Category] = struct{}{}
			categories = append(categories, b.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (r budgetRepo) Create(_ context.Context, b *core.Budget) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.IsActive {
		for _, existing := range r.s.budgets {
			if existing.UserID == b.UserID && existing.Category == b.Category &&
				existing.IsActive && existing.Overlaps(b.PeriodStart, b.PeriodEnd) {
				return storage.ErrOverlap
			}
		}
	}
	r.s.nextBudgetID++
	b.ID = r.s.nextBudgetID
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	r.s.budgets[b.ID] = *b
	return nil
}

func (r budgetRepo) Update(_ context.Context, b *core.Budget) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.budgets[b.ID]
	if !ok {
		return storage.ErrNotFound
	}
	b.UserID = existing.UserID
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	r.s.budgets[b.ID] = *b
	return nil
}

func (r budgetRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.budgets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.s.budgets, id)
	return nil
}
