package memory

import (
	"context"
	"fmt"
	"sync"

	"pocketbook/internal/core"
	"pocketbook/internal/sheets"
)

// Ledger is an in-process ledger sink used when no spreadsheet is configured.
type Ledger struct {
	mu    sync.Mutex
	order []int64
	rows  map[int64]core.Transaction
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{rows: make(map[int64]core.Transaction)}
}

// Upsert stores the transaction and returns a synthetic row reference.
func (l *Ledger) Upsert(_ context.Context, t core.Transaction) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[t.ID]; !ok {
		l.order = append(l.order, t.ID)
	}
	l.rows[t.ID] = t
	for i, id := range l.order {
		if id == t.ID {
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	return "", nil
}

func (l *Ledger) Remove(_ context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[id]; !ok {
		return nil
	}
	delete(l.rows, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the mirrored transactions in insertion order.
func (l *Ledger) Rows() []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Transaction, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.rows[id])
	}
	return out
}
