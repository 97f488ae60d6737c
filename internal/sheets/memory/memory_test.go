package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pocketbook/internal/core"
)

func TestLedgerUpsertAndRemove(t *testing.T) {
	ctx := context.Background()
	l := New()

	for _, id := range []int64{1, 2, 3} {
		if _, err := l.Upsert(ctx, core.Transaction{ID: id, Amount: decimal.NewFromInt(id)}); err != nil {
			t.Fatalf("Upsert(%d) error = %v", id, err)
		}
	}

	ref, err := l.Upsert(ctx, core.Transaction{ID: 2, Amount: decimal.NewFromInt(20)})
	if err != nil {
		t.Fatal(err)
	}
	if ref != "mem:2" {
		t.Errorf("ref = %q, want mem:2", ref)
	}

	if err := l.Remove(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := l.Remove(ctx, 42); err != nil {
		t.Errorf("removing a missing row should not fail: %v", err)
	}

	rows := l.Rows()
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].ID != 2 || !rows[0].Amount.Equal(decimal.NewFromInt(20)) {
		t.Errorf("rows[0] = %+v, want id 2 amount 20", rows[0])
	}
	if rows[1].ID != 3 {
		t.Errorf("rows[1].ID = %d, want 3", rows[1].ID)
	}
}
