package worker

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pocketbook/internal/amqp"
	"pocketbook/internal/core"
	sheetsmem "pocketbook/internal/sheets/memory"
	"pocketbook/internal/storage"
	"pocketbook/internal/storage/memory"
)

func seed(t *testing.T, repos *storage.Repositories, userID uuid.UUID, amount string) *core.Transaction {
	t.Helper()
	tx := &core.Transaction{
		UserID:          userID,
		Description:     "coffee",
		Amount:          decimal.RequireFromString(amount),
		Type:            core.Expense,
		TransactionDate: core.NewDate(2024, time.May, 2),
	}
	if err := repos.Transactions.Create(context.Background(), tx); err != nil {
		t.Fatal(err)
	}
	return tx
}

func event(entity, action string, id int64) *amqp.LedgerEvent {
	return amqp.NewLedgerEvent(entity, action, strconv.FormatInt(id, 10), uuid.New())
}

func TestHandleEventMirrorsTransactions(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	ledger := sheetsmem.New()
	w := NewLedgerWorker(repos.Transactions, repos.Users, ledger, nil)

	tx := seed(t, repos, uuid.New(), "3.20")

	if err := w.HandleEvent(ctx, event(amqp.EntityTransaction, amqp.ActionCreated, tx.ID)); err != nil {
		t.Fatalf("HandleEvent(created) error = %v", err)
	}
	if rows := ledger.Rows(); len(rows) != 1 || rows[0].ID != tx.ID {
		t.Fatalf("ledger rows = %+v", rows)
	}

	tx.Amount = decimal.RequireFromString("4.00")
	if err := repos.Transactions.Update(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleEvent(ctx, event(amqp.EntityTransaction, amqp.ActionUpdated, tx.ID)); err != nil {
		t.Fatal(err)
	}
	if rows := ledger.Rows(); len(rows) != 1 || !rows[0].Amount.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("ledger rows after update = %+v", rows)
	}

	if err := w.HandleEvent(ctx, event(amqp.EntityTransaction, amqp.ActionDeleted, tx.ID)); err != nil {
		t.Fatal(err)
	}
	if rows := ledger.Rows(); len(rows) != 0 {
		t.Fatalf("ledger rows after delete = %+v", rows)
	}
}

func TestHandleEventSkips(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	ledger := sheetsmem.New()
	w := NewLedgerWorker(repos.Transactions, repos.Users, ledger, nil)

	tests := []struct {
		name  string
		event *amqp.LedgerEvent
	}{
		{"budget event", event(amqp.EntityBudget, amqp.ActionCreated, 1)},
		{"vanished transaction", event(amqp.EntityTransaction, amqp.ActionCreated, 404)},
		{"bad id", amqp.NewLedgerEvent(amqp.EntityTransaction, amqp.ActionCreated, "abc", uuid.New())},
		{"unknown action", event(amqp.EntityTransaction, "archived", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := w.HandleEvent(ctx, tt.event); err != nil {
				t.Errorf("HandleEvent() error = %v, want nil", err)
			}
		})
	}
	if rows := ledger.Rows(); len(rows) != 0 {
		t.Errorf("ledger rows = %+v, want none", rows)
	}
}

type failingLedger struct{}

func (failingLedger) Upsert(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}
func (failingLedger) Remove(context.Context, int64) error { return errors.New("quota exceeded") }

func TestHandleEventRequeuesOnLedgerFailure(t *testing.T) {
	repos := memory.New().Repositories()
	w := NewLedgerWorker(repos.Transactions, repos.Users, failingLedger{}, nil)
	tx := seed(t, repos, uuid.New(), "1")

	if err := w.HandleEvent(context.Background(), event(amqp.EntityTransaction, amqp.ActionCreated, tx.ID)); err == nil {
		t.Error("expected error so the message is requeued")
	}
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	ledger := sheetsmem.New()
	w := NewLedgerWorker(repos.Transactions, repos.Users, ledger, nil)

	u := &core.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"}
	if err := repos.Users.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	seed(t, repos, u.ID, "1")
	seed(t, repos, u.ID, "2")

	if err := w.Backfill(ctx); err != nil {
		t.Fatalf("Backfill() error = %v", err)
	}
	if rows := ledger.Rows(); len(rows) != 2 {
		t.Errorf("ledger rows = %d, want 2", len(rows))
	}
}

type blockingConsumer struct{ started chan struct{} }

func (c blockingConsumer) ConsumeLedgerEvents(ctx context.Context, _ func(context.Context, *amqp.LedgerEvent) error) error {
	close(c.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestStartStop(t *testing.T) {
	repos := memory.New().Repositories()
	w := NewLedgerWorker(repos.Transactions, repos.Users, sheetsmem.New(), nil)
	consumer := blockingConsumer{started: make(chan struct{})}

	if w.IsRunning() {
		t.Fatal("worker should not be running initially")
	}
	if err := w.Start(context.Background(), consumer); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background(), consumer); err == nil {
		t.Error("expected error when starting twice")
	}
	<-consumer.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should not be running after Stop")
	}
}
