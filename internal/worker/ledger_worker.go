package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"pocketbook/internal/amqp"
	"pocketbook/internal/core"
	applog "pocketbook/internal/log"
	"pocketbook/internal/sheets"
	"pocketbook/internal/storage"
)

type (
	// TransactionReader is the slice of the transaction repository the worker needs.
	TransactionReader interface {
		FindByID(ctx context.Context, id int64) (*core.Transaction, error)
		FindByOwner(ctx context.Context, userID uuid.UUID, q storage.TransactionQuery) ([]core.Transaction, error)
	}

	UserLister interface {
		List(ctx context.Context) ([]core.User, error)
	}

	// Consumer delivers ledger events until ctx ends. *amqp.Client satisfies it.
	Consumer interface {
		ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
	}
)

// LedgerWorker mirrors transactions into an external ledger as ledger events
// arrive. Events for other entities are only logged.
type LedgerWorker struct {
	transactions TransactionReader
	users        UserLister
	ledger       sheets.LedgerWriter
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

func NewLedgerWorker(transactions TransactionReader, users UserLister, ledger sheets.LedgerWriter, logger *slog.Logger) *LedgerWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerWorker{
		transactions: transactions,
		users:        users,
		ledger:       ledger,
		logger:       logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleEvent processes one ledger event. A returned error makes the
// consumer requeue the message.
func (w *LedgerWorker) HandleEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		applog.FieldEntity, evt.Entity,
		applog.FieldEntityID, evt.ID,
		"action", evt.Action,
		applog.FieldUserID, evt.UserID.String())

	if evt.Entity != amqp.EntityTransaction {
		return nil
	}

	id, err := strconv.ParseInt(evt.ID, 10, 64)
	if err != nil {
		// Requeueing cannot fix a malformed id.
		w.logger.ErrorContext(ctx, "Dropping event with invalid transaction id", applog.FieldEntityID, evt.ID)
		return nil
	}

	switch evt.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		return w.mirror(ctx, id)
	case amqp.ActionDeleted:
		if err := w.ledger.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove transaction %d from ledger: %w", id, err)
		}
		w.logger.InfoContext(ctx, "Removed transaction from ledger", applog.FieldTransactionID, id)
		return nil
	default:
		w.logger.WarnContext(ctx, "Unknown ledger action", "action", evt.Action)
		return nil
	}
}

func (w *LedgerWorker) mirror(ctx context.Context, id int64) error {
	t, err := w.transactions.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before we got here; the delete event settles the ledger.
		w.logger.WarnContext(ctx, "Transaction no longer exists, skipping", applog.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}

	ref, err := w.ledger.Upsert(ctx, *t)
	if err != nil {
		return fmt.Errorf("mirror transaction %d: %w", id, err)
	}
	w.logger.InfoContext(ctx, "Mirrored transaction to ledger",
		applog.FieldTransactionID, id,
		applog.FieldSheetsRef, ref,
		applog.FieldAmount, t.Amount.String())
	return nil
}

// Backfill mirrors every stored transaction. It recovers a ledger after
// missed events or worker downtime.
func (w *LedgerWorker) Backfill(ctx context.Context) error {
	users, err := w.users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	synced, failed := 0, 0
	for _, u := range users {
		txs, err := w.transactions.FindByOwner(ctx, u.ID, storage.TransactionQuery{})
		if err != nil {
			return fmt.Errorf("list transactions of %s: %w", u.ID, err)
		}
		for _, t := range txs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := w.ledger.Upsert(ctx, t); err != nil {
				w.logger.ErrorContext(ctx, "Failed to mirror transaction during backfill",
					applog.FieldTransactionID, t.ID, applog.FieldError, err)
				failed++
				continue
			}
			synced++
		}
	}

	w.logger.InfoContext(ctx, "Backfill completed", "users", len(users), "synced", synced, "errors", failed)
	return nil
}

// Start consumes events in the background. Returns an error if already running.
func (w *LedgerWorker) Start(ctx context.Context, consumer Consumer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("ledger worker is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})

	go func() {
		defer close(w.doneCh)
		err := consumer.ConsumeLedgerEvents(ctx, w.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "Ledger consumer stopped", applog.FieldError, err)
		}
	}()

	w.logger.InfoContext(ctx, "Ledger worker started")
	return nil
}

// Stop cancels consumption and waits for it to finish or for ctx to expire.
func (w *LedgerWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.cancel()
	done := w.doneCh
	w.mu.Unlock()

	select {
	case <-done:
		w.logger.InfoContext(ctx, "Ledger worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Ledger worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *LedgerWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
