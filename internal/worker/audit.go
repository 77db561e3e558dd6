package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/log"
	"spendlog/internal/storage"

	"golang.org/x/sync/errgroup"
)

// AuditStore is the persistence surface the audit worker writes to.
type AuditStore interface {
	AppendAudit(ctx context.Context, entry storage.AuditEntry) error
	PruneAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventSource delivers ledger events until its context is cancelled.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, core.LedgerEvent) error) error
}

// AuditWorker turns the ledger event stream into an append-only audit log
// and prunes entries older than the retention window.
type AuditWorker struct {
	store     AuditStore
	retention time.Duration
	sweep     time.Duration
}

func NewAuditWorker(store AuditStore, retention, sweep time.Duration) *AuditWorker {
	return &AuditWorker{
		store:     store,
		retention: retention,
		sweep:     sweep,
	}
}

// HandleLedgerEvent records a single ledger event. Returning an error makes
// the consumer requeue the delivery.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, event core.LedgerEvent) error {
	entry := storage.AuditEntry{
		Action:     event.Action,
		ExpenseID:  event.ExpenseID,
		OwnerID:    event.OwnerID,
		Category:   event.Category,
		Amount:     event.Amount,
		Starred:    event.Starred,
		OccurredAt: event.Timestamp,
	}
	if err := w.store.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	slog.InfoContext(ctx, "Recorded audit entry",
		log.FieldAction, event.Action,
		log.FieldExpenseID, event.ExpenseID,
		log.FieldOwnerID, event.OwnerID)

	return nil
}

// PruneOnce removes audit entries older than the retention window.
func (w *AuditWorker) PruneOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-w.retention)
	removed, err := w.store.PruneAuditBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune audit log: %w", err)
	}
	if removed > 0 {
		slog.InfoContext(ctx, "Pruned audit entries",
			log.FieldOperation, log.OpPrune,
			"removed", removed,
			"cutoff", cutoff)
	}
	return nil
}

// Run consumes ledger events and sweeps the audit log periodically until
// ctx is cancelled or the event source fails.
func (w *AuditWorker) Run(ctx context.Context, source EventSource) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return source.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				// A failed sweep retries on the next tick; it must not
				// take the consumer down with it.
				if err := w.PruneOnce(ctx); err != nil {
					slog.ErrorContext(ctx, "Audit sweep failed", log.FieldError, err)
				}
			}
		}
	})

	return g.Wait()
}
