package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/log"

	"github.com/google/uuid"
)

// Store is the persistence surface the ledger service depends on.
type Store interface {
	CreateExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, ownerID, id string) (*core.Expense, error)
	ListExpenses(ctx context.Context, ownerID string, month *core.MonthRange) ([]core.Expense, error)
	ListStarred(ctx context.Context, ownerID string) ([]core.Expense, error)
	DeleteExpense(ctx context.Context, ownerID, id string) error
	SetStarred(ctx context.Context, ownerID, id string, starred bool) error
	CategorySummary(ctx context.Context, ownerID string, month *core.MonthRange) ([]core.CategoryTotal, error)
}

// EventPublisher emits ledger mutation events for downstream consumers.
// Publishing is best effort: the record is already persisted by the time an
// event goes out, and a broker outage must not fail the request.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event core.LedgerEvent) error
}

// Ledger implements the expense operations for a single authenticated owner
// per call. Every method takes the owner id explicitly; the store scopes all
// queries by it, so another user's expense is indistinguishable from a
// missing one.
type Ledger struct {
	store     Store
	publisher EventPublisher
	now       func() time.Time
}

// NewLedger creates the ledger service. publisher may be nil when no broker
// is configured.
func NewLedger(store Store, publisher EventPublisher) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateExpense validates the draft, fills defaults and persists the new
// record. The title defaults to the category and the date to now.
func (l *Ledger) CreateExpense(ctx context.Context, ownerID string, draft core.ExpenseDraft) (*core.Expense, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	e := core.Expense{
		ID:          uuid.NewString(),
		Title:       draft.Title,
		Amount:      *draft.Amount,
		Category:    draft.Category,
		Description: draft.Description,
		Date:        draft.Date,
		OwnerID:     ownerID,
	}
	if e.Title == "" {
		e.Title = e.Category
	}
	if e.Date.IsZero() {
		e.Date = l.now()
	}

	if err := l.store.CreateExpense(ctx, e); err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	l.publish(ctx, core.LedgerEvent{
		Action:    core.ActionCreated,
		ExpenseID: e.ID,
		OwnerID:   e.OwnerID,
		Category:  e.Category,
		Amount:    e.Amount,
		Timestamp: l.now(),
	})

	return &e, nil
}

// ListExpenses returns the owner's expenses, newest first. monthFilter may
// be "MM" or "YYYY-MM"; anything else means no filter.
func (l *Ledger) ListExpenses(ctx context.Context, ownerID, monthFilter string) ([]core.Expense, error) {
	expenses, err := l.store.ListExpenses(ctx, ownerID, l.monthRange(monthFilter))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// ListStarred returns the owner's starred expenses, newest first.
func (l *Ledger) ListStarred(ctx context.Context, ownerID string) ([]core.Expense, error) {
	expenses, err := l.store.ListStarred(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list starred: %w", err)
	}
	return expenses, nil
}

// DeleteExpense removes the owner's expense by id.
func (l *Ledger) DeleteExpense(ctx context.Context, ownerID, id string) error {
	e, err := l.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	if err := l.store.DeleteExpense(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	l.publish(ctx, core.LedgerEvent{
		Action:    core.ActionDeleted,
		ExpenseID: e.ID,
		OwnerID:   e.OwnerID,
		Category:  e.Category,
		Amount:    e.Amount,
		Timestamp: l.now(),
	})

	return nil
}

// ToggleStar flips the expense's star flag and returns the updated record.
// The write is unconditional, so concurrent toggles resolve to whichever
// landed last.
func (l *Ledger) ToggleStar(ctx context.Context, ownerID, id string) (*core.Expense, error) {
	e, err := l.store.GetExpense(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("toggle star: %w", err)
	}

	e.IsStarred = !e.IsStarred
	if err := l.store.SetStarred(ctx, ownerID, id, e.IsStarred); err != nil {
		return nil, fmt.Errorf("toggle star: %w", err)
	}

	l.publish(ctx, core.LedgerEvent{
		Action:    core.ActionStarToggled,
		ExpenseID: e.ID,
		OwnerID:   e.OwnerID,
		Category:  e.Category,
		Amount:    e.Amount,
		Starred:   e.IsStarred,
		Timestamp: l.now(),
	})

	return e, nil
}

// Summary aggregates the owner's spending by category, largest total first.
func (l *Ledger) Summary(ctx context.Context, ownerID, monthFilter string) ([]core.CategoryTotal, error) {
	totals, err := l.store.CategorySummary(ctx, ownerID, l.monthRange(monthFilter))
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return totals, nil
}

func (l *Ledger) monthRange(filter string) *core.MonthRange {
	if r, ok := core.ParseMonthFilter(filter, l.now()); ok {
		return &r
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, event core.LedgerEvent) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishLedgerEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			log.FieldAction, event.Action,
			log.FieldExpenseID, event.ExpenseID,
			log.FieldError, err)
	}
}
