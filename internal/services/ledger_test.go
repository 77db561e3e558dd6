package services

import (
	"context"
	"testing"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	events []core.LedgerEvent
	fail   bool
}

func (p *capturingPublisher) PublishLedgerEvent(_ context.Context, event core.LedgerEvent) error {
	if p.fail {
		return assert.AnError
	}
	p.events = append(p.events, event)
	return nil
}

func newTestLedger(t *testing.T) (*Ledger, *capturingPublisher, string) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	ownerID := uuid.NewString()
	require.NoError(t, repo.CreateUser(context.Background(), core.User{
		ID:           ownerID,
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}))

	publisher := &capturingPublisher{}
	return NewLedger(repo, publisher), publisher, ownerID
}

func amount(v float64) *float64 { return &v }

func TestCreateExpenseDefaults(t *testing.T) {
	ctx := context.Background()
	ledger, publisher, ownerID := newTestLedger(t)

	before := time.Now()
	e, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{
		Amount:   amount(12.5),
		Category: "Food",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "Food", e.Title, "title defaults to the category")
	assert.Equal(t, 12.5, e.Amount)
	assert.False(t, e.IsStarred, "new expenses are never starred")
	assert.False(t, e.Date.Before(before), "date defaults to creation time")

	require.Len(t, publisher.events, 1)
	assert.Equal(t, core.ActionCreated, publisher.events[0].Action)
	assert.Equal(t, e.ID, publisher.events[0].ExpenseID)
}

func TestCreateExpenseInvalidDraft(t *testing.T) {
	ctx := context.Background()
	ledger, publisher, ownerID := newTestLedger(t)

	cases := []core.ExpenseDraft{
		{Amount: amount(10)},                   // missing category
		{Category: "Food"},                     // missing amount
		{Amount: amount(-1), Category: "Food"}, // negative amount
	}
	for _, draft := range cases {
		_, err := ledger.CreateExpense(ctx, ownerID, draft)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	}
	assert.Empty(t, publisher.events, "rejected drafts must not emit events")
}

func TestCreateExpensePublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	ledger, publisher, ownerID := newTestLedger(t)
	publisher.fail = true

	e, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{
		Amount:   amount(10),
		Category: "Food",
	})
	require.NoError(t, err, "a broker failure must not fail the write")

	// The record is persisted regardless.
	expenses, err := ledger.ListExpenses(ctx, ownerID, "")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, e.ID, expenses[0].ID)
}

func TestListExpensesMonthFilter(t *testing.T) {
	ctx := context.Background()
	ledger, _, ownerID := newTestLedger(t)

	ledger.now = func() time.Time { return time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC) }

	october := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)
	november := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)

	inMonth, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{Amount: amount(10), Category: "Food", Date: october})
	require.NoError(t, err)
	_, err = ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{Amount: amount(20), Category: "Food", Date: november})
	require.NoError(t, err)

	// Bare month number resolves against the current year.
	expenses, err := ledger.ListExpenses(ctx, ownerID, "10")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, inMonth.ID, expenses[0].ID)

	expenses, err = ledger.ListExpenses(ctx, ownerID, "2025-10")
	require.NoError(t, err)
	require.Len(t, expenses, 1)

	// A malformed filter is silently ignored.
	expenses, err = ledger.ListExpenses(ctx, ownerID, "last month")
	require.NoError(t, err)
	assert.Len(t, expenses, 2)
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	ledger, publisher, ownerID := newTestLedger(t)

	e, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{Amount: amount(10), Category: "Food"})
	require.NoError(t, err)

	require.NoError(t, ledger.DeleteExpense(ctx, ownerID, e.ID))
	assert.ErrorIs(t, ledger.DeleteExpense(ctx, ownerID, e.ID), core.ErrNotFound)

	require.Len(t, publisher.events, 2)
	assert.Equal(t, core.ActionDeleted, publisher.events[1].Action)
}

func TestDeleteExpenseOtherOwner(t *testing.T) {
	ctx := context.Background()
	ledger, _, ownerID := newTestLedger(t)

	e, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{Amount: amount(10), Category: "Food"})
	require.NoError(t, err)

	err = ledger.DeleteExpense(ctx, uuid.NewString(), e.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "another owner's expense looks like a missing one")
}

func TestToggleStarIsAnInvolution(t *testing.T) {
	ctx := context.Background()
	ledger, publisher, ownerID := newTestLedger(t)

	e, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{Amount: amount(10), Category: "Food"})
	require.NoError(t, err)

	toggled, err := ledger.ToggleStar(ctx, ownerID, e.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsStarred)

	starred, err := ledger.ListStarred(ctx, ownerID)
	require.NoError(t, err)
	require.Len(t, starred, 1)

	toggled, err = ledger.ToggleStar(ctx, ownerID, e.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsStarred)

	starred, err = ledger.ListStarred(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, starred)

	require.Len(t, publisher.events, 3)
	assert.Equal(t, core.ActionStarToggled, publisher.events[1].Action)
	assert.True(t, publisher.events[1].Starred)
	assert.False(t, publisher.events[2].Starred)
}

func TestToggleStarUnknownExpense(t *testing.T) {
	ctx := context.Background()
	ledger, _, ownerID := newTestLedger(t)

	_, err := ledger.ToggleStar(ctx, ownerID, uuid.NewString())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSummaryGroupsAndSorts(t *testing.T) {
	ctx := context.Background()
	ledger, _, ownerID := newTestLedger(t)

	october := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)
	for _, e := range []struct {
		category string
		amount   float64
	}{
		{"Food", 100},
		{"Food", 50},
		{"Travel", 200},
	} {
		_, err := ledger.CreateExpense(ctx, ownerID, core.ExpenseDraft{Amount: amount(e.amount), Category: e.category, Date: october})
		require.NoError(t, err)
	}

	totals, err := ledger.Summary(ctx, ownerID, "")
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, core.CategoryTotal{Category: "Travel", Total: 200}, totals[0])
	assert.Equal(t, core.CategoryTotal{Category: "Food", Total: 150}, totals[1])
}

func TestSummaryEmpty(t *testing.T) {
	ctx := context.Background()
	ledger, _, ownerID := newTestLedger(t)

	totals, err := ledger.Summary(ctx, ownerID, "")
	require.NoError(t, err)
	assert.Empty(t, totals)
}
