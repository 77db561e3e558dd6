package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spendlog/internal/core"
	"spendlog/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the persistent store behind the auth gateway and the
// ledger service. Every expense operation is scoped by owner in the query
// itself, so an ownership mismatch and a missing record are the same thing:
// zero rows.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dbPath != ":memory:" && dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// An in-memory database exists per connection; the pool must not open
	// a second one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser persists a new identity record. The email uniqueness constraint
// is the backstop for concurrent registrations; callers are expected to have
// checked for an existing email first.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("create user: %w", core.ErrDuplicateIdentity)
		}
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", log.FieldUserID, u.ID, log.FieldEmail, u.Email)
	return nil
}

// GetUserByEmail looks up a user by exact, case-sensitive email match.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE email = ?",
		email,
	)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// CreateExpense persists a fully validated expense record. The date is
// normalized to UTC: the driver stores timestamps as zone-preserving text,
// so predicates and ordering only compare instants when every stored value
// and every bound range share one zone.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, title, amount, category, description, date, is_starred, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Amount, e.Category, e.Description, e.Date.UTC(), e.IsStarred, e.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		log.FieldExpenseID, e.ID,
		log.FieldOwnerID, e.OwnerID,
		log.FieldCategory, e.Category,
		log.FieldAmount, e.Amount)

	return nil
}

// GetExpense retrieves a single expense by id, scoped to its owner.
func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id string) (*core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, title, amount, category, description, date, is_starred, owner_id
		 FROM expenses WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)

	var e core.Expense
	if err := row.Scan(&e.ID, &e.Title, &e.Amount, &e.Category, &e.Description, &e.Date, &e.IsStarred, &e.OwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get expense: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return &e, nil
}

// ListExpenses returns the owner's expenses ordered by date descending,
// optionally restricted to a half-open month range.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string, month *core.MonthRange) ([]core.Expense, error) {
	query := `SELECT id, title, amount, category, description, date, is_starred, owner_id
		 FROM expenses WHERE owner_id = ?`
	args := []any{ownerID}
	if month != nil {
		query += " AND date >= ? AND date < ?"
		args = append(args, month.Start.UTC(), month.End.UTC())
	}
	query += " ORDER BY date DESC"

	return r.queryExpenses(ctx, query, args...)
}

// ListStarred returns the owner's starred expenses ordered by date descending.
func (r *SQLiteRepository) ListStarred(ctx context.Context, ownerID string) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, title, amount, category, description, date, is_starred, owner_id
		 FROM expenses WHERE owner_id = ? AND is_starred = 1 ORDER BY date DESC`,
		ownerID,
	)
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.Title, &e.Amount, &e.Category, &e.Description, &e.Date, &e.IsStarred, &e.OwnerID); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, nil
}

// DeleteExpense removes an expense owned by ownerID. A missing record and a
// record owned by someone else both report core.ErrNotFound.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND owner_id = ?",
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete expense: %w", core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense deleted", log.FieldExpenseID, id, log.FieldOwnerID, ownerID)
	return nil
}

// SetStarred writes the star flag unconditionally (last writer wins; the
// flag is low stakes and carries no version token).
func (r *SQLiteRepository) SetStarred(ctx context.Context, ownerID, id string, starred bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET is_starred = ? WHERE id = ? AND owner_id = ?",
		starred, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("set starred: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set starred rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("set starred: %w", core.ErrNotFound)
	}
	return nil
}

// CategorySummary aggregates the owner's expenses by category, ordered by
// total descending. Categories with no matching records are absent.
func (r *SQLiteRepository) CategorySummary(ctx context.Context, ownerID string, month *core.MonthRange) ([]core.CategoryTotal, error) {
	query := "SELECT category, SUM(amount) AS total FROM expenses WHERE owner_id = ?"
	args := []any{ownerID}
	if month != nil {
		query += " AND date >= ? AND date < ?"
		args = append(args, month.Start.UTC(), month.End.UTC())
	}
	query += " GROUP BY category ORDER BY total DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category summary: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var t core.CategoryTotal
		if err := rows.Scan(&t.Category, &t.Total); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}

	return totals, nil
}

// AuditEntry is one row of the append-only mutation log maintained by the
// worker from the ledger event stream.
type AuditEntry struct {
	Action     string
	ExpenseID  string
	OwnerID    string
	Category   string
	Amount     float64
	Starred    bool
	OccurredAt time.Time
}

// AppendAudit records a ledger mutation event.
func (r *SQLiteRepository) AppendAudit(ctx context.Context, entry AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (action, expense_id, owner_id, category, amount, starred, occurred_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Action, entry.ExpenseID, entry.OwnerID, entry.Category, entry.Amount, entry.Starred, entry.OccurredAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// PruneAuditBefore deletes audit entries recorded before the cutoff and
// returns how many were removed.
func (r *SQLiteRepository) PruneAuditBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM audit_log WHERE recorded_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("prune audit log: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune audit log rows affected: %w", err)
	}
	return affected, nil
}

// AuditCount returns the number of audit entries currently retained.
func (r *SQLiteRepository) AuditCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}
