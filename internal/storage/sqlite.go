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

	"gofinances/internal/core"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteLedger implements ledger.Store on a single SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens (or creates) the database, runs migrations and
// returns a ready store. The DSN uses immediate transactions so the
// balance-check-then-insert in CreateTransaction takes the write lock up
// front instead of failing on upgrade.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func (s *SQLiteLedger) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const transactionColumns = `t.id, t.title, t.value_cents, t.type, t.category_id, c.title, t.created_at`

// ListTransactions implements ledger.TransactionStore.
func (s *SQLiteLedger) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		ORDER BY t.rowid
	`)
	if err != nil {
		return nil, core.NewStorageError("list transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, core.NewStorageError("scan transaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("iterate transactions", err)
	}
	return out, nil
}

// GetTransaction returns nil without error when no row matches.
func (s *SQLiteLedger) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.id = ?
	`, id)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, core.NewStorageError("get transaction", err)
	}
	return &t, nil
}

// CreateTransaction persists one record. For outcome records the running
// balance is read inside the same immediate transaction as the insert, so two
// concurrent creates cannot both pass the overdraft check.
func (s *SQLiteLedger) CreateTransaction(ctx context.Context, rec core.NewTransaction) (core.Transaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, core.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	if rec.Type == core.Outcome {
		var total int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(CASE type WHEN 'income' THEN value_cents ELSE -value_cents END), 0)
			FROM transactions
		`).Scan(&total)
		if err != nil {
			return core.Transaction{}, core.NewStorageError("read balance", err)
		}
		if rec.Value.Cents > total {
			return core.Transaction{}, core.NewOverdraftError(
				fmt.Sprintf("outcome of %s exceeds available balance of %s",
					rec.Value, core.Money{Cents: total}))
		}
	}

	created, err := insertTransaction(ctx, tx, rec)
	if err != nil {
		return core.Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.Transaction{}, core.NewStorageError("commit transaction", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", created.ID,
		"title", created.Title,
		"type", created.Type,
		"value_cents", created.Value.Cents,
		"category", created.CategoryTitle)

	return created, nil
}

// CreateTransactions persists the whole batch in one SQL transaction; a
// failure on any row rolls back every row.
func (s *SQLiteLedger) CreateTransactions(ctx context.Context, recs []core.NewTransaction) ([]core.Transaction, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]core.Transaction, 0, len(recs))
	for _, rec := range recs {
		created, err := insertTransaction(ctx, tx, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}

	if err := tx.Commit(); err != nil {
		return nil, core.NewStorageError("commit transaction batch", err)
	}

	slog.InfoContext(ctx, "Transaction batch saved", "count", len(out))
	return out, nil
}

// DeleteTransaction removes exactly one row by id.
func (s *SQLiteLedger) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return core.NewStorageError("delete transaction", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.NewStorageError("delete transaction", err)
	}
	if n == 0 {
		return core.NewNotFoundError("transaction " + id + " does not exist")
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// FindCategoriesByTitles resolves the given titles in a single batched query.
func (s *SQLiteLedger) FindCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(titles))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(titles))
	for i, t := range titles {
		args[i] = t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, created_at FROM categories
		WHERE title IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, core.NewStorageError("find categories by titles", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &createdAt); err != nil {
			return nil, core.NewStorageError("scan category", err)
		}
		c.CreatedAt = parseStoredTime(createdAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("iterate categories", err)
	}
	return out, nil
}

// CreateCategory persists a single category. The unique title constraint
// turns a duplicate into a conflict-kind error for the resolver to retry.
func (s *SQLiteLedger) CreateCategory(ctx context.Context, title string) (core.Category, error) {
	c := core.Category{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (id, title, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Title, c.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.NewConflictError("category '"+title+"' already exists", err)
		}
		return core.Category{}, core.NewStorageError("create category", err)
	}

	slog.InfoContext(ctx, "Category created", "id", c.ID, "title", c.Title)
	return c, nil
}

// CreateCategories bulk-creates all titles atomically.
func (s *SQLiteLedger) CreateCategories(ctx context.Context, titles []string) ([]core.Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	out := make([]core.Category, 0, len(titles))
	for _, title := range titles {
		c := core.Category{
			ID:        uuid.NewString(),
			Title:     title,
			CreatedAt: time.Now().UTC(),
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, title, created_at) VALUES (?, ?, ?)`,
			c.ID, c.Title, c.CreatedAt.Format(time.RFC3339Nano))
		if err != nil {
			if isUniqueViolation(err) {
				return nil, core.NewConflictError("category '"+title+"' already exists", err)
			}
			return nil, core.NewStorageError("create category", err)
		}
		out = append(out, c)
	}

	if err := tx.Commit(); err != nil {
		return nil, core.NewStorageError("commit category batch", err)
	}

	slog.InfoContext(ctx, "Category batch created", "count", len(out))
	return out, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, rec core.NewTransaction) (core.Transaction, error) {
	var categoryTitle string
	err := tx.QueryRowContext(ctx,
		`SELECT title FROM categories WHERE id = ?`, rec.CategoryID).Scan(&categoryTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NewValidationError("category "+rec.CategoryID+" does not exist", nil)
	}
	if err != nil {
		return core.Transaction{}, core.NewStorageError("look up category", err)
	}

	created := core.Transaction{
		ID:            uuid.NewString(),
		Title:         rec.Title,
		Value:         rec.Value,
		Type:          rec.Type,
		CategoryID:    rec.CategoryID,
		CategoryTitle: categoryTitle,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, title, value_cents, type, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, created.ID, created.Title, created.Value.Cents, string(created.Type),
		created.CategoryID, created.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, core.NewStorageError("insert transaction", err)
	}
	return created, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var typ, createdAt string
	if err := row.Scan(&t.ID, &t.Title, &t.Value.Cents, &typ, &t.CategoryID, &t.CategoryTitle, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.CreatedAt = parseStoredTime(createdAt)
	return t, nil
}

// parseStoredTime tolerates both the RFC3339 timestamps written by this code
// and the "datetime('now')" format of the column default.
func parseStoredTime(s string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts
	}
	return time.Time{}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
