// Package storage persists users, categories, expenses, and budgets in
// SQLite.
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

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to a
	// different user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned on unique-constraint violations.
	ErrDuplicate = errors.New("already exists")
	// ErrCategoryInUse is returned when deleting a category that still has
	// expenses and the caller did not ask for a cascading delete.
	ErrCategoryInUse = errors.New("category has expenses")
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma goes in the DSN so every pooled connection enforces
	// foreign keys, not just the first one.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// --- users ---

// CreateUser inserts a new account. Username and email collisions return
// ErrDuplicate.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES (?, ?, ?)`,
		username, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, ErrDuplicate
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "username", username)
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?`, username))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// --- budgets ---

// GetMonthlyBudget returns the user's monthly budget. A user without a
// stored budget has an implicit budget of zero.
func (r *SQLiteRepository) GetMonthlyBudget(ctx context.Context, userID int64) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT monthly_cents FROM user_budgets WHERE user_id = ?`, userID).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("get budget: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// SetMonthlyBudget upserts the user's monthly budget.
func (r *SQLiteRepository) SetMonthlyBudget(ctx context.Context, userID int64, budget core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_budgets (user_id, monthly_cents) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET monthly_cents = excluded.monthly_cents`,
		userID, budget.Cents)
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// --- categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, ErrDuplicate
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category id: %w", err)
	}
	return core.Category{ID: id, Name: name}, nil
}

// CountExpensesByCategory returns how many expenses reference a category
// across all users.
func (r *SQLiteRepository) CountExpensesByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count category expenses: %w", err)
	}
	return count, nil
}

// DeleteCategory removes a category. Without cascade, a category that still
// has expenses returns ErrCategoryInUse together with the dependent count.
// With cascade, dependent expenses are removed by the foreign key.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64, cascade bool) (int64, error) {
	dependents, err := r.CountExpensesByCategory(ctx, id)
	if err != nil {
		return 0, err
	}
	if dependents > 0 && !cascade {
		return dependents, ErrCategoryInUse
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return dependents, fmt.Errorf("delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return dependents, fmt.Errorf("delete category affected: %w", err)
	}
	if affected == 0 {
		return dependents, ErrNotFound
	}

	if dependents > 0 {
		slog.InfoContext(ctx, "Category deleted with expenses",
			"category_id", id, "expenses_removed", dependents)
	}
	return dependents, nil
}

// --- expenses ---

// CreateExpense inserts an expense and returns it with its id, category
// name, and creation time filled in. A missing category surfaces as
// core.ErrMissingCategory.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, category_id, amount_cents, description, tags, spent_on)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.CategoryID, e.Amount.Cents, e.Description, e.Tags,
		e.Date.Format(dateLayout))
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Expense{}, core.ErrMissingCategory
		}
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", e.UserID,
		"amount_cents", e.Amount.Cents,
		"category_id", e.CategoryID)

	return r.GetExpense(ctx, e.UserID, id)
}

// GetExpense fetches one expense scoped to its owner. Another user's
// expense is indistinguishable from a missing one.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT e.id, e.user_id, e.amount_cents, e.description, e.category_id,
		        c.name, e.tags, e.spent_on, e.created_at
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.id = ? AND e.user_id = ?`, id, userID)
	return scanExpense(row.Scan)
}

// UpdateExpense replaces the mutable fields of an owner-scoped expense.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET amount_cents = ?, description = ?, category_id = ?, tags = ?, spent_on = ?
		 WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Description, e.CategoryID, e.Tags,
		e.Date.Format(dateLayout), e.ID, e.UserID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Expense{}, core.ErrMissingCategory
		}
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense affected: %w", err)
	}
	if affected == 0 {
		return core.Expense{}, ErrNotFound
	}
	return r.GetExpense(ctx, e.UserID, e.ID)
}

// DeleteExpense removes an owner-scoped expense.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpensesByUser returns all of a user's expenses, newest first.
func (r *SQLiteRepository) ListExpensesByUser(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.amount_cents, e.description, e.category_id,
		        c.name, e.tags, e.spent_on, e.created_at
		 FROM expenses e
		 JOIN categories c ON c.id = e.category_id
		 WHERE e.user_id = ?
		 ORDER BY e.spent_on DESC, e.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func scanExpense(scan func(dest ...any) error) (core.Expense, error) {
	var (
		e       core.Expense
		spentOn string
	)
	err := scan(&e.ID, &e.UserID, &e.Amount.Cents, &e.Description, &e.CategoryID,
		&e.CategoryName, &e.Tags, &spentOn, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}

	d, err := time.Parse(dateLayout, spentOn)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", spentOn, err)
	}
	e.Date = core.Date{Time: d}
	return e, nil
}
