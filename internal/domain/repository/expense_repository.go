package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"expense_tracker/internal/common"
	"expense_tracker/internal/domain/model"
)

// ExpenseFilter narrows ListByUser results. Zero values mean "no filter".
type ExpenseFilter struct {
	CategorySlug string
	SearchTerm   string // matched against description, case-insensitive
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

// ExpenseChanges carries the fields of a partial update. Nil fields are left
// untouched. CategorySlug must be set whenever Category is.
type ExpenseChanges struct {
	Description  *string
	Amount       *float64
	Category     *string
	CategorySlug *string
	Date         *time.Time
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense *model.Expense) error
	FindByID(ctx context.Context, id string) (*model.Expense, error)
	Update(ctx context.Context, expense *model.Expense) error
	Delete(ctx context.Context, id string) error

	ListByUser(ctx context.Context, userID string, filter ExpenseFilter) ([]model.Expense, int, float64, error)
	FindByCategory(ctx context.Context, userID, categorySlug string) ([]model.Expense, error)
	UpdateByCategory(ctx context.Context, userID, categorySlug string, changes ExpenseChanges) ([]model.Expense, error)
	DeleteByCategory(ctx context.Context, userID, categorySlug string) (int64, error)
	SummarizeByUser(ctx context.Context, userID string, from, to *time.Time) ([]model.CategoryTotal, float64, error)
}

type pgExpenseRepository struct {
	db *sql.DB
}

func NewPgExpenseRepository(db *sql.DB) ExpenseRepository {
	return &pgExpenseRepository{db: db}
}

const expenseColumns = `id, user_id, description, amount, category, category_slug, spent_at, created_at, updated_at`

func scanExpense(row interface{ Scan(...interface{}) error }, e *model.Expense) error {
	return row.Scan(
		&e.ID, &e.UserID, &e.Description, &e.Amount, &e.Category, &e.CategorySlug,
		&e.Date, &e.CreatedAt, &e.UpdatedAt,
	)
}

func (r *pgExpenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	query := `INSERT INTO expenses (id, user_id, description, amount, category, category_slug, spent_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		expense.ID, expense.UserID, expense.Description, expense.Amount,
		expense.Category, expense.CategorySlug, expense.Date,
	).Scan(&expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("pgExpenseRepository.Create: %w", err)
	}
	return nil
}

func (r *pgExpenseRepository) FindByID(ctx context.Context, id string) (*model.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`
	expense := &model.Expense{}
	if err := scanExpense(r.db.QueryRowContext(ctx, query, id), expense); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgExpenseRepository.FindByID: %w", err)
	}
	return expense, nil
}

func (r *pgExpenseRepository) Update(ctx context.Context, expense *model.Expense) error {
	query := `UPDATE expenses SET
	            description = $1, amount = $2, category = $3, category_slug = $4,
	            spent_at = $5, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $6
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		expense.Description, expense.Amount, expense.Category, expense.CategorySlug,
		expense.Date, expense.ID,
	).Scan(&expense.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("pgExpenseRepository.Update: %w", err)
	}
	return nil
}

func (r *pgExpenseRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgExpenseRepository.Delete: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListByUser returns the page of matching expenses, the total match count and
// the summed amount over all matches (not just the page).
func (r *pgExpenseRepository) ListByUser(ctx context.Context, userID string, filter ExpenseFilter) ([]model.Expense, int, float64, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argID := 2

	if filter.CategorySlug != "" {
		conditions = append(conditions, fmt.Sprintf("category_slug = $%d", argID))
		args = append(args, filter.CategorySlug)
		argID++
	}
	if filter.SearchTerm != "" {
		conditions = append(conditions, fmt.Sprintf("description ILIKE $%d", argID))
		args = append(args, "%"+filter.SearchTerm+"%")
		argID++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("spent_at >= $%d", argID))
		args = append(args, *filter.From)
		argID++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("spent_at <= $%d", argID))
		args = append(args, *filter.To)
		argID++
	}

	whereClause := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	var totalAmount float64
	countQuery := `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM expenses` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total, &totalAmount); err != nil {
		return nil, 0, 0, fmt.Errorf("pgExpenseRepository.ListByUser count: %w", err)
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses` + whereClause +
		fmt.Sprintf(" ORDER BY spent_at DESC, created_at DESC LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("pgExpenseRepository.ListByUser query: %w", err)
	}
	defer rows.Close()

	expenses := []model.Expense{}
	for rows.Next() {
		var e model.Expense
		if err := scanExpense(rows, &e); err != nil {
			return nil, 0, 0, fmt.Errorf("pgExpenseRepository.ListByUser scan: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, 0, fmt.Errorf("pgExpenseRepository.ListByUser rows.Err: %w", err)
	}

	return expenses, total, totalAmount, nil
}

func (r *pgExpenseRepository) FindByCategory(ctx context.Context, userID, categorySlug string) ([]model.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses
	          WHERE user_id = $1 AND category_slug = $2
	          ORDER BY spent_at DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("pgExpenseRepository.FindByCategory query: %w", err)
	}
	defer rows.Close()

	expenses := []model.Expense{}
	for rows.Next() {
		var e model.Expense
		if err := scanExpense(rows, &e); err != nil {
			return nil, fmt.Errorf("pgExpenseRepository.FindByCategory scan: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExpenseRepository.FindByCategory rows.Err: %w", err)
	}
	return expenses, nil
}

// UpdateByCategory is a single UPDATE statement, so the whole category
// changes atomically. It returns exactly the rows it touched, which matters
// when a rename merges into a category that already has expenses.
func (r *pgExpenseRepository) UpdateByCategory(ctx context.Context, userID, categorySlug string, changes ExpenseChanges) ([]model.Expense, error) {
	setClauses := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{}
	argID := 1

	if changes.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argID))
		args = append(args, *changes.Description)
		argID++
	}
	if changes.Amount != nil {
		setClauses = append(setClauses, fmt.Sprintf("amount = $%d", argID))
		args = append(args, *changes.Amount)
		argID++
	}
	if changes.Category != nil {
		setClauses = append(setClauses, fmt.Sprintf("category = $%d", argID))
		args = append(args, *changes.Category)
		argID++
		setClauses = append(setClauses, fmt.Sprintf("category_slug = $%d", argID))
		args = append(args, *changes.CategorySlug)
		argID++
	}
	if changes.Date != nil {
		setClauses = append(setClauses, fmt.Sprintf("spent_at = $%d", argID))
		args = append(args, *changes.Date)
		argID++
	}

	query := fmt.Sprintf(`WITH updated AS (
	            UPDATE expenses SET %s WHERE user_id = $%d AND category_slug = $%d
	            RETURNING %s
	          )
	          SELECT %s FROM updated ORDER BY spent_at DESC, created_at DESC`,
		strings.Join(setClauses, ", "), argID, argID+1, expenseColumns, expenseColumns)
	args = append(args, userID, categorySlug)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgExpenseRepository.UpdateByCategory: %w", err)
	}
	defer rows.Close()

	expenses := []model.Expense{}
	for rows.Next() {
		var e model.Expense
		if err := scanExpense(rows, &e); err != nil {
			return nil, fmt.Errorf("pgExpenseRepository.UpdateByCategory scan: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgExpenseRepository.UpdateByCategory rows.Err: %w", err)
	}
	return expenses, nil
}

func (r *pgExpenseRepository) DeleteByCategory(ctx context.Context, userID, categorySlug string) (int64, error) {
	query := `DELETE FROM expenses WHERE user_id = $1 AND category_slug = $2`

	res, err := r.db.ExecContext(ctx, query, userID, categorySlug)
	if err != nil {
		return 0, fmt.Errorf("pgExpenseRepository.DeleteByCategory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pgExpenseRepository.DeleteByCategory rows affected: %w", err)
	}
	return affected, nil
}

func (r *pgExpenseRepository) SummarizeByUser(ctx context.Context, userID string, from, to *time.Time) ([]model.CategoryTotal, float64, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}
	argID := 2

	if from != nil {
		conditions = append(conditions, fmt.Sprintf("spent_at >= $%d", argID))
		args = append(args, *from)
		argID++
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("spent_at <= $%d", argID))
		args = append(args, *to)
		argID++
	}

	query := `SELECT category, COUNT(*), SUM(amount) FROM expenses WHERE ` +
		strings.Join(conditions, " AND ") +
		` GROUP BY category ORDER BY SUM(amount) DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgExpenseRepository.SummarizeByUser query: %w", err)
	}
	defer rows.Close()

	totals := []model.CategoryTotal{}
	var grandTotal float64
	for rows.Next() {
		var t model.CategoryTotal
		if err := rows.Scan(&t.Category, &t.Count, &t.Total); err != nil {
			return nil, 0, fmt.Errorf("pgExpenseRepository.SummarizeByUser scan: %w", err)
		}
		grandTotal += t.Total
		totals = append(totals, t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgExpenseRepository.SummarizeByUser rows.Err: %w", err)
	}
	return totals, grandTotal, nil
}
