package service

import (
	"context"
	"time"

	"expense_tracker/internal/common"
	"expense_tracker/internal/domain/model"
	"expense_tracker/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

type ExpenseService struct {
	expenseRepo repository.ExpenseRepository
}

func NewExpenseService(expenseRepo repository.ExpenseRepository) *ExpenseService {
	return &ExpenseService{expenseRepo: expenseRepo}
}

type CreateExpenseRequest struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	Date        *time.Time `json:"date,omitempty"` // Defaults to now
}

type UpdateExpenseRequest struct {
	Description *string    `json:"description,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
}

type ListExpensesRequest struct {
	Category   string
	SearchTerm string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

type ExpenseListResponse struct {
	Expenses    []model.Expense `json:"expenses"`
	Total       int             `json:"total"`
	TotalAmount float64         `json:"total_amount"`
	Page        int             `json:"page"`
	PageSize    int             `json:"page_size"`
}

type SummaryResponse struct {
	Categories []model.CategoryTotal `json:"categories"`
	Total      float64               `json:"total"`
}

func (s *ExpenseService) CreateExpense(ctx context.Context, userID string, req CreateExpenseRequest) (*model.Expense, error) {
	if req.Amount <= 0 {
		return nil, common.Errorf("amount must be positive: %w", common.ErrValidation)
	}
	if req.Category == "" {
		return nil, common.Errorf("category is required: %w", common.ErrValidation)
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	expense := &model.Expense{
		ID:           uuid.NewString(),
		UserID:       userID,
		Description:  req.Description,
		Amount:       req.Amount,
		Category:     req.Category,
		CategorySlug: slug.Make(req.Category),
		Date:         date,
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, common.Errorf("failed to create expense: %w", err)
	}
	return expense, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, req ListExpensesRequest) (*ExpenseListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	filter := repository.ExpenseFilter{
		SearchTerm: req.SearchTerm,
		From:       req.From,
		To:         req.To,
		Limit:      req.PageSize,
		Offset:     (req.Page - 1) * req.PageSize,
	}
	if req.Category != "" {
		filter.CategorySlug = slug.Make(req.Category)
	}

	expenses, total, totalAmount, err := s.expenseRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, common.Errorf("failed to list expenses: %w", err)
	}

	return &ExpenseListResponse{
		Expenses:    expenses,
		Total:       total,
		TotalAmount: totalAmount,
		Page:        req.Page,
		PageSize:    req.PageSize,
	}, nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, userID, expenseID string) (*model.Expense, error) {
	return s.findOwned(ctx, userID, expenseID)
}

func (s *ExpenseService) UpdateExpense(ctx context.Context, userID, expenseID string, req UpdateExpenseRequest) (*model.Expense, error) {
	expense, err := s.findOwned(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, common.Errorf("amount must be positive: %w", common.ErrValidation)
		}
		expense.Amount = *req.Amount
	}
	if req.Category != nil {
		if *req.Category == "" {
			return nil, common.Errorf("category cannot be empty: %w", common.ErrValidation)
		}
		expense.Category = *req.Category
		expense.CategorySlug = slug.Make(*req.Category)
	}
	if req.Date != nil {
		expense.Date = *req.Date
	}

	if err := s.expenseRepo.Update(ctx, expense); err != nil {
		return nil, common.Errorf("failed to update expense: %w", err)
	}
	return expense, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, expenseID string) error {
	if _, err := s.findOwned(ctx, userID, expenseID); err != nil {
		return err
	}
	if err := s.expenseRepo.Delete(ctx, expenseID); err != nil {
		return common.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

func (s *ExpenseService) GetExpensesByCategory(ctx context.Context, userID, category string) ([]model.Expense, error) {
	expenses, err := s.expenseRepo.FindByCategory(ctx, userID, slug.Make(category))
	if err != nil {
		return nil, common.Errorf("failed to fetch expenses by category: %w", err)
	}
	return expenses, nil
}

// UpdateExpensesByCategory applies a partial update to every expense in the
// category. The repository performs it as a single statement, so the whole
// category changes atomically.
func (s *ExpenseService) UpdateExpensesByCategory(ctx context.Context, userID, category string, req UpdateExpenseRequest) ([]model.Expense, error) {
	if req.Description == nil && req.Amount == nil && req.Category == nil && req.Date == nil {
		return nil, common.Errorf("no fields to update: %w", common.ErrBadRequest)
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return nil, common.Errorf("amount must be positive: %w", common.ErrValidation)
	}
	if req.Category != nil && *req.Category == "" {
		return nil, common.Errorf("category cannot be empty: %w", common.ErrValidation)
	}

	categorySlug := slug.Make(category)
	changes := repository.ExpenseChanges{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	}
	if req.Category != nil {
		changes.Category = req.Category
		newSlug := slug.Make(*req.Category)
		changes.CategorySlug = &newSlug
	}

	expenses, err := s.expenseRepo.UpdateByCategory(ctx, userID, categorySlug, changes)
	if err != nil {
		return nil, common.Errorf("failed to update expenses by category: %w", err)
	}
	if len(expenses) == 0 {
		return nil, common.Errorf("no expenses found in category %q: %w", category, common.ErrNotFound)
	}
	return expenses, nil
}

func (s *ExpenseService) DeleteExpensesByCategory(ctx context.Context, userID, category string) (int64, error) {
	affected, err := s.expenseRepo.DeleteByCategory(ctx, userID, slug.Make(category))
	if err != nil {
		return 0, common.Errorf("failed to delete expenses by category: %w", err)
	}
	if affected == 0 {
		return 0, common.Errorf("no expenses found in category %q: %w", category, common.ErrNotFound)
	}
	return affected, nil
}

func (s *ExpenseService) Summarize(ctx context.Context, userID string, from, to *time.Time) (*SummaryResponse, error) {
	totals, grandTotal, err := s.expenseRepo.SummarizeByUser(ctx, userID, from, to)
	if err != nil {
		return nil, common.Errorf("failed to summarize expenses: %w", err)
	}
	return &SummaryResponse{Categories: totals, Total: grandTotal}, nil
}

// findOwned loads an expense and enforces ownership: unknown ids are 404,
// someone else's expense is 403.
func (s *ExpenseService) findOwned(ctx context.Context, userID, expenseID string) (*model.Expense, error) {
	expense, err := s.expenseRepo.FindByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.UserID != userID {
		return nil, common.Errorf("expense belongs to another user: %w", common.ErrForbidden)
	}
	return expense, nil
}
