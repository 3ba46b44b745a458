package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"expense_tracker/internal/common"
	"expense_tracker/internal/domain/model"
	"expense_tracker/internal/domain/repository"
)

// In-memory repository fakes used by the service tests.

type fakeUserRepo struct {
	users map[string]*model.User // keyed by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, common.ErrNotFound
}

type fakeTokenRepo struct {
	revoked map[string]time.Duration // jti -> ttl it was revoked with
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{revoked: map[string]time.Duration{}}
}

func (f *fakeTokenRepo) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	f.revoked[jti] = ttl
	return nil
}

func (f *fakeTokenRepo) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := f.revoked[jti]
	return ok, nil
}

type fakeExpenseRepo struct {
	expenses map[string]*model.Expense
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{expenses: map[string]*model.Expense{}}
}

func (f *fakeExpenseRepo) Create(_ context.Context, expense *model.Expense) error {
	now := time.Now()
	expense.CreatedAt = now
	expense.UpdatedAt = now
	stored := *expense
	f.expenses[expense.ID] = &stored
	return nil
}

func (f *fakeExpenseRepo) FindByID(_ context.Context, id string) (*model.Expense, error) {
	if e, ok := f.expenses[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeExpenseRepo) Update(_ context.Context, expense *model.Expense) error {
	if _, ok := f.expenses[expense.ID]; !ok {
		return common.ErrNotFound
	}
	expense.UpdatedAt = time.Now()
	stored := *expense
	f.expenses[expense.ID] = &stored
	return nil
}

func (f *fakeExpenseRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.expenses[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeExpenseRepo) matches(e *model.Expense, userID string, filter repository.ExpenseFilter) bool {
	if e.UserID != userID {
		return false
	}
	if filter.CategorySlug != "" && e.CategorySlug != filter.CategorySlug {
		return false
	}
	if filter.SearchTerm != "" && !strings.Contains(strings.ToLower(e.Description), strings.ToLower(filter.SearchTerm)) {
		return false
	}
	if filter.From != nil && e.Date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && e.Date.After(*filter.To) {
		return false
	}
	return true
}

func (f *fakeExpenseRepo) ListByUser(_ context.Context, userID string, filter repository.ExpenseFilter) ([]model.Expense, int, float64, error) {
	matched := []model.Expense{}
	var totalAmount float64
	for _, e := range f.expenses {
		if f.matches(e, userID, filter) {
			matched = append(matched, *e)
			totalAmount += e.Amount
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })

	total := len(matched)
	if filter.Offset >= len(matched) {
		return []model.Expense{}, total, totalAmount, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, totalAmount, nil
}

func (f *fakeExpenseRepo) FindByCategory(_ context.Context, userID, categorySlug string) ([]model.Expense, error) {
	result := []model.Expense{}
	for _, e := range f.expenses {
		if e.UserID == userID && e.CategorySlug == categorySlug {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

func (f *fakeExpenseRepo) UpdateByCategory(_ context.Context, userID, categorySlug string, changes repository.ExpenseChanges) ([]model.Expense, error) {
	updated := []model.Expense{}
	for _, e := range f.expenses {
		if e.UserID != userID || e.CategorySlug != categorySlug {
			continue
		}
		if changes.Description != nil {
			e.Description = *changes.Description
		}
		if changes.Amount != nil {
			e.Amount = *changes.Amount
		}
		if changes.Category != nil {
			e.Category = *changes.Category
			e.CategorySlug = *changes.CategorySlug
		}
		if changes.Date != nil {
			e.Date = *changes.Date
		}
		e.UpdatedAt = time.Now()
		updated = append(updated, *e)
	}
	sort.Slice(updated, func(i, j int) bool { return updated[i].Date.After(updated[j].Date) })
	return updated, nil
}

func (f *fakeExpenseRepo) DeleteByCategory(_ context.Context, userID, categorySlug string) (int64, error) {
	var affected int64
	for id, e := range f.expenses {
		if e.UserID == userID && e.CategorySlug == categorySlug {
			delete(f.expenses, id)
			affected++
		}
	}
	return affected, nil
}

func (f *fakeExpenseRepo) SummarizeByUser(_ context.Context, userID string, from, to *time.Time) ([]model.CategoryTotal, float64, error) {
	byCategory := map[string]*model.CategoryTotal{}
	var grandTotal float64
	for _, e := range f.expenses {
		if !f.matches(e, userID, repository.ExpenseFilter{From: from, To: to}) {
			continue
		}
		t, ok := byCategory[e.Category]
		if !ok {
			t = &model.CategoryTotal{Category: e.Category}
			byCategory[e.Category] = t
		}
		t.Count++
		t.Total += e.Amount
		grandTotal += e.Amount
	}

	totals := []model.CategoryTotal{}
	for _, t := range byCategory {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Total > totals[j].Total })
	return totals, grandTotal, nil
}
