package model

import (
	"time"
)

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	// CategorySlug is the normalized form used for category matching, so
	// "Food & Drink" and "food and drink" address the same expenses.
	CategorySlug string    `json:"category_slug"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryTotal is one row of the per-category spending summary.
type CategoryTotal struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}
