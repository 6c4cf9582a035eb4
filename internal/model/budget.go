package model

import (
	"time"

	"github.com/budgie-app/budgie/internal/period"
)

// Budget caps spending for one category in one month.
// Uniqueness of (CategoryID, Period) is not enforced by the client.
type Budget struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id,omitempty"`
	CategoryID  string        `json:"category_id"`
	AmountCents int64         `json:"amount_cents"`
	Period      period.Period `json:"period"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// BudgetUtilization is a budget plus the server-computed spend for its
// category and period.
type BudgetUtilization struct {
	Budget
	UtilizationCents int64 `json:"utilization_cents"`
}

// RemainingCents is the budget amount left; negative when overspent.
func (b BudgetUtilization) RemainingCents() int64 {
	return b.AmountCents - b.UtilizationCents
}
