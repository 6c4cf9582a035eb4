package model

import "time"

// TransactionType is the direction of money for a transaction.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is exactly "income" or "expense".
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is a single logged money movement.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	Vendor       string          `json:"vendor"`
	Description  string          `json:"description"`
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	AmountCents  int64           `json:"amount_cents"` // minor units, never negative
	Type         TransactionType `json:"type"`
	Date         time.Time       `json:"date"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}
