package model

// Resource names a server collection held in the client cache.
type Resource string

const (
	ResourceTransactions      Resource = "transactions"
	ResourceCategories        Resource = "categories"
	ResourceBudgets           Resource = "budgets"
	ResourceBudgetUtilization Resource = "budget_utilization"
)

// User is the authenticated account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Category groups transactions and scopes budgets.
type Category struct {
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name"`
}
