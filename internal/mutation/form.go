package mutation

import (
	"strings"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/model"
)

// TransactionForm is user input for a transaction. Amount is a decimal
// string such as "12.34"; Date is a date string (see ParseDate).
type TransactionForm struct {
	Vendor      string
	Description string
	CategoryID  string
	Amount      string
	Type        model.TransactionType
	Date        string
}

// Body validates the form and converts it to the wire shape.
func (f TransactionForm) Body() (api.TransactionBody, error) {
	var c checker
	if c.required("vendor", f.Vendor) {
		c.maxLength("vendor", f.Vendor, MaxVendorLength)
	}
	c.maxLength("description", f.Description, MaxDescriptionLength)
	c.required("category", f.CategoryID)
	cents := c.amount("amount", f.Amount)
	c.transactionType("type", f.Type)
	date := c.date("date", f.Date)
	if err := c.err(); err != nil {
		return api.TransactionBody{}, err
	}
	return api.TransactionBody{
		Type:        f.Type,
		Vendor:      f.Vendor,
		Description: f.Description,
		CategoryID:  f.CategoryID,
		Amount:      cents,
		Date:        date,
	}, nil
}

// CategoryForm is user input for a category.
type CategoryForm struct {
	Name string
}

func (f CategoryForm) Body() (api.CategoryBody, error) {
	var c checker
	name := strings.TrimSpace(f.Name)
	if c.required("name", name) {
		c.maxLength("name", name, MaxCategoryNameLength)
	}
	if err := c.err(); err != nil {
		return api.CategoryBody{}, err
	}
	return api.CategoryBody{Name: name}, nil
}

// BudgetForm is user input for a budget. Period is "YYYY-MM".
type BudgetForm struct {
	CategoryID string
	Amount     string
	Period     string
}

func (f BudgetForm) Body() (api.BudgetBody, error) {
	var c checker
	c.required("category", f.CategoryID)
	cents := c.amount("amount", f.Amount)
	p := c.period("period", f.Period)
	if err := c.err(); err != nil {
		return api.BudgetBody{}, err
	}
	return api.BudgetBody{Category: f.CategoryID, Amount: cents, Period: p.Start()}, nil
}
