// Package category provides lookup over a user's categories.
package category

import "github.com/budgie-app/budgie/internal/model"

// Well-known category names. Matching is exact and case-sensitive.
const (
	// UncategorizedName is where imported transactions land.
	UncategorizedName = "Uncategorized"
	// IncomeName forces transaction type income.
	IncomeName = "Income"
)

// Index provides in-memory lookup over a category listing. When names
// repeat, the first category in the listing wins.
type Index struct {
	categories []model.Category
	byID       map[string]model.Category
	byName     map[string]model.Category
}

// NewIndex creates an Index from a slice of categories.
func NewIndex(categories []model.Category) *Index {
	byID := make(map[string]model.Category, len(categories))
	byName := make(map[string]model.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
		if _, seen := byName[c.Name]; !seen {
			byName[c.Name] = c
		}
	}
	return &Index{categories: categories, byID: byID, byName: byName}
}

// All returns all categories in listing order.
func (x *Index) All() []model.Category {
	return x.categories
}

// Get returns a category by ID.
func (x *Index) Get(id string) (model.Category, bool) {
	c, ok := x.byID[id]
	return c, ok
}

// Exists reports whether a category ID exists.
func (x *Index) Exists(id string) bool {
	_, ok := x.byID[id]
	return ok
}

// ByName returns the first category with exactly this name.
func (x *Index) ByName(name string) (model.Category, bool) {
	c, ok := x.byName[name]
	return c, ok
}

// Name returns the category name for id, or id itself when unknown.
func (x *Index) Name(id string) string {
	if c, ok := x.byID[id]; ok {
		return c.Name
	}
	return id
}

// IsIncome reports whether id is the category named Income.
func (x *Index) IsIncome(id string) bool {
	c, ok := x.byName[IncomeName]
	return ok && c.ID == id
}

// Missing returns the names not yet present, in the order given.
func (x *Index) Missing(names []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		if _, ok := x.byName[n]; ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
