package category

// DefaultNames returns the starter category set created by seeding. It always
// includes the names the import and income rules depend on.
func DefaultNames() []string {
	return []string{
		UncategorizedName,
		IncomeName,
		"Groceries",
		"Rent",
		"Utilities",
		"Dining",
		"Transport",
		"Subscriptions",
		"Health",
		"Entertainment",
	}
}
