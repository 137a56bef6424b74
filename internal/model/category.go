package model

// Category is a transaction category. Built-in categories are identified by
// their canonical name; any other name is a custom category.
type Category string

// Built-in categories.
const (
	CategoryFood              Category = "Food"
	CategoryTransportation    Category = "Transportation"
	CategoryShopping          Category = "Shopping"
	CategoryEntertainment     Category = "Entertainment"
	CategoryUtilities         Category = "Utilities"
	CategoryHealthcare        Category = "Healthcare"
	CategoryEducation         Category = "Education"
	CategoryRent              Category = "Rent"
	CategorySalary            Category = "Salary"
	CategoryInvestment        Category = "Investment"
	CategoryInterest          Category = "Interest"
	CategoryEMIPayment        Category = "EMI Payment"
	CategoryCreditCardPayment Category = "Credit Card Payment"
	CategoryOther             Category = "Other"
)

// BuiltinCategories is the fixed, ordered set of built-in categories.
var BuiltinCategories = []Category{
	CategoryFood,
	CategoryTransportation,
	CategoryShopping,
	CategoryEntertainment,
	CategoryUtilities,
	CategoryHealthcare,
	CategoryEducation,
	CategoryRent,
	CategorySalary,
	CategoryInvestment,
	CategoryInterest,
	CategoryEMIPayment,
	CategoryCreditCardPayment,
	CategoryOther,
}

// ParseCategory maps a name to its category. Exact matches of a built-in name
// resolve to that built-in; everything else is custom.
func ParseCategory(name string) Category {
	for _, c := range BuiltinCategories {
		if string(c) == name {
			return c
		}
	}
	return Category(name)
}

// Name returns the canonical name, which is also the serialization key.
func (c Category) Name() string {
	return string(c)
}

// IsBuiltin reports whether c is one of the built-in categories.
func (c Category) IsBuiltin() bool {
	for _, b := range BuiltinCategories {
		if c == b {
			return true
		}
	}
	return false
}

// AllCategoryNames returns built-in names in their fixed order followed by the
// custom names in insertion order. Duplicates are kept.
func AllCategoryNames(custom []string) []string {
	names := make([]string, 0, len(BuiltinCategories)+len(custom))
	for _, c := range BuiltinCategories {
		names = append(names, c.Name())
	}
	return append(names, custom...)
}
