package domain

// ProductFamily identifies one of the two parallel commerce flows.
// Both share the same protocol but live in separate tables.
type ProductFamily string

const (
	FamilyCourse  ProductFamily = "course"
	FamilyPremium ProductFamily = "premium"
)

// Families lists every family in webhook dispatch order.
var Families = []ProductFamily{FamilyCourse, FamilyPremium}

// Valid reports whether f is a known family.
func (f ProductFamily) Valid() bool {
	return f == FamilyCourse || f == FamilyPremium
}

// ParseFamily converts a path or query value into a ProductFamily.
func ParseFamily(s string) (ProductFamily, bool) {
	f := ProductFamily(s)
	return f, f.Valid()
}
