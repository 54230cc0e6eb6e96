package domain

// CategoryAll is the pseudo-category meaning "no category restriction".
const CategoryAll = "All"

// Categories are the fixed listing categories, in display order.
var Categories = []string{
	"Vehicles",
	"Property Rentals",
	"Apparel",
	"Classifieds",
	"Electronics",
	"Entertainment",
	"Family",
	"Free Stuff",
	"Garden & Outdoor",
	"Hobbies",
	"Home Goods",
	"Home Improvement",
	"Home Sales",
	"Musical Instruments",
	"Office Supplies",
	"Pet Supplies",
	"Sporting Goods",
	"Toys & Games",
	"Buy and sell groups",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsCategory reports whether name is one of the fixed categories.
func IsCategory(name string) bool {
	_, ok := categorySet[name]
	return ok
}
