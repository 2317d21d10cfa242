package session

// Catalog is the fixed ingredient catalog with default quantity units.
// Selections are validated against it; secret ingredients are free text.
var Catalog = map[string]string{
	// Meat & proteins
	"Chicken": "g",
	"Beef":    "g",
	"Fish":    "g",
	"Eggs":    "pcs",
	"Tofu":    "g",
	"Lamb":    "g",
	// Vegetables
	"Spinach":  "g",
	"Tomato":   "pcs",
	"Onion":    "pcs",
	"Garlic":   "cloves",
	"Broccoli": "g",
	"Carrot":   "pcs",
	"Potato":   "pcs",
	// Fruits
	"Lemon":      "pcs",
	"Apple":      "pcs",
	"Banana":     "pcs",
	"Orange":     "pcs",
	"Strawberry": "g",
	// Pantry
	"Rice":   "g",
	"Pasta":  "g",
	"Flour":  "g",
	"Butter": "g",
	"Cheese": "g",
	"Oil":    "ml",
}

// InCatalog reports whether name is a known catalog ingredient.
func InCatalog(name string) bool {
	_, ok := Catalog[name]
	return ok
}
