package types

// IngredientSelection is one catalog ingredient with its chosen quantity
// (amount plus unit suffix, e.g. "200g"). Unique by name within a selection.
type IngredientSelection struct {
	Name string `json:"name"`
	Qty  string `json:"qty"`
}

// Preferences are the user's cooking preferences. All fields are independent
// and defaulted.
type Preferences struct {
	Budget     string `json:"budget"`
	FamilySize string `json:"familySize"`
	Cuisine    string `json:"cuisine"`
	DishType   string `json:"dishType"`
}

// DefaultPreferences returns the initial preference values.
func DefaultPreferences() Preferences {
	return Preferences{
		Budget:     "Moderate",
		FamilySize: "2",
		Cuisine:    "French",
		DishType:   "Main",
	}
}

// KitchenSnapshot is the serializable unit of kitchen persistence: the
// ingredient selection, secret ingredients, preferences and the active meal
// plan. It is continuously overwritten, never deleted, and is the sole
// mechanism for restoring a session across reloads.
type KitchenSnapshot struct {
	Ingredients       []IngredientSelection `json:"ingredients"`
	SecretIngredients []string              `json:"secretIngredients"`
	Budget            string                `json:"budget"`
	FamilySize        string                `json:"familySize"`
	Cuisine           string                `json:"cuisine"`
	DishType          string                `json:"dishType"`
	MealPlan          []Recipe              `json:"mealPlan,omitempty"`
}
