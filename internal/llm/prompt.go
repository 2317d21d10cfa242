package llm

import (
	"fmt"
	"strings"

	"github.com/cuistot-app/backend/internal/types"
)

// Locale selects the language the model is asked to answer in.
type Locale string

const (
	LocaleEN Locale = "EN"
	LocaleFR Locale = "FR"
)

// promptLanguage renders the locale the way the model understands it.
func (l Locale) promptLanguage() string {
	if l == LocaleFR {
		return "French (Français)"
	}
	return "English"
}

// IngredientString renders the selection as "name (qty)" entries joined
// with the secret ingredients. This exact string also titles new chats.
func IngredientString(selection []types.IngredientSelection, secret []string) string {
	parts := make([]string, 0, len(selection)+len(secret))
	for _, ing := range selection {
		parts = append(parts, fmt.Sprintf("%s (%s)", ing.Name, ing.Qty))
	}
	parts = append(parts, secret...)
	return strings.Join(parts, ", ")
}

// BuildListPrompt composes the idea-list request: six recipe previews
// constrained to a fixed JSON array schema.
func BuildListPrompt(ingredients string, loc Locale, prefs types.Preferences) string {
	return fmt.Sprintf(`Task: Propose 6 recipe ideas using these ingredients: %s.
Context: Budget: %s, Family: %s, Cuisine: %s, Dish Type: %s.
Language: %s.
Output: Return ONLY a valid JSON array. DO NOT include any introductory text, markdown formatting (like `+"```json"+`), or concluding notes.
Each object MUST follow this schema exactly:
[{
  "id": "unique_id_string",
  "title": "Recipe Name",
  "description": "Short catchy summary",
  "mealType": "Entrée or Main or Dessert",
  "prepTime": "XX mins",
  "servings": "%s",
  "difficulty": "Easy/Moderate/Hard",
  "cuisine": "%s",
  "isFull": false
}]`,
		ingredients,
		prefs.Budget, prefs.FamilySize, prefs.Cuisine, prefs.DishType,
		loc.promptLanguage(),
		prefs.FamilySize,
		prefs.Cuisine,
	)
}

// BuildDetailPrompt composes the detail-expansion request for a preview
// recipe: full ingredients, step instructions and per-step timers.
func BuildDetailPrompt(title, description string, loc Locale) string {
	return fmt.Sprintf(`Task: Provided the recipe idea %q (%s), generate the full ingredients and step-by-step instructions.
Language: %s.
Output: Return ONLY a valid JSON object. DO NOT include any markdown code blocks or text.
Schema:
{
  "ingredients": ["Detail quantity e.g. 500g chicken breasts", "..."],
  "instructions": ["Short step description", "..."],
  "timerMinutes": [0, 5, 0]
}`,
		title, description, loc.promptLanguage(),
	)
}

// BuildPlanPrompt composes the meal-plan request: breakfast, lunch and
// dinner for each day, days*3 entries in total. days is 3 or 7.
func BuildPlanPrompt(days int, ingredients string, loc Locale, prefs types.Preferences) string {
	durationText := fmt.Sprintf("%d days", days)
	if days == 7 {
		durationText = "full week (7 days)"
	}

	return fmt.Sprintf(`Task: Create a meal plan for %s using these ingredients: %s.
Context: Budget: %s, Family: %s, Cuisine: %s.
Language: %s.
Output: Return ONLY a valid JSON array of recipe objects.
Each object MUST follow this schema exactly:
[{
  "day": "Day 1",
  "title": "Recipe Name",
  "description": "Short summary",
  "mealType": "Breakfast/Lunch/Dinner",
  "prepTime": "XX mins",
  "servings": "%s",
  "difficulty": "Easy/Moderate/Hard",
  "cuisine": "%s",
  "isFull": false
}]
Provide 3 recipes (Breakfast, Lunch, Dinner) for each of the %d days. Total %d recipes.`,
		durationText, ingredients,
		prefs.Budget, prefs.FamilySize, prefs.Cuisine,
		loc.promptLanguage(),
		prefs.FamilySize,
		prefs.Cuisine,
		days, days*3,
	)
}
