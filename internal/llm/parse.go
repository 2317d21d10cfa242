package llm

import (
	"encoding/json"
	"strconv"

	"github.com/cuistot-app/backend/internal/types"
)

// RecipeDetails is the payload of a detail expansion.
type RecipeDetails struct {
	Ingredients  []string
	Instructions []string
	TimerMinutes []int
}

// defaultTimers pads a detail response that omitted or mangled the timer
// array.
var defaultTimers = []int{0, 5, 0}

// ParseIdeaList extracts and normalizes an idea-list response into preview
// recipes. Every field of the model output is treated as untrusted and
// coerced to its declared type; missing fields become zero values.
func ParseIdeaList(raw string) ([]types.Recipe, error) {
	items, err := parseRecipeArray(raw)
	if err != nil {
		return nil, err
	}

	recipes := make([]types.Recipe, 0, len(items))
	for _, item := range items {
		recipes = append(recipes, coerceRecipe(item))
	}
	return recipes, nil
}

// ParsePlan extracts and normalizes a meal-plan response. Identical to
// ParseIdeaList except that plan entries carry a day label.
func ParsePlan(raw string) ([]types.Recipe, error) {
	return ParseIdeaList(raw)
}

// ParseDetails extracts and normalizes a detail-expansion response.
func ParseDetails(raw string) (*RecipeDetails, error) {
	data, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, &ExtractionError{Reason: "detail response is not a JSON object"}
	}

	details := &RecipeDetails{
		Ingredients:  asStringSlice(obj["ingredients"]),
		Instructions: asStringSlice(obj["instructions"]),
		TimerMinutes: asIntSlice(obj["timerMinutes"]),
	}
	if details.TimerMinutes == nil {
		details.TimerMinutes = append([]int(nil), defaultTimers...)
	}
	return details, nil
}

// parseRecipeArray accepts either a bare JSON array or an object wrapping
// one under a "recipes" key, which some models insist on producing.
func parseRecipeArray(raw string) ([]map[string]any, error) {
	data, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapper struct {
		Recipes []map[string]any `json:"recipes"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Recipes != nil {
		return wrapper.Recipes, nil
	}

	return nil, &ExtractionError{Reason: "response is not a JSON array of recipes"}
}

// coerceRecipe maps untrusted model output onto a preview recipe. The
// model's "id" is dropped: models repeat ids across generations ("1", "2",
// ...), so the session mints its own.
func coerceRecipe(item map[string]any) types.Recipe {
	return types.Recipe{
		Title:       asString(item["title"]),
		Description: asString(item["description"]),
		MealType:    asString(item["mealType"]),
		PrepTime:    asString(item["prepTime"]),
		Servings:    asString(item["servings"]),
		Difficulty:  asString(item["difficulty"]),
		Cuisine:     asString(item["cuisine"]),
		Day:         asString(item["day"]),
		IsFull:      false,
	}
}

// asString coerces a JSON value to a string. Numbers are rendered rather
// than rejected because models frequently return "servings": 4.
func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func asStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := asString(item); s != "" {
			out = append(out, s)
		} else if m, ok := item.(map[string]any); ok {
			// Some models return [{"step": "..."}] style entries.
			for _, inner := range m {
				if s := asString(inner); s != "" {
					out = append(out, s)
					break
				}
			}
		}
	}
	return out
}

func asIntSlice(v any) []int {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, item := range arr {
		switch val := item.(type) {
		case float64:
			out = append(out, int(val))
		case string:
			if n, err := strconv.Atoi(val); err == nil {
				out = append(out, n)
			} else {
				out = append(out, 0)
			}
		default:
			out = append(out, 0)
		}
	}
	return out
}
