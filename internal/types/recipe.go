package types

import "time"

// Recipe is the in-memory representation shared by the session core, the
// persistence adapter and the API. A recipe is either a preview (IsFull
// false, no ingredients or instructions) produced by list/plan generation,
// or a full recipe (IsFull true) after detail expansion.
type Recipe struct {
	ID           string    `json:"id"`
	ChatID       string    `json:"chat_id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	MealType     string    `json:"mealType"`
	PrepTime     string    `json:"prepTime"`
	Servings     string    `json:"servings"`
	Difficulty   string    `json:"difficulty"`
	Cuisine      string    `json:"cuisine"`
	Ingredients  []string  `json:"ingredients,omitempty"`
	Instructions []string  `json:"instructions,omitempty"`
	TimerMinutes []int     `json:"timerMinutes,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	IsFull       bool      `json:"isFull"`
	Day          string    `json:"day,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// Chat groups the recipes of one generation session. Guest chats carry a
// locally minted guest_-prefixed identifier and are never persisted
// server-side.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
