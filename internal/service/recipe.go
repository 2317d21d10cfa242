package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cuistot-app/backend/internal/models"
	"github.com/cuistot-app/backend/internal/types"
)

var ErrNoIdentity = errors.New("operation requires an authenticated user id")

// RecipeStore maps in-memory recipes to and from their stored rows.
// Durability is best-effort by contract: the session layer logs persistence
// errors and keeps the in-memory record addressable under its
// client-generated id when an insert fails.
type RecipeStore struct {
	db *gorm.DB
}

// NewRecipeStore creates a new RecipeStore instance
func NewRecipeStore(db *gorm.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// SaveRecipe inserts a recipe row and returns the store-assigned id.
func (s *RecipeStore) SaveRecipe(ctx context.Context, userID string, recipe types.Recipe) (string, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", ErrNoIdentity
	}
	cid, err := uuid.Parse(recipe.ChatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", recipe.ChatID, err)
	}

	row := toRow(recipe)
	row.ID = uuid.Nil
	row.UserID = uid
	row.ChatID = cid

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return row.ID.String(), nil
}

// UpdateRecipe updates a stored recipe by id. It is a no-op when the recipe
// has no id or the id is not store-assigned (guest records keep client ids
// that never correspond to a row).
func (s *RecipeStore) UpdateRecipe(ctx context.Context, userID string, recipe types.Recipe) error {
	if recipe.ID == "" || userID == "" {
		return nil
	}
	rid, err := uuid.Parse(recipe.ID)
	if err != nil {
		return nil
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNoIdentity
	}

	updates := map[string]any{
		"title":         recipe.Title,
		"description":   recipe.Description,
		"ingredients":   models.JSONBStringArray(recipe.Ingredients),
		"instructions":  models.JSONBStringArray(recipe.Instructions),
		"timer_minutes": models.JSONBIntArray(recipe.TimerMinutes),
		"image_url":     recipe.ImageURL,
		"meal_type":     recipe.MealType,
		"day":           recipe.Day,
		"is_full":       recipe.IsFull,
	}

	return s.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Where("id = ? AND user_id = ?", rid, uid).
		Updates(updates).Error
}

// ListChatRecipes returns a chat's recipes ordered by day then creation
// time, the order the plan view expects.
func (s *RecipeStore) ListChatRecipes(ctx context.Context, userID, chatID string) ([]types.Recipe, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNoIdentity
	}
	cid, err := uuid.Parse(chatID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	var rows []models.Recipe
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND chat_id = ?", uid, cid).
		Order("day ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	recipes := make([]types.Recipe, len(rows))
	for i, row := range rows {
		recipes[i] = fromRow(row)
	}
	return recipes, nil
}

func toRow(r types.Recipe) models.Recipe {
	return models.Recipe{
		Title:        r.Title,
		Description:  r.Description,
		Ingredients:  models.JSONBStringArray(r.Ingredients),
		Instructions: models.JSONBStringArray(r.Instructions),
		TimerMinutes: models.JSONBIntArray(r.TimerMinutes),
		ImageURL:     r.ImageURL,
		PrepTime:     r.PrepTime,
		Servings:     r.Servings,
		Difficulty:   r.Difficulty,
		Cuisine:      r.Cuisine,
		MealType:     r.MealType,
		Day:          r.Day,
		IsFull:       r.IsFull,
	}
}

func fromRow(row models.Recipe) types.Recipe {
	return types.Recipe{
		ID:           row.ID.String(),
		ChatID:       row.ChatID.String(),
		Title:        row.Title,
		Description:  row.Description,
		MealType:     row.MealType,
		PrepTime:     row.PrepTime,
		Servings:     row.Servings,
		Difficulty:   row.Difficulty,
		Cuisine:      row.Cuisine,
		Ingredients:  row.Ingredients,
		Instructions: row.Instructions,
		TimerMinutes: row.TimerMinutes,
		ImageURL:     row.ImageURL,
		IsFull:       row.IsFull,
		Day:          row.Day,
		CreatedAt:    row.CreatedAt,
	}
}
