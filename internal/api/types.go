package api

import "github.com/cuistot-app/backend/internal/types"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type IngredientsRequest struct {
	Ingredients []types.IngredientSelection `json:"ingredients"`
}

type SecretIngredientsRequest struct {
	SecretIngredients []string `json:"secretIngredients"`
}

type GenerateRequest struct {
	Lang string `json:"lang"`
}

type PlanRequest struct {
	Days int    `json:"days" binding:"required"`
	Lang string `json:"lang"`
}
