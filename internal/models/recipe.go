package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe is the stored form of a generated recipe. Column names are the
// wire contract with older clients (meal_type, prep_time, timer_minutes,
// image_url, is_full), so they stay snake_case even where GORM would infer
// the same.
type Recipe struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
	UserID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	ChatID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"chat_id"`
	Title        string           `gorm:"size:255;not null" json:"title"`
	Description  string           `gorm:"type:text" json:"description"`
	Ingredients  JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Instructions JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"instructions"`
	TimerMinutes JSONBIntArray    `gorm:"type:jsonb;not null;default:'[]';column:timer_minutes" json:"timer_minutes"`
	ImageURL     string           `gorm:"size:1024;column:image_url" json:"image_url"`
	PrepTime     string           `gorm:"size:50;column:prep_time" json:"prep_time"`
	Servings     string           `gorm:"size:50" json:"servings"`
	Difficulty   string           `gorm:"size:50" json:"difficulty"`
	Cuisine      string           `gorm:"size:50" json:"cuisine"`
	MealType     string           `gorm:"size:50;column:meal_type" json:"meal_type"`
	Day          string           `gorm:"size:50" json:"day"`
	IsFull       bool             `gorm:"not null;default:false;column:is_full" json:"is_full"`
}

// BeforeCreate assigns the store id. Done in a hook rather than a column
// default so inserts behave the same on Postgres and the sqlite test driver.
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
