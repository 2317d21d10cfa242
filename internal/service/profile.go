package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cuistot-app/backend/internal/models"
	"github.com/cuistot-app/backend/internal/types"
)

// ProfileStore persists the kitchen snapshot blob per user.
type ProfileStore struct {
	db *gorm.DB
}

// NewProfileStore creates a new ProfileStore instance
func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// UpsertKitchenState writes the snapshot keyed by user id, replacing any
// previous value. Last write wins.
func (s *ProfileStore) UpsertKitchenState(ctx context.Context, userID string, snap types.KitchenSnapshot) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return ErrNoIdentity
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	row := models.Profile{
		ID:           uid,
		KitchenState: data,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kitchen_state", "updated_at"}),
		}).
		Create(&row).Error
}

// GetKitchenState loads the user's persisted snapshot. A missing row or a
// snapshot that no longer parses yields nil without error; stale blobs are
// logged and discarded, never surfaced.
func (s *ProfileStore) GetKitchenState(ctx context.Context, userID string) (*types.KitchenSnapshot, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNoIdentity
	}

	var row models.Profile
	if err := s.db.WithContext(ctx).First(&row, "id = ?", uid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	if len(row.KitchenState) == 0 {
		return nil, nil
	}

	var snap types.KitchenSnapshot
	if err := json.Unmarshal(row.KitchenState, &snap); err != nil {
		log.Printf("[ProfileStore] discarding unparseable kitchen state for %s: %v", userID, err)
		return nil, nil
	}
	return &snap, nil
}
