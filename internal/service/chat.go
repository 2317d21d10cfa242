package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cuistot-app/backend/internal/models"
	"github.com/cuistot-app/backend/internal/types"
)

// ChatStore persists chat sessions for authenticated users.
type ChatStore struct {
	db *gorm.DB
}

// NewChatStore creates a new ChatStore instance
func NewChatStore(db *gorm.DB) *ChatStore {
	return &ChatStore{db: db}
}

// CreateChat inserts a chat and returns it with its store-assigned id.
func (s *ChatStore) CreateChat(ctx context.Context, userID, title string) (types.Chat, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return types.Chat{}, ErrNoIdentity
	}

	row := models.Chat{
		UserID: uid,
		Title:  title,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return types.Chat{}, err
	}

	return types.Chat{
		ID:        row.ID.String(),
		Title:     row.Title,
		CreatedAt: row.CreatedAt,
	}, nil
}

// ListChats returns the user's chats, newest first.
func (s *ChatStore) ListChats(ctx context.Context, userID string) ([]types.Chat, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrNoIdentity
	}

	var rows []models.Chat
	err = s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	chats := make([]types.Chat, len(rows))
	for i, row := range rows {
		chats[i] = types.Chat{
			ID:        row.ID.String(),
			Title:     row.Title,
			CreatedAt: row.CreatedAt,
		}
	}
	return chats, nil
}
