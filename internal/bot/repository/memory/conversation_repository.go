package memory

import (
	"context"
	"sync"

	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

// ConversationRepository хранит диалоги в памяти процесса. Состояние теряется при перезапуске.
type ConversationRepository struct {
	conversations map[int64]*models.Conversation
	mu            sync.RWMutex
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		conversations: make(map[int64]*models.Conversation),
	}
}

func (r *ConversationRepository) Get(_ context.Context, chatID int64) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.conversations[chatID]
	if !exists {
		return models.NewConversation(chatID), nil
	}

	return &models.Conversation{
		ChatID: stored.ChatID,
		Step:   stored.Step,
		Fields: stored.Snapshot(),
	}, nil
}

func (r *ConversationRepository) Save(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conversations[conv.ChatID] = &models.Conversation{
		ChatID: conv.ChatID,
		Step:   conv.Step,
		Fields: conv.Snapshot(),
	}

	return nil
}

func (r *ConversationRepository) Reset(_ context.Context, chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conversations, chatID)

	return nil
}
