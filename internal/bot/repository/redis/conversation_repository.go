package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

type storedConversation struct {
	Step   models.Step       `json:"step"`
	Fields map[string]string `json:"fields"`
}

// ConversationRepository хранит диалог одним JSON-значением под ключом conversation:<chat_id>.
// ttl = 0 означает хранение без срока жизни.
type ConversationRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewConversationRepository(redisURL, password string, db int, ttl time.Duration,
	logger *slog.Logger) (*ConversationRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisURL,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ошибка при подключении к Redis: %w", err)
	}

	logger.Info("Соединение с Redis успешно установлено")

	return &ConversationRepository{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func conversationKey(chatID int64) string {
	return fmt.Sprintf("conversation:%d", chatID)
}

func (r *ConversationRepository) Get(ctx context.Context, chatID int64) (*models.Conversation, error) {
	data, err := r.client.Get(ctx, conversationKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Debug("Диалог не найден, начинаем новый", "chat_id", chatID)

			return models.NewConversation(chatID), nil
		}

		r.logger.Error("Ошибка при получении диалога из Redis", "error", err, "chat_id", chatID)

		return nil, &customerrors.ErrStorage{Operation: customerrors.OpGetConversation, Cause: err}
	}

	var stored storedConversation
	if err := json.Unmarshal(data, &stored); err != nil {
		r.logger.Error("Ошибка при десериализации диалога из Redis", "error", err, "chat_id", chatID)

		return nil, &customerrors.ErrStorage{Operation: customerrors.OpGetConversation, Cause: err}
	}

	conv := models.NewConversation(chatID)
	conv.Step = stored.Step

	for k, v := range stored.Fields {
		conv.Fields[k] = v
	}

	return conv, nil
}

func (r *ConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	data, err := json.Marshal(storedConversation{Step: conv.Step, Fields: conv.Fields})
	if err != nil {
		return &customerrors.ErrStorage{Operation: customerrors.OpSaveConversation, Cause: err}
	}

	if err := r.client.Set(ctx, conversationKey(conv.ChatID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Ошибка при сохранении диалога в Redis", "error", err, "chat_id", conv.ChatID)

		return &customerrors.ErrStorage{Operation: customerrors.OpSaveConversation, Cause: err}
	}

	return nil
}

func (r *ConversationRepository) Reset(ctx context.Context, chatID int64) error {
	if err := r.client.Del(ctx, conversationKey(chatID)).Err(); err != nil {
		return &customerrors.ErrStorage{Operation: customerrors.OpResetConversation, Cause: err}
	}

	return nil
}

func (r *ConversationRepository) Close() error {
	return r.client.Close()
}
