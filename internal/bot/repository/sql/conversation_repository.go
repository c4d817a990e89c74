package sql

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-channel-poster/internal/database"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
	"github.com/central-university-dev/go-channel-poster/pkg/txs"
)

type ConversationRepository struct {
	db *database.PostgresDB
}

func NewConversationRepository(db *database.PostgresDB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Get(ctx context.Context, chatID int64) (*models.Conversation, error) {
	var (
		step   int
		fields []byte
	)

	query := "SELECT step, fields FROM conversations WHERE chat_id = $1"
	if txs.InTx(ctx) {
		// Строка блокируется до конца транзакции чтения-изменения-сохранения
		query += " FOR UPDATE"
	}

	err := txs.GetQuerier(ctx, r.db.Pool).QueryRow(ctx, query, chatID).Scan(&step, &fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Новый чат начинает с ожидания фото
			return models.NewConversation(chatID), nil
		}

		return nil, &customerrors.ErrStorage{Operation: customerrors.OpGetConversation, Cause: err}
	}

	conv := models.NewConversation(chatID)
	conv.Step = models.Step(step)

	if err := json.Unmarshal(fields, &conv.Fields); err != nil {
		return nil, &customerrors.ErrStorage{Operation: customerrors.OpGetConversation, Cause: err}
	}

	if conv.Fields == nil {
		conv.Fields = make(map[string]string)
	}

	return conv, nil
}

func (r *ConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	fields, err := json.Marshal(conv.Fields)
	if err != nil {
		return &customerrors.ErrStorage{Operation: customerrors.OpSaveConversation, Cause: err}
	}

	_, err = txs.GetQuerier(ctx, r.db.Pool).Exec(ctx, `
		INSERT INTO conversations (chat_id, step, fields, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chat_id) DO UPDATE SET
			step = EXCLUDED.step,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`, conv.ChatID, int(conv.Step), fields)
	if err != nil {
		return &customerrors.ErrStorage{Operation: customerrors.OpSaveConversation, Cause: err}
	}

	return nil
}

func (r *ConversationRepository) Reset(ctx context.Context, chatID int64) error {
	_, err := txs.GetQuerier(ctx, r.db.Pool).Exec(ctx, "DELETE FROM conversations WHERE chat_id = $1", chatID)
	if err != nil {
		return &customerrors.ErrStorage{Operation: customerrors.OpResetConversation, Cause: err}
	}

	return nil
}
