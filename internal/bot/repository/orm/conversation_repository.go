package orm

import (
	"context"
	"encoding/json"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/central-university-dev/go-channel-poster/internal/database"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
	"github.com/central-university-dev/go-channel-poster/pkg/txs"
)

type ConversationRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewConversationRepository(db *database.PostgresDB) *ConversationRepository {
	return &ConversationRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *ConversationRepository) Get(ctx context.Context, chatID int64) (*models.Conversation, error) {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	builder := r.sq.Select("step", "fields").
		From("conversations").
		Where(sq.Eq{"chat_id": chatID})

	if txs.InTx(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "получение диалога", Cause: err}
	}

	var (
		step   int
		fields []byte
	)

	err = querier.QueryRow(ctx, query, args...).Scan(&step, &fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NewConversation(chatID), nil
		}

		return nil, &customerrors.ErrStorage{
			Operation: customerrors.OpGetConversation,
			Cause:     &customerrors.ErrSQLExecution{Operation: "получение диалога", Cause: err},
		}
	}

	conv := models.NewConversation(chatID)
	conv.Step = models.Step(step)

	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &conv.Fields); err != nil {
			return nil, &customerrors.ErrStorage{Operation: customerrors.OpGetConversation, Cause: err}
		}
	}

	if conv.Fields == nil {
		conv.Fields = make(map[string]string)
	}

	return conv, nil
}

func (r *ConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	fields, err := json.Marshal(conv.Fields)
	if err != nil {
		return &customerrors.ErrStorage{Operation: customerrors.OpSaveConversation, Cause: err}
	}

	query, args, err := r.sq.Insert("conversations").
		Columns("chat_id", "step", "fields", "updated_at").
		Values(conv.ChatID, int(conv.Step), fields, sq.Expr("NOW()")).
		Suffix("ON CONFLICT (chat_id) DO UPDATE SET step = EXCLUDED.step, fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сохранение диалога", Cause: err}
	}

	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return &customerrors.ErrStorage{
			Operation: customerrors.OpSaveConversation,
			Cause:     &customerrors.ErrSQLExecution{Operation: "сохранение диалога", Cause: err},
		}
	}

	return nil
}

func (r *ConversationRepository) Reset(ctx context.Context, chatID int64) error {
	querier := txs.GetQuerier(ctx, r.db.Pool)

	query, args, err := r.sq.Delete("conversations").
		Where(sq.Eq{"chat_id": chatID}).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "сброс диалога", Cause: err}
	}

	if _, err := querier.Exec(ctx, query, args...); err != nil {
		return &customerrors.ErrStorage{
			Operation: customerrors.OpResetConversation,
			Cause:     &customerrors.ErrSQLExecution{Operation: "сброс диалога", Cause: err},
		}
	}

	return nil
}
