package txs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager оборачивает чтение, изменение и сохранение диалога в одну транзакцию PostgreSQL.
type TxManager struct {
	pool    *pgxpool.Pool
	options pgx.TxOptions
	logger  *slog.Logger
}

func NewTxManager(pool *pgxpool.Pool, logger *slog.Logger) *TxManager {
	return &TxManager{
		pool:    pool,
		options: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
		logger:  logger,
	}
}

// WithTransaction выполняет txFunc в транзакции. Если ctx уже несет транзакцию,
// txFunc выполняется в ней, а фиксирует ее внешний вызов.
func (t *TxManager) WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error {
	if InTx(ctx) {
		return txFunc(ctx)
	}

	tx, err := t.pool.BeginTx(ctx, t.options)
	if err != nil {
		t.logger.Error("Не удалось начать транзакцию", "error", err)
		return fmt.Errorf("ошибка при начале транзакции: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Паника в транзакции, откатываем", "panic", r)

			_ = tx.Rollback(context.WithoutCancel(ctx))

			panic(r)
		}
	}()

	if err := txFunc(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			t.logger.Error("Не удалось откатить транзакцию", "error", rbErr, "cause", err)
			return fmt.Errorf("ошибка в транзакции: %w, ошибка rollback: %v", err, rbErr)
		}

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.logger.Error("Не удалось зафиксировать транзакцию", "error", err)
		return fmt.Errorf("ошибка при commit транзакции: %w", err)
	}

	return nil
}

// NoopTxManager выполняет функцию без транзакции. Используется с хранилищами REDIS и MEMORY,
// где каждая операция атомарна сама по себе.
type NoopTxManager struct{}

func (NoopTxManager) WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error {
	return txFunc(ctx)
}
