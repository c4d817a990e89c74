package txs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier - общее подмножество pgxpool.Pool и pgx.Tx, которым пользуются репозитории диалогов.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txCtxKey struct{}

func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	return tx, ok
}

// InTx сообщает, выполняется ли ctx внутри WithTransaction.
func InTx(ctx context.Context) bool {
	_, ok := txFrom(ctx)
	return ok
}

// GetQuerier возвращает транзакцию из ctx, а без нее - пул.
func GetQuerier(ctx context.Context, pool Querier) Querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}

	return pool
}
