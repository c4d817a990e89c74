package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"

	// postgres driver нужен migrate для применения миграций.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	// file driver необходим для миграций базы данных.
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/central-university-dev/go-channel-poster/internal/config"
)

const (
	maxInt32 = 1<<31 - 1

	connectTimeout  = 5 * time.Second
	maxConnIdleTime = 5 * time.Minute
)

// PostgresDB - пул соединений для хранилищ диалогов SQL и SQUIRREL.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

func poolSize(maxConn int) int32 {
	switch {
	case maxConn <= 0:
		return 0
	case maxConn >= maxInt32:
		return maxInt32
	default:
		return int32(maxConn)
	}
}

// ping проверяет соединение, повторяя попытки по политике RETRY_*: база
// при совместном запуске может подняться позже бота.
func ping(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) error {
	attempts := cfg.RetryMaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		logger.Warn("PostgreSQL недоступен, повторяем",
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.RetryBackoff):
		}
	}

	return err
}

func NewPostgresDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при парсинге строки подключения к PostgreSQL: %w", err)
	}

	poolConfig.MaxConns = poolSize(cfg.DatabaseMaxConn)
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании пула соединений PostgreSQL: %w", err)
	}

	if err := ping(ctx, pool, cfg, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка при проверке соединения с PostgreSQL: %w", err)
	}

	logger.Info("Соединение с PostgreSQL установлено", "max_conns", poolConfig.MaxConns)

	return &PostgresDB{
		Pool:   pool,
		Logger: logger,
	}, nil
}

// Migrate применяет миграции из sourceURL (например, file://migrations) к базе dsn.
func Migrate(sourceURL, dsn string, logger *slog.Logger) error {
	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("ошибка при создании экземпляра migrate: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Warn("Ошибка при закрытии migrate", "source_error", srcErr, "db_error", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка при применении миграций: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("ошибка при чтении версии схемы: %w", err)
	}

	if dirty {
		return fmt.Errorf("схема в состоянии dirty на версии %d", version)
	}

	logger.Info("Миграции применены", "source", sourceURL, "version", version)

	return nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.Logger.Info("Соединение с PostgreSQL закрыто")
	}
}
