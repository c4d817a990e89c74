package repository

import (
	"log/slog"

	"github.com/central-university-dev/go-channel-poster/internal/bot/repository/memory"
	"github.com/central-university-dev/go-channel-poster/internal/bot/repository/orm"
	"github.com/central-university-dev/go-channel-poster/internal/bot/repository/redis"
	sqlrepo "github.com/central-university-dev/go-channel-poster/internal/bot/repository/sql"
	"github.com/central-university-dev/go-channel-poster/internal/bot/service"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	"github.com/central-university-dev/go-channel-poster/internal/database"
	"github.com/central-university-dev/go-channel-poster/internal/domain/errors"
)

type Factory struct {
	db     *database.PostgresDB
	config *config.Config
	logger *slog.Logger
}

// NewFactory создает фабрику хранилищ. db может быть nil, если выбран REDIS или MEMORY.
func NewFactory(db *database.PostgresDB, config *config.Config, logger *slog.Logger) *Factory {
	return &Factory{
		db:     db,
		config: config,
		logger: logger,
	}
}

// NeedsPostgres сообщает, требуется ли выбранному хранилищу соединение с PostgreSQL.
func NeedsPostgres(accessType config.AccessType) bool {
	return accessType == config.SQLAccess || accessType == config.SquirrelAccess
}

func (f *Factory) CreateConversationRepository() (service.ConversationRepository, error) {
	switch f.config.StateStoreType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория диалогов")
		return orm.NewConversationRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория диалогов")
		return sqlrepo.NewConversationRepository(f.db), nil
	case config.RedisAccess:
		f.logger.Info("Создание Redis репозитория диалогов")
		repo, err := redis.NewConversationRepository(f.config.RedisURL, f.config.RedisPassword,
			f.config.RedisDB, f.config.RedisStateTTL, f.logger)
		if err != nil {
			return nil, err
		}

		return repo, nil
	case config.MemoryAccess:
		f.logger.Warn("Создание in-memory репозитория диалогов, состояние не переживет перезапуск")
		return memory.NewConversationRepository(), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.StateStoreType)}
	}
}
