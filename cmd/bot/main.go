package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"github.com/central-university-dev/go-channel-poster/internal/bot/audit"
	"github.com/central-university-dev/go-channel-poster/internal/bot/clients"
	"github.com/central-university-dev/go-channel-poster/internal/bot/dispatch"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/bot/repository"
	"github.com/central-university-dev/go-channel-poster/internal/bot/scheduler"
	"github.com/central-university-dev/go-channel-poster/internal/bot/service"
	"github.com/central-university-dev/go-channel-poster/internal/bot/telegram"
	"github.com/central-university-dev/go-channel-poster/internal/common/httputil"
	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/common/ratelimit"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	"github.com/central-university-dev/go-channel-poster/internal/database"
	"github.com/central-university-dev/go-channel-poster/pkg"
	"github.com/central-university-dev/go-channel-poster/pkg/txs"
)

func setupTelegramCommands(ctx context.Context, telegramClient domain.TelegramClientAPI, appLogger *slog.Logger) {
	if err := telegramClient.SetMyCommands(ctx, service.Commands()); err != nil {
		appLogger.Error("Ошибка при регистрации команд бота",
			"error", err,
		)
	} else {
		appLogger.Info("Команды бота успешно зарегистрированы")
	}
}

func newCaptioner(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) (domain.Captioner, error) {
	policy := httputil.NewRetryPolicy(cfg)

	if cfg.CaptionBackend == config.CaptionBackendSDK {
		appLogger.Info("Генерация описаний через genai SDK")
		return clients.NewGenAIClient(ctx, cfg, policy, appLogger)
	}

	appLogger.Info("Генерация описаний через REST API Gemini")

	return clients.NewGeminiClient(cfg, policy, appLogger), nil
}

type closer interface {
	Close() error
}

type components struct {
	poller     *telegram.Poller
	queue      *dispatch.Queue
	scheduler  *scheduler.Scheduler
	repo       service.ConversationRepository
	closeSink  func() error
	db         *database.PostgresDB
	pollerDone <-chan struct{}
}

func gracefulShutdown(c *components, cfg *config.Config, appLogger *slog.Logger) error {
	c.poller.Stop()
	<-c.pollerDone

	var result error

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.DispatchDrainTimeout)
	defer cancelDrain()

	if err := c.queue.Shutdown(drainCtx); err != nil {
		appLogger.Warn("Очередь обработки остановлена до опустошения",
			"error", err,
		)

		result = multierr.Append(result, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := c.scheduler.Shutdown(ctx); err != nil {
		appLogger.Error("Ошибка при остановке планировщика",
			"error", err,
		)

		result = multierr.Append(result, err)
	}

	if repoCloser, ok := c.repo.(closer); ok {
		if err := repoCloser.Close(); err != nil {
			appLogger.Error("Ошибка при закрытии соединения с Redis",
				"error", err,
			)

			result = multierr.Append(result, err)
		}
	}

	if err := c.closeSink(); err != nil {
		appLogger.Error("Ошибка при закрытии приемника событий",
			"error", err,
		)

		result = multierr.Append(result, err)
	}

	if c.db != nil {
		c.db.Close()
	}

	appLogger.Info("Бот успешно остановлен")

	return result
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка запуска сервиса: %v\n", err)
		os.Exit(1)
	}
}

//nolint:funlen // Длина функции обусловлена необходимостью последовательной инициализации всех компонентов.
func run() error {
	cfg := config.LoadConfig()

	appLogger := pkg.NewLogger(os.Stdout, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		appLogger.Error("Некорректная конфигурация",
			"error", err,
		)

		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		db        *database.PostgresDB
		txManager service.TxManager = txs.NoopTxManager{}
		err       error
	)

	if repository.NeedsPostgres(cfg.StateStoreType) {
		if err = database.Migrate(cfg.MigrationsPath, cfg.DatabaseURL, appLogger); err != nil {
			return fmt.Errorf("ошибка применения миграций: %w", err)
		}

		db, err = database.NewPostgresDB(ctx, cfg, appLogger)
		if err != nil {
			appLogger.Error("Ошибка при подключении к базе данных",
				"error", err,
			)

			return fmt.Errorf("ошибка подключения к базе данных: %w", err)
		}

		txManager = txs.NewTxManager(db.Pool, appLogger)
	}

	repo, err := repository.NewFactory(db, cfg, appLogger).CreateConversationRepository()
	if err != nil {
		appLogger.Error("Ошибка при создании репозитория диалогов",
			"error", err,
		)

		return fmt.Errorf("ошибка создания репозитория диалогов: %w", err)
	}

	telegramClient := clients.NewTelegramClient(cfg, httputil.NewRetryPolicy(cfg),
		ratelimit.NewTelegramLimiter(cfg.TelegramRateLimit), appLogger)

	captioner, err := newCaptioner(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("ошибка создания генератора описаний: %w", err)
	}

	sink, closeSink, err := audit.NewSink(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("ошибка создания приемника событий: %w", err)
	}

	store, err := scheduler.NewJobStore(cfg.JobsDir)
	if err != nil {
		return fmt.Errorf("ошибка подготовки каталога задач: %w", err)
	}

	postScheduler := scheduler.NewScheduler(
		store,
		scheduler.NewGocronTimer(appLogger),
		config.LoadConfig,
		func(c *config.Config) domain.MessageSender {
			return clients.NewTelegramClient(c, httputil.NewRetryPolicy(c), nil, appLogger)
		},
		sink,
		cfg,
		appLogger,
	)

	if _, err := postScheduler.Restore(ctx); err != nil {
		appLogger.Error("Ошибка при восстановлении отложенных публикаций",
			"error", err,
		)
	}

	queue := dispatch.NewQueue(appLogger)

	botService := service.NewBotService(
		repo,
		txManager,
		telegramClient,
		captioner,
		queue,
		postScheduler,
		sink,
		cfg,
		appLogger,
	)

	setupTelegramCommands(ctx, telegramClient, appLogger)

	poller := telegram.NewPoller(telegramClient, queue, botService, cfg, appLogger)

	pollerDone := make(chan struct{})

	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	metricsServer := metrics.NewMetricsServer(cfg.BotMetricsPort, poller, queue,
		cfg.PollTimeout+cfg.PollIdleMax+cfg.PollFailureMax, appLogger)

	go func() {
		if err := metricsServer.Start(ctx); err != nil {
			appLogger.Error("Ошибка сервера метрик",
				"error", err,
			)
		}
	}()

	appLogger.Info("Бот запущен",
		"channel", cfg.TelegramChannelID,
		"state_store", cfg.StateStoreType,
		"caption_backend", cfg.CaptionBackend,
	)

	<-ctx.Done()
	appLogger.Info("Получен сигнал завершения")

	return gracefulShutdown(&components{
		poller:     poller,
		queue:      queue,
		scheduler:  postScheduler,
		repo:       repo,
		closeSink:  closeSink,
		db:         db,
		pollerDone: pollerDone,
	}, cfg, appLogger)
}
