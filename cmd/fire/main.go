package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/multierr"

	"github.com/central-university-dev/go-channel-poster/internal/bot/audit"
	"github.com/central-university-dev/go-channel-poster/internal/bot/clients"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/bot/scheduler"
	"github.com/central-university-dev/go-channel-poster/internal/common/httputil"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	"github.com/central-university-dev/go-channel-poster/pkg"
)

// fire публикует одну отложенную запись. Используется внешним таймером (cron, systemd, at)
// вместо или вместе с таймером внутри бота: запись публикуется не более одного раза.
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка публикации: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return errors.New("использование: fire <путь к pending_post_*.json>")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("некорректный путь к записи: %w", err)
	}

	cfg := config.LoadConfig()
	appLogger := pkg.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := scheduler.NewJobStore(filepath.Dir(path))
	if err != nil {
		return err
	}

	sink, closeSink, err := audit.NewSink(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("ошибка создания приемника событий: %w", err)
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

	result := postScheduler.Fire(ctx, path)

	result = multierr.Append(result, postScheduler.Shutdown(ctx))
	result = multierr.Append(result, closeSink())

	return result
}
