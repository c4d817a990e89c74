package telegram

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/central-university-dev/go-channel-poster/internal/bot/dispatch"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update models.Update) error
}

type TaskSubmitter interface {
	Submit(name string, fn dispatch.TaskFunc) error
}

// Poller - единственный цикл long polling. Курсор меняет только он.
type Poller struct {
	fetcher domain.UpdatesFetcher
	queue   TaskSubmitter
	handler UpdateHandler
	logger  *slog.Logger

	timeout time.Duration
	idle    *IdleBackoff
	failure FailureBackoff

	cursor   atomic.Int64
	lastPoll atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewPoller(fetcher domain.UpdatesFetcher, queue TaskSubmitter, handler UpdateHandler,
	cfg *config.Config, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher: fetcher,
		queue:   queue,
		handler: handler,
		logger:  logger,
		timeout: cfg.PollTimeout,
		idle:    NewIdleBackoff(cfg.PollIdleMin, cfg.PollIdleStep, cfg.PollIdleMax),
		failure: FailureBackoff{Step: cfg.PollFailureStep, Max: cfg.PollFailureMax},
		stopCh:  make(chan struct{}),
	}
}

// Offset - последний подтвержденный update_id.
func (p *Poller) Offset() int64 {
	return p.cursor.Load()
}

// LastPoll - время последнего успешного getUpdates.
func (p *Poller) LastPoll() time.Time {
	ns := p.lastPoll.Load()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns)
}

// PollOnce выполняет один getUpdates и ставит полученные обновления в очередь в порядке получения.
// При ошибке курсор не сдвигается.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	updates, err := p.fetcher.GetUpdates(ctx, p.cursor.Load()+1, p.timeout)

	metrics.RecordPoll(len(updates), err)

	if err != nil {
		return 0, err
	}

	p.lastPoll.Store(time.Now().UnixNano())

	for _, update := range updates {
		if update.UpdateID > p.cursor.Load() {
			p.cursor.Store(update.UpdateID)
		}

		if err := p.queue.Submit("update", func(ctx context.Context) error {
			return p.handler.HandleUpdate(ctx, update)
		}); err != nil {
			p.logger.Warn("Обновление не поставлено в очередь", "update_id", update.UpdateID, "error", err)
		}
	}

	metrics.PollCursor.Set(float64(p.cursor.Load()))

	return len(updates), nil
}

// Run опрашивает Telegram до вызова Stop или отмены ctx.
func (p *Poller) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	p.logger.Info("Запуск Telegram поллера", "offset", p.cursor.Load()+1)

	failures := 0

	for ctx.Err() == nil {
		n, err := p.PollOnce(ctx)

		var delay time.Duration

		switch {
		case err != nil:
			if ctx.Err() != nil {
				break
			}

			failures++
			delay = p.failure.Delay(failures)

			p.logger.Warn("Ошибка при получении обновлений",
				"error", err,
				"failures", failures,
				"retry_in", delay,
			)
		case n > 0:
			failures = 0

			p.idle.Reset()
			delay = p.idle.Min()
		default:
			failures = 0
			delay = p.idle.Next()
		}

		if !sleep(ctx, delay) {
			break
		}
	}

	p.logger.Info("Telegram поллер остановлен", "offset", p.cursor.Load())
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Остановка Telegram поллера")
		close(p.stopCh)
	})
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
