package scheduler

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"

	"github.com/central-university-dev/go-channel-poster/internal/bot/audit"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/bot/publish"
	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

// MaxScheduleMinutes - не дальше года вперед.
const MaxScheduleMinutes = 525600

const (
	firedText  = "✅ Запланированный пост опубликован в канал."
	failedText = "❌ Не удалось опубликовать запланированный пост: %s"
)

// SenderFactory создает клиент Telegram по конфигурации, прочитанной в момент публикации.
type SenderFactory func(cfg *config.Config) domain.MessageSender

type ConfigLoader func() *config.Config

type Scheduler struct {
	store      *JobStore
	timer      Timer
	loadConfig ConfigLoader
	newSender  SenderFactory
	sink       audit.Sink

	allowance   *semaphore.Weighted
	fireTimeout time.Duration

	mu       sync.Mutex
	closed   bool
	armed    map[string]struct{}
	inflight sync.WaitGroup

	now    func() time.Time
	tracer trace.Tracer
	logger *slog.Logger
}

func NewScheduler(store *JobStore, timer Timer, loadConfig ConfigLoader, newSender SenderFactory,
	sink audit.Sink, cfg *config.Config, logger *slog.Logger) *Scheduler {
	concurrency := cfg.FireConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	fireTimeout := cfg.FireTimeout
	if fireTimeout <= 0 {
		fireTimeout = 2 * time.Minute
	}

	return &Scheduler{
		store:       store,
		timer:       timer,
		loadConfig:  loadConfig,
		newSender:   newSender,
		sink:        sink,
		allowance:   semaphore.NewWeighted(concurrency),
		fireTimeout: fireTimeout,
		armed:       make(map[string]struct{}),
		now:         time.Now,
		tracer:      otel.Tracer("channel-poster/scheduler"),
		logger:      logger,
	}
}

// Schedule сохраняет снимок полей и взводит таймер на now+minutes.
// Если запись не удалось сохранить, таймер не взводится.
func (s *Scheduler) Schedule(ctx context.Context, chatID int64, fields map[string]string,
	minutes int) (*models.PublishJob, error) {
	if minutes <= 0 || minutes > MaxScheduleMinutes {
		return nil, &customerrors.ErrValidation{Field: "minutes", Value: fmt.Sprint(minutes)}
	}

	snapshot := make(map[string]string, len(fields))
	for k, v := range fields {
		snapshot[k] = v
	}

	now := s.now().UTC()

	job := &models.PublishJob{
		ID:        ulid.Make().String(),
		ChatID:    chatID,
		Fields:    snapshot,
		CreatedAt: now,
		FireAt:    now.Add(time.Duration(minutes) * time.Minute),
	}

	path, err := s.store.Write(job)
	if err != nil {
		s.logger.Error("Ошибка при сохранении задачи", "chat_id", chatID, "error", err)
		return nil, err
	}

	if err := s.arm(job, path); err != nil {
		if delErr := s.store.Delete(path); delErr != nil {
			s.logger.Error("Не удалось удалить задачу без таймера", "path", path, "error", delErr)
		}

		return nil, fmt.Errorf("ошибка при взводе таймера: %w", err)
	}

	s.logger.Info("Публикация запланирована",
		"chat_id", chatID,
		"job_id", job.ID,
		"fire_at", job.FireAt,
	)

	s.record(ctx, audit.NewEvent(audit.EventPostScheduled, chatID, audit.SourceScheduled, job.ID, nil))

	return job, nil
}

func (s *Scheduler) arm(job *models.PublishJob, path string) error {
	// Учет до Arm: просроченная задача может сработать раньше, чем Arm вернется.
	s.mu.Lock()
	s.armed[path] = struct{}{}
	s.mu.Unlock()

	metrics.ScheduledJobsPending.Inc()

	if err := s.timer.Arm(job.ID, job.FireAt, func() { s.fireAsync(path) }); err != nil {
		s.disarm(path)
		return err
	}

	return nil
}

// disarm снимает учет таймера, взведенного этим процессом.
func (s *Scheduler) disarm(path string) {
	s.mu.Lock()
	_, ok := s.armed[path]
	delete(s.armed, path)
	s.mu.Unlock()

	if ok {
		metrics.ScheduledJobsPending.Dec()
	}
}

// Cancel отменяет только что запланированную задачу: снимает таймер и удаляет запись.
// Если задача уже забрана на публикацию, отмена ничего не делает.
func (s *Scheduler) Cancel(ctx context.Context, job *models.PublishJob) error {
	path := s.store.PathFor(job.ID)

	s.timer.Cancel(job.ID)

	claimed, ok, err := s.store.Claim(path)
	if err != nil {
		return err
	}

	s.disarm(path)

	if !ok {
		s.logger.Warn("Задача уже обработана, отмена невозможна", "job_id", job.ID)
		return nil
	}

	if err := s.store.Delete(claimed); err != nil {
		return err
	}

	s.logger.Info("Запланированная публикация отменена", "chat_id", job.ChatID, "job_id", job.ID)
	s.record(ctx, audit.NewEvent(audit.EventPostCanceled, job.ChatID, audit.SourceScheduled, job.ID, nil))

	return nil
}

// releaseClaimed возвращает в очередь записи, забранные до аварийного завершения.
// Такая запись может быть опубликована повторно.
func (s *Scheduler) releaseClaimed() {
	claimed, err := s.store.ListClaimed()
	if err != nil {
		s.logger.Error("Не удалось получить забранные задачи", "error", err)
		return
	}

	for _, path := range claimed {
		restored, err := s.store.Release(path)
		if err != nil {
			s.logger.Error("Не удалось вернуть забранную задачу", "path", path, "error", err)
			continue
		}

		s.logger.Warn("Задача не была завершена, публикуем повторно", "path", restored)
	}
}

// Restore взводит таймеры для всех записей в JOBS_DIR. Просроченные публикуются сразу.
// Записи, забранные прерванным вызовом Fire, возвращаются и тоже взводятся.
func (s *Scheduler) Restore(_ context.Context) (int, error) {
	s.releaseClaimed()

	paths, err := s.store.List()
	if err != nil {
		return 0, err
	}

	restored := 0

	for _, path := range paths {
		job, ok, err := s.store.Read(path)
		if err != nil {
			s.logger.Error("Не удалось прочитать задачу при восстановлении", "path", path, "error", err)
			continue
		}

		if !ok {
			continue
		}

		if err := s.arm(job, path); err != nil {
			s.logger.Error("Не удалось взвести таймер при восстановлении", "job_id", job.ID, "error", err)
			continue
		}

		restored++
	}

	s.logger.Info("Отложенные публикации восстановлены", "count", restored, "dir", s.store.Dir())

	return restored, nil
}

func (s *Scheduler) fireAsync(path string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("Таймер сработал после остановки планировщика, запись остается на диске", "path", path)

		return
	}

	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()

	if err := s.Fire(context.Background(), path); err != nil {
		s.logger.Error("Отложенная публикация завершилась ошибкой", "path", path, "error", err)
	}
}

// Fire публикует задачу из записи path. Повторный вызов для той же записи ничего не делает.
// Запись удаляется при любом исходе публикации.
func (s *Scheduler) Fire(ctx context.Context, path string) error {
	if err := s.allowance.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("не удалось получить разрешение на публикацию: %w", err)
	}
	defer s.allowance.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.fireTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "scheduler.fire", trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	claimed, ok, err := s.store.Claim(path)
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.disarm(path)

	if !ok {
		s.logger.Info("Задача уже обработана", "path", path)
		return nil
	}

	job, ok, err := s.store.Read(claimed)
	if err != nil || !ok {
		metrics.RecordJobFired(true)

		if err == nil {
			err = &customerrors.ErrStorage{Operation: customerrors.OpReadJob, Cause: fmt.Errorf("запись исчезла: %s", claimed)}
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return multierr.Append(err, s.store.Delete(claimed))
	}

	span.SetAttributes(attribute.String("job_id", job.ID), attribute.Int64("chat_id", job.ChatID))

	cfg := s.loadConfig()

	var sender domain.MessageSender

	publishErr := cfg.PublishCredentialsValid()
	if publishErr == nil {
		sender = s.newSender(cfg)
		publishErr = publish.PublishPost(ctx, sender, cfg.TelegramChannelID, models.PostFromFields(job.Fields))
	}

	deleteErr := s.store.Delete(claimed)
	if deleteErr != nil {
		s.logger.Error("Не удалось удалить запись задачи", "path", claimed, "error", deleteErr)
	}

	metrics.RecordJobFired(publishErr != nil)
	metrics.RecordPublish(audit.SourceScheduled, publishErr != nil)

	if publishErr != nil {
		span.RecordError(publishErr)
		span.SetStatus(codes.Error, publishErr.Error())

		s.logger.Error("Ошибка отложенной публикации", "job_id", job.ID, "chat_id", job.ChatID, "error", publishErr)
		s.record(ctx, audit.NewEvent(audit.EventPostFailed, job.ChatID, audit.SourceScheduled, job.ID, publishErr))
	} else {
		s.logger.Info("Отложенная публикация выполнена", "job_id", job.ID, "chat_id", job.ChatID)
		s.record(ctx, audit.NewEvent(audit.EventPostPublished, job.ChatID, audit.SourceScheduled, job.ID, nil))
	}

	s.notifyOperator(ctx, sender, job.ChatID, publishErr)

	return multierr.Append(publishErr, deleteErr)
}

func (s *Scheduler) notifyOperator(ctx context.Context, sender domain.MessageSender, chatID int64, publishErr error) {
	if sender == nil || chatID == 0 {
		return
	}

	text := firedText
	if publishErr != nil {
		text = fmt.Sprintf(failedText, html.EscapeString(publishErr.Error()))
	}

	if err := sender.SendText(ctx, domain.ChatRef(chatID), text, nil); err != nil {
		s.logger.Warn("Не удалось уведомить оператора", "chat_id", chatID, "error", err)
	}
}

func (s *Scheduler) record(ctx context.Context, event audit.Event) {
	if s.sink == nil {
		return
	}

	if err := s.sink.Record(ctx, event); err != nil {
		s.logger.Warn("Не удалось записать событие публикации", "type", event.Type, "error", err)
	}
}

// Shutdown бросает взведенные таймеры и ждет уже начатые публикации до дедлайна ctx.
// Записи остаются на диске и восстанавливаются при следующем запуске.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.timer.Stop()

	done := make(chan struct{})

	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("отложенные публикации не завершились: %w", ctx.Err())
	}
}
