package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Timer взводит однократный вызов fn на момент at.
type Timer interface {
	Arm(id string, at time.Time, fn func()) error
	Cancel(id string)
	Stop()
}

type GocronTimer struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

func NewGocronTimer(logger *slog.Logger) *GocronTimer {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.StartAsync()

	return &GocronTimer{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Arm запускает fn сразу, если момент уже прошел.
func (t *GocronTimer) Arm(id string, at time.Time, fn func()) error {
	delay := time.Until(at)
	if delay <= 0 {
		go fn()
		return nil
	}

	_, err := t.scheduler.Every(delay).
		WaitForSchedule().
		LimitRunsTo(1).
		Tag(id).
		Do(fn)
	if err != nil {
		t.logger.Error("Ошибка при настройке таймера", "job_id", id, "error", err)
		return err
	}

	return nil
}

// Cancel снимает таймер. Уже сработавший или неизвестный таймер игнорируется.
func (t *GocronTimer) Cancel(id string) {
	if err := t.scheduler.RemoveByTag(id); err != nil {
		t.logger.Debug("Таймер не найден", "job_id", id, "error", err)
	}
}

func (t *GocronTimer) Stop() {
	t.logger.Info("Остановка таймеров отложенных публикаций")
	t.scheduler.Stop()
}
