package audit

import (
	"context"
	"log/slog"
)

// FallbackSink пишет в основной приемник, при ошибке - в резервный.
type FallbackSink struct {
	primary   Sink
	secondary Sink
	logger    *slog.Logger
}

func NewFallbackSink(primary, secondary Sink, logger *slog.Logger) *FallbackSink {
	return &FallbackSink{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (s *FallbackSink) Record(ctx context.Context, event Event) error {
	err := s.primary.Record(ctx, event)
	if err == nil {
		return nil
	}

	s.logger.Warn("Основной журнал недоступен, переключаемся на резервный",
		"primaryError", err,
		"type", event.Type,
	)

	if fallbackErr := s.secondary.Record(ctx, event); fallbackErr != nil {
		return err
	}

	return nil
}
