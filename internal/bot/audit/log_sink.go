package audit

import (
	"context"
	"log/slog"
)

type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, event Event) error {
	level := slog.LevelInfo
	if event.Type == EventPostFailed {
		level = slog.LevelWarn
	}

	s.logger.Log(ctx, level, "Событие публикации",
		"type", event.Type,
		"chat_id", event.ChatID,
		"source", event.Source,
		"job_id", event.JobID,
		"error", event.Error,
	)

	return nil
}
