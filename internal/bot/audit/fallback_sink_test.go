package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-channel-poster/internal/bot/audit"
	"github.com/central-university-dev/go-channel-poster/internal/bot/audit/mocks"
	"github.com/central-university-dev/go-channel-poster/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackSink_PrimarySuccess(t *testing.T) {
	primary := mocks.NewSink(t)
	secondary := mocks.NewSink(t)

	sink := audit.NewFallbackSink(primary, secondary, discardLogger())
	event := audit.NewEvent(audit.EventPostPublished, 42, audit.SourceImmediate, "", nil)

	primary.On("Record", mock.Anything, event).Return(nil).Once()

	require.NoError(t, sink.Record(context.Background(), event))
	secondary.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestFallbackSink_PrimaryFailsSecondarySuccess(t *testing.T) {
	primary := mocks.NewSink(t)
	secondary := mocks.NewSink(t)

	sink := audit.NewFallbackSink(primary, secondary, discardLogger())
	event := audit.NewEvent(audit.EventPostScheduled, 42, audit.SourceScheduled, "01HZX", nil)

	primary.On("Record", mock.Anything, event).Return(errors.New("broker down")).Once()
	secondary.On("Record", mock.Anything, event).Return(nil).Once()

	require.NoError(t, sink.Record(context.Background(), event))
}

func TestFallbackSink_BothFail(t *testing.T) {
	primary := mocks.NewSink(t)
	secondary := mocks.NewSink(t)

	sink := audit.NewFallbackSink(primary, secondary, discardLogger())
	event := audit.NewEvent(audit.EventPostFailed, 42, audit.SourceScheduled, "01HZX", errors.New("403"))

	primaryErr := errors.New("broker down")
	primary.On("Record", mock.Anything, event).Return(primaryErr).Once()
	secondary.On("Record", mock.Anything, event).Return(errors.New("disk full")).Once()

	err := sink.Record(context.Background(), event)
	assert.Equal(t, primaryErr, err)
}

func TestNewEvent(t *testing.T) {
	event := audit.NewEvent(audit.EventPostFailed, 7, audit.SourceImmediate, "", errors.New("boom"))

	assert.Equal(t, audit.EventPostFailed, event.Type)
	assert.Equal(t, int64(7), event.ChatID)
	assert.Equal(t, "boom", event.Error)
	assert.False(t, event.Time.IsZero())
}

func TestNewSink(t *testing.T) {
	sink, closeFn, err := audit.NewSink(&config.Config{AuditTransport: "log"}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &audit.LogSink{}, sink)
	require.NoError(t, closeFn())

	sink, closeFn, err = audit.NewSink(&config.Config{
		AuditTransport:  config.AuditTransportKafka,
		KafkaBrokers:    "localhost:9092, ",
		TopicPostEvents: "post-events",
	}, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &audit.FallbackSink{}, sink)
	require.NoError(t, closeFn())

	_, _, err = audit.NewSink(&config.Config{AuditTransport: config.AuditTransportKafka}, discardLogger())
	require.Error(t, err)

	_, _, err = audit.NewSink(&config.Config{AuditTransport: "HTTP"}, discardLogger())
	require.Error(t, err)
}
