package audit

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/central-university-dev/go-channel-poster/internal/config"
)

// NewSink выбирает приемник по AUDIT_TRANSPORT. Вторым значением возвращается функция закрытия.
func NewSink(cfg *config.Config, logger *slog.Logger) (Sink, func() error, error) {
	transport := strings.ToUpper(strings.TrimSpace(cfg.AuditTransport))

	logger.Info("Создание журнала публикаций", "transport", transport)

	logSink := NewLogSink(logger)

	switch transport {
	case "", config.AuditTransportLog:
		return logSink, func() error { return nil }, nil
	case config.AuditTransportKafka:
		brokers := splitBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, nil, fmt.Errorf("не заданы брокеры Kafka для журнала публикаций")
		}

		kafkaSink := NewKafkaSink(brokers, cfg.TopicPostEvents, logger)

		return NewFallbackSink(kafkaSink, logSink, logger), kafkaSink.Close, nil
	default:
		return nil, nil, fmt.Errorf("неизвестный транспорт журнала публикаций: %s", transport)
	}
}

func splitBrokers(value string) []string {
	var brokers []string

	for _, b := range strings.Split(value, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}
