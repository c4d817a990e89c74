package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink пишет события в топик, ключ сообщения - id чата оператора.
type KafkaSink struct {
	producer *kafka.Writer
	topic    string
	logger   *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	producer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(logger.Debug),
		ErrorLogger:            kafka.LoggerFunc(logger.Error),
	}

	return &KafkaSink{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

func (s *KafkaSink) Record(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации события: %w", err)
	}

	err = s.producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ChatID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
		Time: event.Time,
	})
	if err != nil {
		s.logger.Error("Ошибка при отправке события в Kafka",
			"error", err,
			"topic", s.topic,
			"type", event.Type,
		)

		return fmt.Errorf("ошибка при отправке события в Kafka: %w", err)
	}

	s.logger.Debug("Событие отправлено в Kafka", "topic", s.topic, "type", event.Type)

	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
