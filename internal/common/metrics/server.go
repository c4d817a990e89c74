package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PollerProbe - время последнего успешного getUpdates. Нулевое время, пока опроса не было.
type PollerProbe interface {
	LastPoll() time.Time
}

type QueueProbe interface {
	Len() int
}

// HealthStatus - ответ /health.
type HealthStatus struct {
	Status     string    `json:"status"`
	LastPoll   time.Time `json:"last_poll,omitempty"`
	PollAgeSec float64   `json:"poll_age_seconds"`
	QueueDepth int       `json:"queue_depth"`
}

const (
	statusOK       = "ok"
	statusStarting = "starting"
	statusStale    = "stale"
)

//nolint:revive // Имя MetricsServer используется для ясности
type MetricsServer struct {
	server *http.Server
	logger *slog.Logger
	port   int

	poller     PollerProbe
	queue      QueueProbe
	staleAfter time.Duration
	now        func() time.Time
}

// NewMetricsServer отдает /metrics и /health. Бот считается живым, пока последний
// успешный опрос Telegram был не раньше staleAfter назад.
func NewMetricsServer(port int, poller PollerProbe, queue QueueProbe, staleAfter time.Duration,
	logger *slog.Logger) *MetricsServer {
	s := &MetricsServer{
		logger:     logger,
		port:       port,
		poller:     poller,
		queue:      queue,
		staleAfter: staleAfter,
		now:        time.Now,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *MetricsServer) Health() HealthStatus {
	health := HealthStatus{Status: statusStarting}

	if s.queue != nil {
		health.QueueDepth = s.queue.Len()
	}

	if s.poller == nil {
		return health
	}

	last := s.poller.LastPoll()
	if last.IsZero() {
		return health
	}

	age := s.now().Sub(last)

	health.LastPoll = last.UTC()
	health.PollAgeSec = age.Seconds()

	if s.staleAfter > 0 && age > s.staleAfter {
		health.Status = statusStale
	} else {
		health.Status = statusOK
	}

	return health
}

func (s *MetricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := s.Health()

	code := http.StatusOK
	if health.Status != statusOK {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn("Ошибка при записи ответа /health", "error", err)
	}
}

// Start блокируется до отмены ctx, затем останавливает сервер.
func (s *MetricsServer) Start(ctx context.Context) error {
	s.logger.Info("Запуск сервера метрик",
		"port", s.port,
		"endpoint", "/metrics",
	)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Ошибка при остановке сервера метрик", "error", err)
		} else {
			s.logger.Info("Сервер метрик успешно остановлен")
		}
	}()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ошибка запуска сервера метрик: %w", err)
	}

	return nil
}
