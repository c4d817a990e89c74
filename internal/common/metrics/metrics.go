package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "channel_poster"

	BotSubsystem       = "bot"
	SchedulerSubsystem = "scheduler"
)

// Исходящие HTTP запросы к Telegram и Gemini.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Outbound HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)
)

// Бот метрики.
var (
	UserMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "user_messages_total",
			Help:      "Total number of updates processed",
		},
		[]string{"chat_id", "message_type"},
	)

	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "polls_total",
			Help:      "Total number of getUpdates polls",
		},
		[]string{"result"},
	)

	PollCursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "poll_cursor",
			Help:      "Highest update id consumed by the poller",
		},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "dispatch_queue_depth",
			Help:      "Number of tasks waiting in the dispatch queue",
		},
	)

	DispatchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "dispatch_tasks_total",
			Help:      "Total number of dispatch queue tasks by outcome",
		},
		[]string{"task", "status"},
	)

	CaptionRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "caption_request_duration_seconds",
			Help:      "Caption generation duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"backend", "status"},
	)

	PostsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: BotSubsystem,
			Name:      "posts_published_total",
			Help:      "Total number of channel publish attempts",
		},
		[]string{"source", "status"},
	)
)

// Метрики отложенной публикации.
var (
	ScheduledJobsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "jobs_pending",
			Help:      "Number of armed deferred publish jobs",
		},
	)

	JobsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: SchedulerSubsystem,
			Name:      "jobs_fired_total",
			Help:      "Total number of fired deferred publish jobs by outcome",
		},
		[]string{"status"},
	)
)

func statusLabel(failed bool) string {
	if failed {
		return "error"
	}

	return "success"
}

func RecordHTTPRequest(service, method, endpoint string, statusCode int, duration time.Duration) {
	status := statusLabel(statusCode == 0 || statusCode >= 400)

	HTTPRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

func RecordUserMessage(chatID int64, messageType string) {
	UserMessagesTotal.WithLabelValues(strconv.FormatInt(chatID, 10), messageType).Inc()
}

func RecordPoll(updates int, err error) {
	switch {
	case err != nil:
		PollsTotal.WithLabelValues("error").Inc()
	case updates == 0:
		PollsTotal.WithLabelValues("empty").Inc()
	default:
		PollsTotal.WithLabelValues("updates").Inc()
	}
}

func RecordDispatchTask(task string, failed bool) {
	DispatchTasksTotal.WithLabelValues(task, statusLabel(failed)).Inc()
}

func RecordCaption(backend string, failed bool, duration time.Duration) {
	CaptionRequestDuration.WithLabelValues(backend, statusLabel(failed)).Observe(duration.Seconds())
}

func RecordPublish(source string, failed bool) {
	PostsPublishedTotal.WithLabelValues(source, statusLabel(failed)).Inc()
}

func RecordJobFired(failed bool) {
	JobsFiredTotal.WithLabelValues(statusLabel(failed)).Inc()
}
