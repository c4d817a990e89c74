package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
)

type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	fn   TaskFunc
}

// Queue - неограниченная FIFO очередь с одним обработчиком.
// Все изменения состояния диалогов выполняются только внутри ее задач.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []task
	closed  bool
	aborted bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	tracer trace.Tracer
	logger *slog.Logger
}

// NewQueue создает очередь и сразу запускает обработчик.
func NewQueue(logger *slog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		tracer: otel.Tracer("channel-poster/dispatch"),
		logger: logger,
	}
	q.cond = sync.NewCond(&q.mu)

	go q.worker()

	return q
}

// Submit ставит задачу в конец очереди и никогда не блокируется на ее выполнении.
func (q *Queue) Submit(name string, fn TaskFunc) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return &customerrors.ErrQueueClosed{}
	}

	q.tasks = append(q.tasks, task{name: name, fn: fn})
	metrics.DispatchQueueDepth.Set(float64(len(q.tasks)))

	q.cond.Signal()

	return nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Shutdown прекращает прием задач и ждет выполнения оставшихся до дедлайна ctx.
// По истечении дедлайна текущая задача получает отмененный контекст, остальные отбрасываются.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	pending := len(q.tasks)
	q.cond.Broadcast()
	q.mu.Unlock()

	q.logger.Info("Остановка очереди обработки", "pending", pending)

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
	}

	q.mu.Lock()
	q.aborted = true
	dropped := len(q.tasks)
	q.tasks = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	q.cancel()

	q.logger.Warn("Очередь обработки не успела опустеть", "dropped", dropped)

	return fmt.Errorf("очередь обработки не опустела за отведенное время: %w", ctx.Err())
}

func (q *Queue) next() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 && !q.closed && !q.aborted {
		q.cond.Wait()
	}

	if q.aborted || len(q.tasks) == 0 {
		return task{}, false
	}

	t := q.tasks[0]
	q.tasks[0] = task{}
	q.tasks = q.tasks[1:]

	metrics.DispatchQueueDepth.Set(float64(len(q.tasks)))

	return t, true
}

func (q *Queue) worker() {
	defer close(q.done)

	for {
		t, ok := q.next()
		if !ok {
			return
		}

		q.run(t)
	}
}

func (q *Queue) run(t task) {
	ctx, span := q.tracer.Start(q.ctx, "dispatch."+t.name, trace.WithAttributes(attribute.String("task", t.name)))
	defer span.End()

	err := q.safeCall(ctx, t)

	metrics.RecordDispatchTask(t.name, err != nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		q.logger.Error("Ошибка при выполнении задачи", "task", t.name, "error", err)
	}
}

func (q *Queue) safeCall(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Паника в задаче очереди", "task", t.name, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("паника в задаче %s: %v", t.name, r)
		}
	}()

	return t.fn(ctx)
}
