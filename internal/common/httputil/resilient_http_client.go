package httputil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
)

type operationKey struct{}

// WithOperation помечает запрос именем операции для логов и метрик.
// URL в логи не попадает: в пути запросов к Telegram лежит токен.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey{}, operation)
}

func OperationFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok {
		return op
	}

	return "unknown"
}

type ResilientHTTPClient struct {
	client         *resty.Client
	circuitBreaker *gobreaker.CircuitBreaker
	logger         *slog.Logger
	serviceName    string
}

// CreateResilientHTTPClient собирает resty-клиент с политикой повторов и, если
// CB_MINIMUM_REQUIRED_CALLS > 0, с circuit breaker поверх транспорта.
func CreateResilientHTTPClient(cfg *config.Config, policy RetryPolicy, logger *slog.Logger, serviceName string) *resty.Client {
	client := resty.New()

	client.SetTimeout(cfg.HTTPRequestTimeout)

	policy.Apply(client)

	if cfg.CBMinimumRequiredCalls > 0 {
		circuitBreakerSettings := gobreaker.Settings{
			Name:        serviceName + "_circuit_breaker",
			MaxRequests: uint32(cfg.CBPermittedCallsInHalfOpen), //nolint:gosec // G115: Значение из конфига
			Interval:    time.Duration(cfg.CBSlidingWindowSize) * time.Second,
			Timeout:     cfg.CBWaitDurationInOpenState,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= uint32(cfg.CBMinimumRequiredCalls) && //nolint:gosec // G115: Значение из конфига
					failureRatio >= float64(cfg.CBFailureRateThreshold)/100.0
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if logger != nil {
					logger.Warn("Circuit breaker сменил состояние",
						"name", name,
						"from", from.String(),
						"to", to.String(),
					)
				}
			},
		}

		resilientClient := &ResilientHTTPClient{
			client:         client,
			circuitBreaker: gobreaker.NewCircuitBreaker(circuitBreakerSettings),
			logger:         logger,
			serviceName:    serviceName,
		}

		client.SetTransport(&CircuitBreakerTransport{
			resilientClient:   resilientClient,
			originalTransport: http.DefaultTransport,
		})
	}

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		operation := OperationFrom(resp.Request.Context())

		metrics.RecordHTTPRequest(serviceName, resp.Request.Method, operation, resp.StatusCode(), resp.Time())

		if logger != nil && resp.Request.Attempt > 1 {
			logger.Info("Повторная попытка HTTP запроса",
				"service", serviceName,
				"operation", operation,
				"attempt", resp.Request.Attempt,
				"status", resp.StatusCode(),
			)
		}

		return nil
	})

	client.OnError(func(req *resty.Request, err error) {
		metrics.RecordHTTPRequest(serviceName, req.Method, OperationFrom(req.Context()), 0, 0)

		if logger != nil {
			logger.Warn("HTTP запрос завершился ошибкой",
				"service", serviceName,
				"operation", OperationFrom(req.Context()),
				"attempts", req.Attempt,
				"error", err,
			)
		}
	})

	return client
}

type CircuitBreakerTransport struct {
	resilientClient   *ResilientHTTPClient
	originalTransport http.RoundTripper
}

func (t *CircuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	result, err := t.resilientClient.circuitBreaker.Execute(func() (interface{}, error) {
		resp, err := t.originalTransport.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, &customerrors.HTTPError{StatusCode: resp.StatusCode}
		}

		return resp, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) && t.resilientClient.logger != nil {
			t.resilientClient.logger.Warn("Circuit breaker открыт",
				"service", t.resilientClient.serviceName,
				"operation", OperationFrom(req.Context()),
			)
		}

		return nil, err
	}

	return result.(*http.Response), nil
}
