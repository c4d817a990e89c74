package httputil

import (
	"context"
	"slices"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-channel-poster/internal/config"
)

// RetryPolicy - общая политика повторов для клиента Telegram и клиента Gemini.
// MaxAttempts считает все попытки, включая первую. Задержка между попытками фиксированная.
type RetryPolicy struct {
	MaxAttempts          int
	Delay                time.Duration
	RetryableStatusCodes []int
}

func NewRetryPolicy(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          cfg.RetryMaxAttempts,
		Delay:                cfg.RetryBackoff,
		RetryableStatusCodes: cfg.RetryableStatusCodes,
	}
}

// NoRetry используется для long polling: ошибки опроса обрабатывает собственный backoff поллера.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}

	return p.MaxAttempts
}

func (p RetryPolicy) IsRetryableStatus(code int) bool {
	return slices.Contains(p.RetryableStatusCodes, code)
}

// Apply настраивает повторы resty-клиента по этой политике.
func (p RetryPolicy) Apply(client *resty.Client) *resty.Client {
	client.SetRetryCount(p.attempts() - 1)
	client.SetRetryWaitTime(p.Delay)
	client.SetRetryMaxWaitTime(p.Delay)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}

		return p.IsRetryableStatus(r.StatusCode())
	})

	return client
}

// Do выполняет fn не более MaxAttempts раз, пока retryable считает ошибку временной.
// Возвращает число сделанных попыток и последнюю ошибку.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) (int, error) {
	var err error

	attempt := 0
	for attempt < p.attempts() {
		attempt++

		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}

		if retryable != nil && !retryable(err) {
			return attempt, err
		}

		if attempt == p.attempts() {
			break
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}

	return attempt, err
}
