package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/common/httputil"
	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
)

// GenAIClient - вариант генерации описаний через официальный SDK google.golang.org/genai.
// Повторы выполняются той же политикой, что и у REST клиента.
type GenAIClient struct {
	client *genai.Client
	policy httputil.RetryPolicy
	model  string
	logger *slog.Logger
}

func NewGenAIClient(ctx context.Context, cfg *config.Config, policy httputil.RetryPolicy,
	logger *slog.Logger) (*GenAIClient, error) {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, &customerrors.ErrConfiguration{Key: "GEMINI_API_KEY", Reason: "не задан ключ Gemini"}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.GeminiAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.HTTPRequestTimeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.GeminiBaseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании клиента genai: %w", err)
	}

	return &GenAIClient{
		client: client,
		policy: policy,
		model:  cfg.GeminiModel,
		logger: logger,
	}, nil
}

func buildGenAIContents(req domain.CaptionRequest) []*genai.Content {
	parts := []*genai.Part{{Text: req.Prompt}}

	if len(req.Image) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: imageMimeType(req),
			Data:     req.Image,
		}})
	}

	return []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
}

func (c *GenAIClient) Generate(ctx context.Context, req domain.CaptionRequest) (string, error) {
	start := time.Now()
	contents := buildGenAIContents(req)

	var text string

	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
		if err != nil {
			return c.mapError(err)
		}

		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
			len(resp.Candidates[0].Content.Parts) == 0 {
			return &customerrors.ErrEmptyCaption{}
		}

		text = strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
		if text == "" {
			return &customerrors.ErrEmptyCaption{}
		}

		return nil
	}, c.retryable)

	metrics.RecordCaption("sdk", err != nil, time.Since(start))

	if err != nil {
		c.logger.Error("Ошибка генерации описания через SDK", "attempts", attempts, "error", err)
		return "", &customerrors.ErrCaptionFailed{Attempts: attempts, Cause: err}
	}

	return text, nil
}

func (c *GenAIClient) mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &customerrors.ErrProtocol{Service: geminiService, Operation: "generateContent",
			StatusCode: apiErr.Code, Description: apiErr.Message}
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &customerrors.ErrProtocol{Service: geminiService, Operation: "generateContent",
			StatusCode: apiErrPtr.Code, Description: apiErrPtr.Message}
	}

	return &customerrors.ErrTransport{Service: geminiService, Operation: "generateContent", Cause: err}
}

// retryable повторяет сетевые ошибки и ответы с кодами из политики.
func (c *GenAIClient) retryable(err error) bool {
	var protocolErr *customerrors.ErrProtocol
	if errors.As(err, &protocolErr) {
		return c.policy.IsRetryableStatus(protocolErr.StatusCode)
	}

	var transportErr *customerrors.ErrTransport
	if errors.As(err, &transportErr) {
		return !errors.Is(err, context.Canceled)
	}

	return false
}
