package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/common/httputil"
	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
)

const geminiService = "gemini"

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GeminiClient вызывает generateContent через REST API.
type GeminiClient struct {
	client  *resty.Client
	policy  httputil.RetryPolicy
	baseURL string
	model   string
	apiKey  string
	logger  *slog.Logger
}

func NewGeminiClient(cfg *config.Config, policy httputil.RetryPolicy, logger *slog.Logger) *GeminiClient {
	return &GeminiClient{
		client:  httputil.CreateResilientHTTPClient(cfg, policy, logger, geminiService),
		policy:  policy,
		baseURL: strings.TrimRight(cfg.GeminiBaseURL, "/"),
		model:   cfg.GeminiModel,
		apiKey:  cfg.GeminiAPIKey,
		logger:  logger,
	}
}

func (c *GeminiClient) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
}

func buildGeminiRequest(req domain.CaptionRequest) geminiRequest {
	parts := []geminiPart{{Text: req.Prompt}}

	if len(req.Image) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: imageMimeType(req),
			Data:     base64.StdEncoding.EncodeToString(req.Image),
		}})
	}

	return geminiRequest{Contents: []geminiContent{{Parts: parts}}}
}

// Generate отправляет промпт и изображение. Повторы выполняет resty по общей политике;
// после исчерпания попыток возвращается ErrCaptionFailed.
func (c *GeminiClient) Generate(ctx context.Context, req domain.CaptionRequest) (string, error) {
	start := time.Now()

	text, attempts, err := c.generate(ctx, req)

	metrics.RecordCaption("rest", err != nil, time.Since(start))

	if err != nil {
		c.logger.Error("Ошибка генерации описания", "attempts", attempts, "error", err)
		return "", &customerrors.ErrCaptionFailed{Attempts: attempts, Cause: err}
	}

	return text, nil
}

func (c *GeminiClient) generate(ctx context.Context, req domain.CaptionRequest) (string, int, error) {
	resp, err := c.client.R().
		SetContext(httputil.WithOperation(ctx, "generateContent")).
		SetHeader("Content-Type", "application/json").
		SetBody(buildGeminiRequest(req)).
		Post(c.endpoint())

	attempts := c.policy.MaxAttempts
	if resp != nil && resp.Request != nil && resp.Request.Attempt > 0 {
		attempts = resp.Request.Attempt
	}

	if err != nil {
		return "", attempts, mapTransportError(geminiService, "generateContent", err)
	}

	var body geminiResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if resp.IsError() {
		description := resp.Status()
		if decodeErr == nil && body.Error != nil {
			description = body.Error.Message
		}

		return "", attempts, &customerrors.ErrProtocol{
			Service:     geminiService,
			Operation:   "generateContent",
			StatusCode:  resp.StatusCode(),
			Description: description,
		}
	}

	if decodeErr != nil {
		return "", attempts, &customerrors.ErrProtocol{
			Service:     geminiService,
			Operation:   "generateContent",
			StatusCode:  resp.StatusCode(),
			Description: "некорректное тело ответа: " + decodeErr.Error(),
		}
	}

	text, err := extractCaption(body)
	if err != nil {
		return "", attempts, err
	}

	return text, attempts, nil
}

// extractCaption достает candidates[0].content.parts[0].text.
func extractCaption(body geminiResponse) (string, error) {
	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", &customerrors.ErrEmptyCaption{}
	}

	text := strings.TrimSpace(body.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", &customerrors.ErrEmptyCaption{}
	}

	return text, nil
}
