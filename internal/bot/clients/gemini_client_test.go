package clients_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-channel-poster/internal/bot/clients"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/common/httputil"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
)

const captionResponse = `{"candidates":[{"content":{"role":"model","parts":[{"text":"  <b>Дюна</b> - пустынная планета  "}]}}]}`

func TestGeminiClient_Generate(t *testing.T) {
	image := []byte("\xff\xd8\xff\xe0fake-jpeg")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("key"))

		var body struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 2)
		assert.Equal(t, "Пост про Дюна", body.Contents[0].Parts[0].Text)
		require.NotNil(t, body.Contents[0].Parts[1].InlineData)
		assert.Equal(t, "image/jpeg", body.Contents[0].Parts[1].InlineData.MimeType)
		assert.Equal(t, base64.StdEncoding.EncodeToString(image), body.Contents[0].Parts[1].InlineData.Data)

		writeJSON(w, http.StatusOK, captionResponse)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	client := clients.NewGeminiClient(cfg, httputil.NewRetryPolicy(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))

	text, err := client.Generate(context.Background(), domain.CaptionRequest{Prompt: "Пост про Дюна", Image: image})
	require.NoError(t, err)
	assert.Equal(t, "<b>Дюна</b> - пустынная планета", text)
}

func TestGeminiClient_TextOnlyRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string][]map[string][]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body["contents"][0]["parts"], 1)

		writeJSON(w, http.StatusOK, captionResponse)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	client := clients.NewGeminiClient(cfg, httputil.NewRetryPolicy(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.Generate(context.Background(), domain.CaptionRequest{Prompt: "Пост"})
	require.NoError(t, err)
}

func TestGeminiClient_RetriesThenFails(t *testing.T) {
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(w, http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	client := clients.NewGeminiClient(cfg, httputil.NewRetryPolicy(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))

	text, err := client.Generate(context.Background(), domain.CaptionRequest{Prompt: "Пост"})
	require.Error(t, err)
	assert.Empty(t, text)

	var captionErr *customerrors.ErrCaptionFailed
	require.True(t, errors.As(err, &captionErr))
	assert.Equal(t, 3, captionErr.Attempts)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))

	var protocolErr *customerrors.ErrProtocol
	require.True(t, errors.As(err, &protocolErr))
	assert.Equal(t, "overloaded", protocolErr.Description)
}

func TestGeminiClient_TransportFailureExhaustsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	cfg := newTestConfig(server.URL)
	client := clients.NewGeminiClient(cfg, httputil.NewRetryPolicy(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.Generate(context.Background(), domain.CaptionRequest{Prompt: "Пост"})
	require.Error(t, err)

	var captionErr *customerrors.ErrCaptionFailed
	require.True(t, errors.As(err, &captionErr))

	var transportErr *customerrors.ErrTransport
	assert.True(t, errors.As(err, &transportErr))
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"candidates":[]}`)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	client := clients.NewGeminiClient(cfg, httputil.NewRetryPolicy(cfg), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := client.Generate(context.Background(), domain.CaptionRequest{Prompt: "Пост"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, &customerrors.ErrCaptionFailed{}))
}

func TestGenAIClient_GenerateAndRetry(t *testing.T) {
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}

		writeJSON(w, http.StatusOK, captionResponse)
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	client, err := clients.NewGenAIClient(context.Background(), cfg, httputil.NewRetryPolicy(cfg),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), domain.CaptionRequest{Prompt: "Пост", Image: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "<b>Дюна</b> - пустынная планета", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestGenAIClient_RequiresAPIKey(t *testing.T) {
	cfg := newTestConfig("http://localhost")
	cfg.GeminiAPIKey = ""

	_, err := clients.NewGenAIClient(context.Background(), cfg, httputil.NewRetryPolicy(cfg),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &customerrors.ErrConfiguration{}))
}
