package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/common/httputil"
	"github.com/central-university-dev/go-channel-poster/internal/common/ratelimit"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

const telegramService = "telegram"

// TelegramClient работает с Bot API напрямую через resty. Типы запросов и
// ответов берутся из tgbotapi. После создания клиент не меняет своих полей.
type TelegramClient struct {
	api     *resty.Client
	poll    *resty.Client
	baseURL string
	token   string
	limiter *ratelimit.ChatLimiter
	logger  *slog.Logger
}

func NewTelegramClient(cfg *config.Config, policy httputil.RetryPolicy, limiter *ratelimit.ChatLimiter,
	logger *slog.Logger) *TelegramClient {
	api := httputil.CreateResilientHTTPClient(cfg, policy, logger, telegramService)

	// Ошибки опроса обрабатывает backoff поллера, поэтому без повторов.
	poll := httputil.CreateResilientHTTPClient(cfg, httputil.NoRetry(), logger, telegramService+"_poll")
	poll.SetTimeout(cfg.PollTimeout + cfg.HTTPRequestTimeout)

	if limiter == nil {
		limiter = ratelimit.NewTelegramLimiter(cfg.TelegramRateLimit)
	}

	return &TelegramClient{
		api:     api,
		poll:    poll,
		baseURL: strings.TrimRight(cfg.TelegramAPIURL, "/"),
		token:   cfg.TelegramBotToken,
		limiter: limiter,
		logger:  logger,
	}
}

func (c *TelegramClient) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *TelegramClient) fileURL(path string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, path)
}

func mapTransportError(service, operation string, err error) error {
	var httpErr *customerrors.HTTPError
	if errors.As(err, &httpErr) {
		return &customerrors.ErrProtocol{
			Service:     service,
			Operation:   operation,
			StatusCode:  httpErr.StatusCode,
			Description: http.StatusText(httpErr.StatusCode),
		}
	}

	return &customerrors.ErrTransport{Service: service, Operation: operation, Cause: err}
}

// call выполняет метод Bot API. form != nil отправляется multipart POST, иначе GET с query.
func (c *TelegramClient) call(ctx context.Context, client *resty.Client, method string,
	form, query map[string]string, result any) error {
	req := client.R().SetContext(httputil.WithOperation(ctx, method))

	var (
		resp *resty.Response
		err  error
	)

	if form != nil {
		resp, err = req.SetMultipartFormData(form).Post(c.methodURL(method))
	} else {
		resp, err = req.SetQueryParams(query).Get(c.methodURL(method))
	}

	if err != nil {
		return mapTransportError(telegramService, method, err)
	}

	var apiResp tgbotapi.APIResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return &customerrors.ErrProtocol{
			Service:     telegramService,
			Operation:   method,
			StatusCode:  resp.StatusCode(),
			Description: "некорректное тело ответа: " + err.Error(),
		}
	}

	if !apiResp.Ok {
		return &customerrors.ErrProtocol{
			Service:     telegramService,
			Operation:   method,
			StatusCode:  resp.StatusCode(),
			Description: apiResp.Description,
		}
	}

	if result != nil {
		if err := json.Unmarshal(apiResp.Result, result); err != nil {
			return &customerrors.ErrProtocol{
				Service:     telegramService,
				Operation:   method,
				StatusCode:  resp.StatusCode(),
				Description: "некорректное поле result: " + err.Error(),
			}
		}
	}

	return nil
}

func (c *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]models.Update, error) {
	allowed, _ := json.Marshal([]string{"message", "callback_query"})

	var updates []tgbotapi.Update

	err := c.call(ctx, c.poll, "getUpdates", nil, map[string]string{
		"offset":          strconv.FormatInt(offset, 10),
		"timeout":         strconv.Itoa(int(timeout.Seconds())),
		"allowed_updates": string(allowed),
	}, &updates)
	if err != nil {
		return nil, err
	}

	result := make([]models.Update, 0, len(updates))
	for i := range updates {
		result = append(result, convertUpdate(&updates[i]))
	}

	return result, nil
}

func convertUpdate(u *tgbotapi.Update) models.Update {
	update := models.Update{UpdateID: int64(u.UpdateID)}

	if u.Message != nil && u.Message.Chat != nil {
		msg := &models.Message{
			ChatID:  u.Message.Chat.ID,
			Text:    u.Message.Text,
			Caption: u.Message.Caption,
		}

		if u.Message.From != nil {
			msg.Username = u.Message.From.UserName
		}

		for _, p := range u.Message.Photo {
			msg.Photo = append(msg.Photo, models.PhotoSize{
				FileID:   p.FileID,
				FileSize: p.FileSize,
				Width:    p.Width,
				Height:   p.Height,
			})
		}

		if u.Message.Document != nil {
			msg.Document = &models.Document{
				FileID:   u.Message.Document.FileID,
				MimeType: u.Message.Document.MimeType,
			}
		}

		update.Message = msg
	}

	if u.CallbackQuery != nil {
		cb := &models.CallbackQuery{
			ID:   u.CallbackQuery.ID,
			Data: u.CallbackQuery.Data,
		}

		switch {
		case u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
			cb.ChatID = u.CallbackQuery.Message.Chat.ID
		case u.CallbackQuery.From != nil:
			cb.ChatID = u.CallbackQuery.From.ID
		}

		update.Callback = cb
	}

	return update
}

func (c *TelegramClient) SendText(ctx context.Context, chatID, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return &customerrors.ErrTransport{Service: telegramService, Operation: "sendMessage", Cause: err}
	}

	form := map[string]string{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": tgbotapi.ModeHTML,
	}

	if err := addKeyboard(form, keyboard); err != nil {
		return err
	}

	return c.call(ctx, c.api, "sendMessage", form, nil, nil)
}

func (c *TelegramClient) SendPhoto(ctx context.Context, chatID, photo, caption string,
	keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if err := c.limiter.Wait(ctx, chatID); err != nil {
		return &customerrors.ErrTransport{Service: telegramService, Operation: "sendPhoto", Cause: err}
	}

	form := map[string]string{
		"chat_id":    chatID,
		"photo":      photo,
		"caption":    caption,
		"parse_mode": tgbotapi.ModeHTML,
	}

	if err := addKeyboard(form, keyboard); err != nil {
		return err
	}

	return c.call(ctx, c.api, "sendPhoto", form, nil, nil)
}

func addKeyboard(form map[string]string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	if keyboard == nil {
		return nil
	}

	markup, err := json.Marshal(keyboard)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации клавиатуры: %w", err)
	}

	form["reply_markup"] = string(markup)

	return nil
}

func (c *TelegramClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	form := map[string]string{"callback_query_id": callbackID}
	if text != "" {
		form["text"] = text
	}

	return c.call(ctx, c.api, "answerCallbackQuery", form, nil, nil)
}

// DownloadFile получает путь файла через getFile и скачивает его содержимое.
func (c *TelegramClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	var file tgbotapi.File
	if err := c.call(ctx, c.api, "getFile", nil, map[string]string{"file_id": fileID}, &file); err != nil {
		return nil, err
	}

	if file.FilePath == "" {
		return nil, &customerrors.ErrProtocol{
			Service:     telegramService,
			Operation:   "getFile",
			Description: "пустой file_path",
		}
	}

	resp, err := c.api.R().
		SetContext(httputil.WithOperation(ctx, "downloadFile")).
		Get(c.fileURL(file.FilePath))
	if err != nil {
		return nil, mapTransportError(telegramService, "downloadFile", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &customerrors.ErrProtocol{
			Service:     telegramService,
			Operation:   "downloadFile",
			StatusCode:  resp.StatusCode(),
			Description: http.StatusText(resp.StatusCode()),
		}
	}

	return resp.Body(), nil
}

func (c *TelegramClient) SetMyCommands(ctx context.Context, commands []domain.BotCommand) error {
	botAPICommands := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, cmd := range commands {
		botAPICommands = append(botAPICommands, tgbotapi.BotCommand{
			Command:     cmd.Command,
			Description: cmd.Description,
		})
	}

	data, err := json.Marshal(botAPICommands)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации команд бота: %w", err)
	}

	if err := c.call(ctx, c.api, "setMyCommands", map[string]string{"commands": string(data)}, nil, nil); err != nil {
		return fmt.Errorf("ошибка при установке команд бота: %w", err)
	}

	return nil
}
