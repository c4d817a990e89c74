package domain

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

type BotCommand struct {
	Command     string
	Description string
}

// UpdatesFetcher - long polling getUpdates.
type UpdatesFetcher interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]models.Update, error)
}

// MessageSender - исходящие сообщения. chatID - числовой id чата или @username канала.
type MessageSender interface {
	SendText(ctx context.Context, chatID, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error
	SendPhoto(ctx context.Context, chatID, photo, caption string, keyboard *tgbotapi.InlineKeyboardMarkup) error
}

type TelegramClientAPI interface {
	UpdatesFetcher
	MessageSender

	AnswerCallback(ctx context.Context, callbackID, text string) error

	DownloadFile(ctx context.Context, fileID string) ([]byte, error)

	SetMyCommands(ctx context.Context, commands []BotCommand) error
}

func ChatRef(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}
