package publish

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

const (
	DownloadButtonText = "📥 Скачать фильм 📥"
	PostNowButtonText  = "🚀 Опубликовать"
	ScheduleButtonText = "⏰ Запланировать"
)

// ChannelKeyboard - кнопка со ссылкой под постом в канале. Без ссылки клавиатуры нет.
func ChannelKeyboard(link string) *tgbotapi.InlineKeyboardMarkup {
	if strings.TrimSpace(link) == "" {
		return nil
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(DownloadButtonText, link)),
	)

	return &keyboard
}

// PreviewKeyboard - кнопки под превью у оператора.
func PreviewKeyboard() *tgbotapi.InlineKeyboardMarkup {
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(PostNowButtonText, models.CallbackPostNow)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(ScheduleButtonText, models.CallbackSchedule)),
	)

	return &keyboard
}

// PublishPost отправляет пост в канал. Без фото отправляется текстовое сообщение.
func PublishPost(ctx context.Context, sender domain.MessageSender, channel string, post models.Post) error {
	if strings.TrimSpace(channel) == "" {
		return &customerrors.ErrConfiguration{Key: "TELEGRAM_CHANNEL_ID", Reason: "не задан канал для публикации"}
	}

	if strings.TrimSpace(post.Caption) == "" {
		return &customerrors.ErrValidation{Field: models.FieldDesc, Value: post.Caption}
	}

	keyboard := ChannelKeyboard(post.Link)

	var err error
	if post.Photo != "" {
		err = sender.SendPhoto(ctx, channel, post.Photo, post.Caption, keyboard)
	} else {
		err = sender.SendText(ctx, channel, post.Caption, keyboard)
	}

	if err != nil {
		return fmt.Errorf("ошибка при публикации в канал %s: %w", channel, err)
	}

	return nil
}

// SendPreview показывает оператору будущий пост с кнопками публикации.
func SendPreview(ctx context.Context, sender domain.MessageSender, chatID int64, post models.Post) error {
	chat := domain.ChatRef(chatID)

	if post.Photo != "" {
		return sender.SendPhoto(ctx, chat, post.Photo, post.Caption, PreviewKeyboard())
	}

	return sender.SendText(ctx, chat, post.Caption, PreviewKeyboard())
}
