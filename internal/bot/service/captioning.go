package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/bot/publish"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

func (s *BotService) submitCaption(chatID int64) error {
	return s.queue.Submit("caption", func(ctx context.Context) error {
		return s.GenerateCaption(ctx, chatID)
	})
}

func (s *BotService) BuildPrompt(name string) string {
	return strings.ReplaceAll(s.promptTemplate, config.NamePlaceholder, name)
}

// GenerateCaption скачивает постер, получает описание и показывает превью.
// При ошибке поле desc не записывается, диалог остается на шаге ссылки.
func (s *BotService) GenerateCaption(ctx context.Context, chatID int64) error {
	conv, err := s.repo.Get(ctx, chatID)
	if err != nil {
		s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)
		return err
	}

	if !captionPending(conv) {
		s.logger.Info("Генерация описания больше не нужна", "chat_id", chatID, "step", conv.Step)
		return nil
	}

	link := conv.Get(models.FieldLink)
	photo := conv.Get(models.FieldPhoto)

	req := domain.CaptionRequest{Prompt: s.BuildPrompt(conv.Get(models.FieldName))}

	if photo != "" {
		image, err := s.telegramClient.DownloadFile(ctx, photo)
		if err != nil {
			dlErr := &customerrors.ErrImageDownload{FileID: photo, Cause: err}

			s.logger.Error("Ошибка при скачивании изображения", "chat_id", chatID, "error", dlErr)
			s.reply(ctx, chatID, imageDownloadErrText, nil)

			return dlErr
		}

		req.Image = image
	}

	caption, err := s.captioner.Generate(ctx, req)
	if err != nil {
		if !isCanceled(err) {
			s.reply(ctx, chatID, fmt.Sprintf(captionErrText, html.EscapeString(captionErrorSummary(err))), nil)
		}

		return err
	}

	var post models.Post

	stale := false

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		conv, err := s.repo.Get(ctx, chatID)
		if err != nil {
			return err
		}

		if !captionPending(conv) || conv.Get(models.FieldLink) != link {
			stale = true
			return nil
		}

		conv.Set(models.FieldDesc, caption)
		post = models.PostFromFields(conv.Fields)

		return s.repo.Save(ctx, conv)
	})
	if err != nil {
		s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)
		return err
	}

	if stale {
		s.logger.Info("Диалог изменился во время генерации, описание отброшено", "chat_id", chatID)
		return nil
	}

	if err := publish.SendPreview(ctx, s.telegramClient, chatID, post); err != nil {
		s.logger.Error("Ошибка при отправке превью", "chat_id", chatID, "error", err)
		return fmt.Errorf("ошибка при отправке превью: %w", err)
	}

	return nil
}

func captionPending(conv *models.Conversation) bool {
	return conv.Step == models.StepAwaitingLink && conv.Get(models.FieldLink) != ""
}

func captionErrorSummary(err error) string {
	var protocolErr *customerrors.ErrProtocol
	if errors.As(err, &protocolErr) {
		return protocolErr.Error()
	}

	var transportErr *customerrors.ErrTransport
	if errors.As(err, &transportErr) {
		return fmt.Sprintf("%s недоступен", transportErr.Service)
	}

	return err.Error()
}
