package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/central-university-dev/go-channel-poster/internal/bot/audit"
	"github.com/central-university-dev/go-channel-poster/internal/bot/dispatch"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	"github.com/central-university-dev/go-channel-poster/internal/bot/publish"
	"github.com/central-university-dev/go-channel-poster/internal/bot/scheduler"
	"github.com/central-university-dev/go-channel-poster/internal/common/metrics"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
)

type ConversationRepository interface {
	Get(ctx context.Context, chatID int64) (*models.Conversation, error)

	Save(ctx context.Context, conv *models.Conversation) error

	Reset(ctx context.Context, chatID int64) error
}

type TxManager interface {
	WithTransaction(ctx context.Context, txFunc func(ctx context.Context) error) error
}

type TaskSubmitter interface {
	Submit(name string, fn dispatch.TaskFunc) error
}

type PostScheduler interface {
	Schedule(ctx context.Context, chatID int64, fields map[string]string, minutes int) (*models.PublishJob, error)

	Cancel(ctx context.Context, job *models.PublishJob) error
}

// BotService - конечный автомат диалога с оператором. Вызывается только из очереди обработки.
type BotService struct {
	repo           ConversationRepository
	txManager      TxManager
	telegramClient domain.TelegramClientAPI
	captioner      domain.Captioner
	queue          TaskSubmitter
	scheduler      PostScheduler
	sink           audit.Sink

	channelID      string
	promptTemplate string

	tracer trace.Tracer
	logger *slog.Logger
}

func NewBotService(
	repo ConversationRepository,
	txManager TxManager,
	telegramClient domain.TelegramClientAPI,
	captioner domain.Captioner,
	queue TaskSubmitter,
	postScheduler PostScheduler,
	sink audit.Sink,
	cfg *config.Config,
	logger *slog.Logger,
) *BotService {
	return &BotService{
		repo:           repo,
		txManager:      txManager,
		telegramClient: telegramClient,
		captioner:      captioner,
		queue:          queue,
		scheduler:      postScheduler,
		sink:           sink,
		channelID:      cfg.TelegramChannelID,
		promptTemplate: cfg.CaptionPromptTemplate,
		tracer:         otel.Tracer("channel-poster/bot"),
		logger:         logger,
	}
}

// Commands - команды, которые регистрируются через setMyCommands.
func Commands() []domain.BotCommand {
	return []domain.BotCommand{
		{Command: "start", Description: "Начать новый пост"},
		{Command: "cancel", Description: "Отменить текущий пост"},
		{Command: "help", Description: "Как пользоваться ботом"},
	}
}

// outcome - результат шага диалога: ответ оператору и что сделать после сохранения.
type outcome struct {
	text     string
	save     bool
	caption  bool
	keyboard *tgbotapi.InlineKeyboardMarkup

	// job - задача, созданная на этом шаге. Отменяется, если состояние не сохранилось.
	job *models.PublishJob
}

func (s *BotService) HandleUpdate(ctx context.Context, update models.Update) error {
	ctx, span := s.tracer.Start(ctx, "bot.handle_update", trace.WithAttributes(
		attribute.Int64("update_id", update.UpdateID),
		attribute.Int64("chat_id", update.ChatID()),
	))
	defer span.End()

	var err error

	switch {
	case update.Message != nil:
		err = s.HandleMessage(ctx, update.Message)
	case update.Callback != nil:
		err = s.HandleCallback(ctx, update.Callback)
	default:
		s.logger.Debug("Пропущено обновление без сообщения", "update_id", update.UpdateID)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (s *BotService) HandleMessage(ctx context.Context, msg *models.Message) error {
	chatID := msg.ChatID

	if cmd, ok := models.ParseCommand(msg.Text); ok {
		metrics.RecordUserMessage(chatID, "command")

		return s.handleCommand(ctx, chatID, cmd)
	}

	metrics.RecordUserMessage(chatID, "message")

	var out outcome

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		conv, err := s.repo.Get(ctx, chatID)
		if err != nil {
			return err
		}

		out, err = s.advance(ctx, conv, msg)
		if err != nil {
			return err
		}

		if out.save {
			return s.repo.Save(ctx, conv)
		}

		return nil
	})
	if err != nil {
		if out.job != nil {
			if cancelErr := s.scheduler.Cancel(ctx, out.job); cancelErr != nil {
				s.logger.Error("Не удалось отменить задачу после ошибки сохранения",
					"chat_id", chatID,
					"job_id", out.job.ID,
					"error", cancelErr,
				)
			}
		}

		s.logger.Error("Ошибка при обработке сообщения", "chat_id", chatID, "error", err)
		s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)

		return err
	}

	s.reply(ctx, chatID, out.text, out.keyboard)

	if out.caption {
		if err := s.submitCaption(chatID); err != nil {
			s.logger.Error("Не удалось поставить генерацию описания в очередь", "chat_id", chatID, "error", err)
			s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)

			return err
		}
	}

	return nil
}

func (s *BotService) handleCommand(ctx context.Context, chatID int64, cmd models.CommandType) error {
	//nolint:exhaustive // CommandUnknown обрабатывается в блоке default
	switch cmd {
	case models.CommandStart, models.CommandCancel:
		if err := s.repo.Reset(ctx, chatID); err != nil {
			s.logger.Error("Ошибка при сбросе диалога", "chat_id", chatID, "error", err)
			s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)

			return err
		}

		s.logger.Info("Диалог сброшен", "chat_id", chatID, "command", cmd)

		if cmd == models.CommandStart {
			s.reply(ctx, chatID, welcomeText, nil)
		} else {
			s.reply(ctx, chatID, cancelText, nil)
		}
	case models.CommandHelp:
		s.reply(ctx, chatID, helpText, nil)
	default:
		s.reply(ctx, chatID, unknownCommandText, nil)
	}

	return nil
}

// advance применяет сообщение к диалогу. Ошибка означает, что состояние не меняется.
func (s *BotService) advance(ctx context.Context, conv *models.Conversation, msg *models.Message) (outcome, error) {
	text := strings.TrimSpace(msg.Text)

	switch conv.Step {
	case models.StepAwaitingPhoto:
		fileID, ok := msg.ImageFileID()
		if !ok {
			return outcome{text: photoRequiredText}, nil
		}

		conv.Set(models.FieldPhoto, fileID)
		conv.Step = models.StepAwaitingName

		return outcome{text: photoAcceptedText, save: true}, nil

	case models.StepAwaitingName:
		if text == "" {
			return outcome{text: nameRequiredText}, nil
		}

		conv.Set(models.FieldName, text)
		conv.Step = models.StepAwaitingLink

		return outcome{text: nameAcceptedText, save: true}, nil

	case models.StepAwaitingLink:
		if text == "" {
			return outcome{text: linkRequiredText}, nil
		}

		conv.Set(models.FieldLink, text)
		conv.Delete(models.FieldDesc)

		return outcome{text: captionStartText, save: true, caption: true}, nil

	case models.StepAwaitingScheduleMinutes:
		minutes, err := strconv.Atoi(text)
		if err != nil || minutes <= 0 {
			return outcome{text: invalidMinutesText}, nil
		}

		if minutes > scheduler.MaxScheduleMinutes {
			return outcome{text: fmt.Sprintf(tooManyMinutesText, scheduler.MaxScheduleMinutes)}, nil
		}

		job, err := s.scheduler.Schedule(ctx, conv.ChatID, conv.Snapshot(), minutes)
		if err != nil {
			return outcome{}, err
		}

		s.logger.Info("Пост запланирован", "chat_id", conv.ChatID, "job_id", job.ID, "minutes", minutes)

		conv.Reset()

		return outcome{text: fmt.Sprintf(scheduledText, minutes), save: true, job: job}, nil

	default:
		s.logger.Warn("Неизвестный шаг диалога, сбрасываем", "chat_id", conv.ChatID, "step", conv.Step)
		conv.Reset()

		return outcome{text: welcomeText, save: true}, nil
	}
}

// HandleCallback отвечает на нажатие кнопки при любом исходе обработки.
func (s *BotService) HandleCallback(ctx context.Context, cb *models.CallbackQuery) error {
	metrics.RecordUserMessage(cb.ChatID, "callback")

	if err := s.telegramClient.AnswerCallback(ctx, cb.ID, ""); err != nil {
		s.logger.Warn("Не удалось ответить на callback", "callback_id", cb.ID, "error", err)
	}

	switch cb.Data {
	case models.CallbackPostNow:
		return s.publishNow(ctx, cb.ChatID)
	case models.CallbackSchedule:
		return s.askScheduleMinutes(ctx, cb.ChatID)
	default:
		s.logger.Warn("Неизвестный callback", "chat_id", cb.ChatID, "data", cb.Data)
		return nil
	}
}

func (s *BotService) publishNow(ctx context.Context, chatID int64) error {
	conv, err := s.repo.Get(ctx, chatID)
	if err != nil {
		s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)
		return err
	}

	if conv.Get(models.FieldDesc) == "" {
		s.reply(ctx, chatID, captionNotReadyText, nil)
		return nil
	}

	err = publish.PublishPost(ctx, s.telegramClient, s.channelID, models.PostFromFields(conv.Fields))

	metrics.RecordPublish(audit.SourceImmediate, err != nil)

	if err != nil {
		s.logger.Error("Ошибка при публикации", "chat_id", chatID, "error", err)
		s.record(ctx, audit.NewEvent(audit.EventPostFailed, chatID, audit.SourceImmediate, "", err))
		s.reply(ctx, chatID, fmt.Sprintf(postFailedText, html.EscapeString(err.Error())), nil)

		return err
	}

	s.record(ctx, audit.NewEvent(audit.EventPostPublished, chatID, audit.SourceImmediate, "", nil))

	if err := s.repo.Reset(ctx, chatID); err != nil {
		s.logger.Error("Пост опубликован, но диалог не сброшен", "chat_id", chatID, "error", err)
		s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)

		return err
	}

	s.reply(ctx, chatID, postedText, nil)

	return nil
}

func (s *BotService) askScheduleMinutes(ctx context.Context, chatID int64) error {
	text := scheduleAskText

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		conv, err := s.repo.Get(ctx, chatID)
		if err != nil {
			return err
		}

		if conv.Get(models.FieldDesc) == "" {
			text = captionNotReadyText
			return nil
		}

		conv.Step = models.StepAwaitingScheduleMinutes

		return s.repo.Save(ctx, conv)
	})
	if err != nil {
		s.reply(ctx, chatID, fmt.Sprintf(errorText, html.EscapeString(err.Error())), nil)
		return err
	}

	s.reply(ctx, chatID, text, nil)

	return nil
}

func (s *BotService) reply(ctx context.Context, chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	if text == "" {
		return
	}

	if err := s.telegramClient.SendText(ctx, domain.ChatRef(chatID), text, keyboard); err != nil {
		s.logger.Error("Ошибка при отправке ответа", "chat_id", chatID, "error", err)
	}
}

func (s *BotService) record(ctx context.Context, event audit.Event) {
	if s.sink == nil {
		return
	}

	if err := s.sink.Record(ctx, event); err != nil {
		s.logger.Warn("Не удалось записать событие публикации", "type", event.Type, "error", err)
	}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
