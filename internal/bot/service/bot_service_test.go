package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-channel-poster/internal/bot/audit"
	"github.com/central-university-dev/go-channel-poster/internal/bot/dispatch"
	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
	domainmocks "github.com/central-university-dev/go-channel-poster/internal/bot/domain/mocks"
	"github.com/central-university-dev/go-channel-poster/internal/bot/repository/memory"
	"github.com/central-university-dev/go-channel-poster/internal/bot/scheduler"
	"github.com/central-university-dev/go-channel-poster/internal/bot/service"
	repomocks "github.com/central-university-dev/go-channel-poster/internal/bot/service/mocks"
	"github.com/central-university-dev/go-channel-poster/internal/config"
	customerrors "github.com/central-university-dev/go-channel-poster/internal/domain/errors"
	"github.com/central-university-dev/go-channel-poster/internal/domain/models"
	"github.com/central-university-dev/go-channel-poster/pkg/txs"
)

const (
	chatA   int64 = 42
	chatB   int64 = 77
	channel       = "@movies"
)

type countingTimer struct {
	mu       sync.Mutex
	armed    int
	canceled int
}

func (c *countingTimer) Arm(string, time.Time, func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.armed++

	return nil
}

func (c *countingTimer) Cancel(string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.canceled++
}

func (c *countingTimer) Stop() {}

func (c *countingTimer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.armed - c.canceled
}

type sentMessages struct {
	mu     sync.Mutex
	byChat map[string][]string
}

func (s *sentMessages) add(chat, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byChat[chat] = append(s.byChat[chat], text)
}

func (s *sentMessages) last(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.byChat[domain.ChatRef(chatID)]
	if len(msgs) == 0 {
		return ""
	}

	return msgs[len(msgs)-1]
}

type testEnv struct {
	repo      *memory.ConversationRepository
	telegram  *domainmocks.TelegramClientAPI
	captioner *domainmocks.Captioner
	queue     *dispatch.Queue
	store     *scheduler.JobStore
	timer     *countingTimer
	sent      *sentMessages
	svc       *service.BotService
}

func testConfig() *config.Config {
	return &config.Config{
		TelegramBotToken:      "123:abc",
		TelegramChannelID:     channel,
		CaptionPromptTemplate: "Напиши пост о фильме {name}",
		FireTimeout:           time.Minute,
		FireConcurrency:       1,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()

	store, err := scheduler.NewJobStore(t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		repo:      memory.NewConversationRepository(),
		telegram:  domainmocks.NewTelegramClientAPI(t),
		captioner: domainmocks.NewCaptioner(t),
		queue:     dispatch.NewQueue(logger),
		store:     store,
		timer:     &countingTimer{},
		sent:      &sentMessages{byChat: make(map[string][]string)},
	}

	env.telegram.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			env.sent.add(args.String(1), args.String(2))
		}).Return(nil).Maybe()

	sched := scheduler.NewScheduler(store, env.timer,
		func() *config.Config { return cfg },
		func(*config.Config) domain.MessageSender { return env.telegram },
		audit.NewLogSink(logger), cfg, logger)

	env.svc = service.NewBotService(env.repo, txs.NoopTxManager{}, env.telegram, env.captioner, env.queue,
		sched, audit.NewLogSink(logger), cfg, logger)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = env.queue.Shutdown(ctx)
	})

	return env
}

// flush ждет, пока очередь выполнит все задачи, включая поставленные другими задачами.
func (e *testEnv) flush(t *testing.T) {
	t.Helper()

	for i := 0; i < 2; i++ {
		done := make(chan struct{})
		require.NoError(t, e.queue.Submit("barrier", func(context.Context) error {
			close(done)
			return nil
		}))

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("очередь не опустела")
		}
	}
}

func (e *testEnv) seed(t *testing.T, chatID int64, step models.Step, fields map[string]string) {
	t.Helper()

	conv := models.NewConversation(chatID)
	conv.Step = step

	for k, v := range fields {
		conv.Set(k, v)
	}

	require.NoError(t, e.repo.Save(context.Background(), conv))
}

func (e *testEnv) conversation(t *testing.T, chatID int64) *models.Conversation {
	t.Helper()

	conv, err := e.repo.Get(context.Background(), chatID)
	require.NoError(t, err)

	return conv
}

func textUpdate(chatID int64, text string) models.Update {
	return models.Update{Message: &models.Message{ChatID: chatID, Text: text}}
}

func photoUpdate(chatID int64, fileID string) models.Update {
	return models.Update{Message: &models.Message{
		ChatID: chatID,
		Photo: []models.PhotoSize{
			{FileID: fileID + "-small", Width: 90, Height: 90},
			{FileID: fileID, Width: 800, Height: 800},
		},
	}}
}

func callbackUpdate(chatID int64, data string) models.Update {
	return models.Update{Callback: &models.CallbackQuery{ID: "cb-" + data, ChatID: chatID, Data: data}}
}

var readyFields = map[string]string{
	models.FieldPhoto: "poster",
	models.FieldName:  "Дюна",
	models.FieldLink:  "https://example.com/dune",
	models.FieldDesc:  "<b>Дюна</b> - описание",
}

func TestBotService_StartResetsFromEveryStep(t *testing.T) {
	steps := []models.Step{
		models.StepAwaitingPhoto,
		models.StepAwaitingName,
		models.StepAwaitingLink,
		models.StepAwaitingScheduleMinutes,
	}

	for _, step := range steps {
		t.Run(step.String(), func(t *testing.T) {
			env := newTestEnv(t)
			env.seed(t, chatA, step, readyFields)

			require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "/start")))

			conv := env.conversation(t, chatA)
			assert.Equal(t, models.StepAwaitingPhoto, conv.Step)
			assert.Empty(t, conv.Fields)
			assert.Contains(t, env.sent.last(chatA), "постер")
		})
	}
}

func TestBotService_CancelWithBotSuffix(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, readyFields)

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "/cancel@PosterBot")))

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingPhoto, conv.Step)
	assert.Empty(t, conv.Fields)
	assert.Contains(t, env.sent.last(chatA), "отменено")
}

func TestBotService_HelpKeepsState(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingName, map[string]string{models.FieldPhoto: "poster"})

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "/help")))

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingName, conv.Step)
	assert.Equal(t, "poster", conv.Get(models.FieldPhoto))
}

func TestBotService_NonImageAtPhotoStep(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "привет")))

	pdf := models.Update{Message: &models.Message{
		ChatID:   chatA,
		Document: &models.Document{FileID: "doc", MimeType: "application/pdf"},
	}}
	require.NoError(t, env.svc.HandleUpdate(context.Background(), pdf))

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingPhoto, conv.Step)
	assert.Empty(t, conv.Fields)
	assert.Contains(t, env.sent.last(chatA), "изображение")
}

func TestBotService_ImageDocumentAccepted(t *testing.T) {
	env := newTestEnv(t)

	doc := models.Update{Message: &models.Message{
		ChatID:   chatA,
		Document: &models.Document{FileID: "doc-png", MimeType: "image/png"},
	}}
	require.NoError(t, env.svc.HandleUpdate(context.Background(), doc))

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingName, conv.Step)
	assert.Equal(t, "doc-png", conv.Get(models.FieldPhoto))
}

func TestBotService_EmptyNameKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingName, map[string]string{models.FieldPhoto: "poster"})

	require.NoError(t, env.svc.HandleUpdate(context.Background(), photoUpdate(chatA, "another")))

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingName, conv.Step)
	assert.Equal(t, "poster", conv.Get(models.FieldPhoto))
}

func TestBotService_FullFlowPublishNow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.telegram.On("DownloadFile", mock.Anything, "poster").Return([]byte("jpeg"), nil).Once()
	env.captioner.On("Generate", mock.Anything, domain.CaptionRequest{
		Prompt: "Напиши пост о фильме Дюна",
		Image:  []byte("jpeg"),
	}).Return("<b>Дюна</b> - описание", nil).Once()
	env.telegram.On("SendPhoto", mock.Anything, "42", "poster", "<b>Дюна</b> - описание", mock.Anything).
		Return(nil).Once()

	require.NoError(t, env.svc.HandleUpdate(ctx, photoUpdate(chatA, "poster")))
	require.NoError(t, env.svc.HandleUpdate(ctx, textUpdate(chatA, "Дюна")))
	require.NoError(t, env.svc.HandleUpdate(ctx, textUpdate(chatA, "https://example.com/dune")))

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingLink, conv.Step)
	assert.Equal(t, "https://example.com/dune", conv.Get(models.FieldLink))

	env.flush(t)

	conv = env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingLink, conv.Step)
	assert.Equal(t, "<b>Дюна</b> - описание", conv.Get(models.FieldDesc))

	env.telegram.On("AnswerCallback", mock.Anything, "cb-post_now", "").Return(nil).Once()
	env.telegram.On("SendPhoto", mock.Anything, channel, "poster", "<b>Дюна</b> - описание", mock.Anything).
		Return(nil).Once()

	require.NoError(t, env.svc.HandleUpdate(ctx, callbackUpdate(chatA, models.CallbackPostNow)))

	conv = env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingPhoto, conv.Step)
	assert.Empty(t, conv.Fields)
	assert.Contains(t, env.sent.last(chatA), "Опубликовано")
}

func TestBotService_CaptionFailureNeverWritesDesc(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingName, map[string]string{models.FieldPhoto: "poster"})

	env.telegram.On("DownloadFile", mock.Anything, "poster").Return([]byte("jpeg"), nil).Once()
	env.captioner.On("Generate", mock.Anything, mock.Anything).
		Return("", &customerrors.ErrCaptionFailed{Attempts: 3, Cause: &customerrors.ErrProtocol{
			Service: "gemini", Operation: "generateContent", StatusCode: 503, Description: "overloaded",
		}}).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "Дюна")))
	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "https://example.com/dune")))

	env.flush(t)

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingLink, conv.Step)
	assert.Empty(t, conv.Get(models.FieldDesc))
	assert.Contains(t, env.sent.last(chatA), "Ошибка ИИ")
	assert.Contains(t, env.sent.last(chatA), "503")
}

func TestBotService_DownloadFailureKeepsLinkStep(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, map[string]string{
		models.FieldPhoto: "poster",
		models.FieldName:  "Дюна",
	})

	env.telegram.On("DownloadFile", mock.Anything, "poster").
		Return(nil, &customerrors.ErrProtocol{Service: "telegram", Operation: "getFile", StatusCode: 400}).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "https://example.com/dune")))

	env.flush(t)

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingLink, conv.Step)
	assert.Empty(t, conv.Get(models.FieldDesc))
	assert.Contains(t, env.sent.last(chatA), "скачать изображение")
	env.captioner.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestBotService_StaleCaptionTaskSkipped(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, map[string]string{
		models.FieldPhoto: "poster",
		models.FieldName:  "Дюна",
	})

	gate := make(chan struct{})
	require.NoError(t, env.queue.Submit("gate", func(context.Context) error {
		<-gate
		return nil
	}))

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "https://example.com/dune")))
	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "/start")))

	close(gate)
	env.flush(t)

	assert.Equal(t, models.StepAwaitingPhoto, env.conversation(t, chatA).Step)
	env.captioner.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	env.telegram.AssertNotCalled(t, "DownloadFile", mock.Anything, mock.Anything)
}

func TestBotService_TextOnlyCaptionWithoutPhoto(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, map[string]string{models.FieldName: "Дюна"})

	env.captioner.On("Generate", mock.Anything, domain.CaptionRequest{Prompt: "Напиши пост о фильме Дюна"}).
		Return("текст", nil).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "https://example.com/dune")))

	env.flush(t)

	assert.Equal(t, "текст", env.conversation(t, chatA).Get(models.FieldDesc))
	assert.Equal(t, "текст", env.sent.last(chatA))
}

func TestBotService_InterleavedChatsStayIndependent(t *testing.T) {
	env := newTestEnv(t)

	updates := []models.Update{
		photoUpdate(chatA, "poster-a"),
		photoUpdate(chatB, "poster-b"),
		textUpdate(chatA, "Дюна"),
		textUpdate(chatB, "Матрица"),
		textUpdate(chatB, "/start"),
		photoUpdate(chatB, "poster-b2"),
	}

	for _, update := range updates {
		require.NoError(t, env.queue.Submit("update", func(ctx context.Context) error {
			return env.svc.HandleUpdate(ctx, update)
		}))
	}

	env.flush(t)

	a := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingLink, a.Step)
	assert.Equal(t, "poster-a", a.Get(models.FieldPhoto))
	assert.Equal(t, "Дюна", a.Get(models.FieldName))

	b := env.conversation(t, chatB)
	assert.Equal(t, models.StepAwaitingName, b.Step)
	assert.Equal(t, "poster-b2", b.Get(models.FieldPhoto))
	assert.Empty(t, b.Get(models.FieldName))
}

func TestBotService_ScheduleFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, readyFields)

	env.telegram.On("AnswerCallback", mock.Anything, "cb-schedule", "").Return(nil).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), callbackUpdate(chatA, models.CallbackSchedule)))
	assert.Equal(t, models.StepAwaitingScheduleMinutes, env.conversation(t, chatA).Step)

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "abc")))
	assert.Equal(t, models.StepAwaitingScheduleMinutes, env.conversation(t, chatA).Step)
	assert.Contains(t, env.sent.last(chatA), "Некорректное число")

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "600000")))
	assert.Equal(t, models.StepAwaitingScheduleMinutes, env.conversation(t, chatA).Step)

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "60")))

	paths, err := env.store.List()
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, 1, env.timer.count())

	job, ok, err := env.store.Read(paths[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, chatA, job.ChatID)
	assert.Equal(t, readyFields[models.FieldDesc], job.Fields[models.FieldDesc])

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingPhoto, conv.Step)
	assert.Empty(t, conv.Fields)
	assert.True(t, strings.Contains(env.sent.last(chatA), "60"))
}

func TestBotService_CallbacksWithoutCaption(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, map[string]string{models.FieldPhoto: "poster"})

	env.telegram.On("AnswerCallback", mock.Anything, "cb-post_now", "").Return(nil).Once()
	env.telegram.On("AnswerCallback", mock.Anything, "cb-schedule", "").Return(nil).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), callbackUpdate(chatA, models.CallbackPostNow)))
	require.NoError(t, env.svc.HandleUpdate(context.Background(), callbackUpdate(chatA, models.CallbackSchedule)))

	assert.Equal(t, models.StepAwaitingLink, env.conversation(t, chatA).Step)
	assert.Contains(t, env.sent.last(chatA), "не готово")
	env.telegram.AssertNotCalled(t, "SendPhoto", mock.Anything, channel, mock.Anything, mock.Anything, mock.Anything)
}

func TestBotService_PublishFailureKeepsState(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, readyFields)

	env.telegram.On("AnswerCallback", mock.Anything, "cb-post_now", "").
		Return(errors.New("callback expired")).Once()
	env.telegram.On("SendPhoto", mock.Anything, channel, "poster", readyFields[models.FieldDesc], mock.Anything).
		Return(&customerrors.ErrProtocol{Service: "telegram", Operation: "sendPhoto", StatusCode: 400,
			Description: "Bad Request: chat not found"}).Once()

	err := env.svc.HandleUpdate(context.Background(), callbackUpdate(chatA, models.CallbackPostNow))
	require.Error(t, err)

	conv := env.conversation(t, chatA)
	assert.Equal(t, models.StepAwaitingLink, conv.Step)
	assert.Equal(t, readyFields, conv.Fields)
	assert.Contains(t, env.sent.last(chatA), "Не удалось опубликовать")
}

func TestBotService_UnknownCallbackAnswered(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, readyFields)

	env.telegram.On("AnswerCallback", mock.Anything, "cb-bogus", "").Return(nil).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), callbackUpdate(chatA, "bogus")))
	assert.Equal(t, readyFields, env.conversation(t, chatA).Fields)
}

func TestBotService_StorageFailureReported(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repomocks.NewConversationRepository(t)
	telegram := domainmocks.NewTelegramClientAPI(t)
	queue := dispatch.NewQueue(logger)

	defer func() { _ = queue.Shutdown(context.Background()) }()

	storageErr := &customerrors.ErrStorage{Operation: customerrors.OpGetConversation, Cause: errors.New("connection refused")}
	repo.On("Get", mock.Anything, chatA).Return(nil, storageErr).Once()
	telegram.On("SendText", mock.Anything, "42", mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Ошибка")
	}), mock.Anything).Return(nil).Once()

	svc := service.NewBotService(repo, txs.NoopTxManager{}, telegram, domainmocks.NewCaptioner(t), queue,
		nil, nil, testConfig(), logger)

	err := svc.HandleUpdate(context.Background(), textUpdate(chatA, "Дюна"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, &customerrors.ErrStorage{}))
}

func TestBotService_ScheduleRolledBackWhenResetNotSaved(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	repo := repomocks.NewConversationRepository(t)
	telegram := domainmocks.NewTelegramClientAPI(t)
	queue := dispatch.NewQueue(logger)
	timer := &countingTimer{}

	defer func() { _ = queue.Shutdown(context.Background()) }()

	store, err := scheduler.NewJobStore(t.TempDir())
	require.NoError(t, err)

	sched := scheduler.NewScheduler(store, timer,
		func() *config.Config { return cfg },
		func(*config.Config) domain.MessageSender { return telegram },
		audit.NewLogSink(logger), cfg, logger)

	repo.On("Get", mock.Anything, chatA).Return(func(context.Context, int64) *models.Conversation {
		conv := models.NewConversation(chatA)
		conv.Step = models.StepAwaitingScheduleMinutes

		for k, v := range readyFields {
			conv.Set(k, v)
		}

		return conv
	}, nil).Twice()
	repo.On("Save", mock.Anything, mock.Anything).
		Return(&customerrors.ErrStorage{Operation: customerrors.OpSaveConversation, Cause: errors.New("disk full")}).
		Twice()
	telegram.On("SendText", mock.Anything, "42", mock.Anything, mock.Anything).Return(nil)

	svc := service.NewBotService(repo, txs.NoopTxManager{}, telegram, domainmocks.NewCaptioner(t), queue,
		sched, audit.NewLogSink(logger), cfg, logger)

	for i := 0; i < 2; i++ {
		err := svc.HandleUpdate(context.Background(), textUpdate(chatA, "60"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, &customerrors.ErrStorage{}))
	}

	paths, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, paths)

	claimed, err := store.ListClaimed()
	require.NoError(t, err)
	assert.Empty(t, claimed)

	assert.Equal(t, 0, timer.count())
}

func TestBotService_NewLinkClearsPreviousCaption(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, chatA, models.StepAwaitingLink, readyFields)

	release := make(chan struct{})

	env.telegram.On("DownloadFile", mock.Anything, "poster").Return([]byte("jpeg"), nil).Once()
	env.captioner.On("Generate", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return("<b>Дюна</b> - новое описание", nil).Once()
	env.telegram.On("SendPhoto", mock.Anything, "42", "poster", "<b>Дюна</b> - новое описание", mock.Anything).
		Return(nil).Once()
	env.telegram.On("AnswerCallback", mock.Anything, "cb-post_now", "").Return(nil).Once()

	require.NoError(t, env.svc.HandleUpdate(context.Background(), textUpdate(chatA, "https://example.com/dune-2")))

	conv := env.conversation(t, chatA)
	assert.Equal(t, "https://example.com/dune-2", conv.Get(models.FieldLink))
	assert.Empty(t, conv.Get(models.FieldDesc))

	require.NoError(t, env.svc.HandleUpdate(context.Background(), callbackUpdate(chatA, models.CallbackPostNow)))
	assert.Contains(t, env.sent.last(chatA), "не готово")
	env.telegram.AssertNotCalled(t, "SendPhoto", mock.Anything, channel, mock.Anything, mock.Anything, mock.Anything)

	close(release)
	env.flush(t)

	assert.Equal(t, "<b>Дюна</b> - новое описание", env.conversation(t, chatA).Get(models.FieldDesc))
}

func TestBotService_BuildPrompt(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, "Напиши пост о фильме Дюна", env.svc.BuildPrompt("Дюна"))
}

func TestCommands(t *testing.T) {
	commands := service.Commands()

	require.Len(t, commands, 3)
	assert.Equal(t, "start", commands[0].Command)
}
