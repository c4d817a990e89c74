package errors

import (
	"fmt"
)

// ErrTransport - сетевая ошибка или таймаут при обращении к Telegram или Gemini.
type ErrTransport struct {
	Service   string
	Operation string
	Cause     error
}

func (e *ErrTransport) Error() string {
	return fmt.Sprintf("ошибка соединения с %s при %s: %v", e.Service, e.Operation, e.Cause)
}

func (e *ErrTransport) Unwrap() error {
	return e.Cause
}

func (e *ErrTransport) Is(target error) bool {
	_, ok := target.(*ErrTransport)
	return ok
}

// ErrProtocol - ответ не 2xx или тело ответа не удалось разобрать.
type ErrProtocol struct {
	Service     string
	Operation   string
	StatusCode  int
	Description string
}

func (e *ErrProtocol) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("некорректный ответ %s при %s: %s", e.Service, e.Operation, e.Description)
	}

	return fmt.Sprintf("%s вернул статус %d при %s: %s", e.Service, e.StatusCode, e.Operation, e.Description)
}

func (e *ErrProtocol) Is(target error) bool {
	_, ok := target.(*ErrProtocol)
	return ok
}

type ErrValidation struct {
	Field string
	Value string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("некорректное значение '%s' для поля '%s'", e.Value, e.Field)
}

func (e *ErrValidation) Is(target error) bool {
	_, ok := target.(*ErrValidation)
	return ok
}

type ErrConfiguration struct {
	Key    string
	Reason string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("ошибка конфигурации %s: %s", e.Key, e.Reason)
}

func (e *ErrConfiguration) Is(target error) bool {
	_, ok := target.(*ErrConfiguration)
	return ok
}

// ErrStorage - ошибка чтения или записи состояния диалога либо файла задачи.
type ErrStorage struct {
	Operation string
	Cause     error
}

func (e *ErrStorage) Error() string {
	return fmt.Sprintf("ошибка хранилища при %s: %v", e.Operation, e.Cause)
}

func (e *ErrStorage) Unwrap() error {
	return e.Cause
}

func (e *ErrStorage) Is(target error) bool {
	_, ok := target.(*ErrStorage)
	return ok
}

type ErrCaptionFailed struct {
	Attempts int
	Cause    error
}

func (e *ErrCaptionFailed) Error() string {
	return fmt.Sprintf("не удалось сгенерировать описание за %d попыток: %v", e.Attempts, e.Cause)
}

func (e *ErrCaptionFailed) Unwrap() error {
	return e.Cause
}

func (e *ErrCaptionFailed) Is(target error) bool {
	_, ok := target.(*ErrCaptionFailed)
	return ok
}

type ErrImageDownload struct {
	FileID string
	Cause  error
}

func (e *ErrImageDownload) Error() string {
	return fmt.Sprintf("не удалось скачать изображение %s: %v", e.FileID, e.Cause)
}

func (e *ErrImageDownload) Unwrap() error {
	return e.Cause
}

type ErrEmptyCaption struct{}

func (e *ErrEmptyCaption) Error() string {
	return "сервис генерации вернул пустой ответ"
}

type ErrQueueClosed struct{}

func (e *ErrQueueClosed) Error() string {
	return "очередь обработки остановлена"
}

func (e *ErrQueueClosed) Is(target error) bool {
	_, ok := target.(*ErrQueueClosed)
	return ok
}

type ErrUnknownDBAccessType struct {
	AccessType string
}

func (e *ErrUnknownDBAccessType) Error() string {
	return fmt.Sprintf("неизвестный тип доступа к базе данных: %s", e.AccessType)
}

type ErrBuildSQLQuery struct {
	Operation string
	Cause     error
}

func (e *ErrBuildSQLQuery) Error() string {
	return fmt.Sprintf("ошибка при построении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrBuildSQLQuery) Unwrap() error {
	return e.Cause
}

type ErrSQLExecution struct {
	Operation string
	Cause     error
}

func (e *ErrSQLExecution) Error() string {
	return fmt.Sprintf("ошибка при выполнении SQL запроса для %s: %v", e.Operation, e.Cause)
}

func (e *ErrSQLExecution) Unwrap() error {
	return e.Cause
}

const (
	OpGetConversation   = "get_conversation"
	OpSaveConversation  = "save_conversation"
	OpResetConversation = "reset_conversation"
	OpWriteJob          = "write_job"
	OpReadJob           = "read_job"
	OpDeleteJob         = "delete_job"
	OpListJobs          = "list_jobs"
)

type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d", e.StatusCode)
}
