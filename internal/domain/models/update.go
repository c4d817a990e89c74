package models

import "strings"

type PhotoSize struct {
	FileID   string
	FileSize int
	Width    int
	Height   int
}

type Document struct {
	FileID   string
	MimeType string
}

type Message struct {
	ChatID   int64
	Username string
	Text     string
	Caption  string
	Photo    []PhotoSize
	Document *Document
}

// ImageFileID возвращает идентификатор изображения из сообщения: самый крупный
// размер фото либо документ с MIME-типом image/*.
func (m *Message) ImageFileID() (string, bool) {
	if len(m.Photo) > 0 {
		return m.Photo[len(m.Photo)-1].FileID, true
	}

	if m.Document != nil && strings.HasPrefix(m.Document.MimeType, "image") {
		return m.Document.FileID, true
	}

	return "", false
}

type CallbackQuery struct {
	ID     string
	ChatID int64
	Data   string
}

type Update struct {
	UpdateID int64
	Message  *Message
	Callback *CallbackQuery
}

// ChatID возвращает чат, к которому относится обновление, или 0.
func (u *Update) ChatID() int64 {
	switch {
	case u.Message != nil:
		return u.Message.ChatID
	case u.Callback != nil:
		return u.Callback.ChatID
	default:
		return 0
	}
}
