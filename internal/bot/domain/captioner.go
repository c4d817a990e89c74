package domain

import "context"

type CaptionRequest struct {
	Prompt   string
	Image    []byte
	MimeType string
}

// Captioner генерирует текст поста по промпту и, если есть, изображению.
type Captioner interface {
	Generate(ctx context.Context, req CaptionRequest) (string, error)
}
