package clients

import (
	"net/http"
	"strings"

	"github.com/central-university-dev/go-channel-poster/internal/bot/domain"
)

const defaultImageMimeType = "image/jpeg"

func imageMimeType(req domain.CaptionRequest) string {
	if strings.HasPrefix(req.MimeType, "image/") {
		return req.MimeType
	}

	if detected := http.DetectContentType(req.Image); strings.HasPrefix(detected, "image/") {
		return detected
	}

	return defaultImageMimeType
}
