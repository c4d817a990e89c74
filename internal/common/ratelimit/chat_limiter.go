package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChatLimiter ограничивает исходящие сообщения Telegram: общий лимит бота
// и отдельный лимит на каждый чат.
type ChatLimiter struct {
	global     *rate.Limiter
	chats      map[string]*chatLimiter
	mu         sync.Mutex
	perChat    rate.Limit
	chatBurst  int
	expiration time.Duration
}

func NewChatLimiter(globalPerSecond float64, perChat rate.Limit, chatBurst int) *ChatLimiter {
	burst := int(globalPerSecond)
	if burst < 1 {
		burst = 1
	}

	global := rate.NewLimiter(rate.Limit(globalPerSecond), burst)
	if globalPerSecond <= 0 {
		global = rate.NewLimiter(rate.Inf, 1)
	}

	return &ChatLimiter{
		global:     global,
		chats:      make(map[string]*chatLimiter),
		perChat:    perChat,
		chatBurst:  chatBurst,
		expiration: 1 * time.Hour,
	}
}

// NewTelegramLimiter возвращает лимитер с ограничениями Bot API: не больше
// одного сообщения в секунду на чат с небольшим запасом на всплески.
func NewTelegramLimiter(globalPerSecond float64) *ChatLimiter {
	return NewChatLimiter(globalPerSecond, rate.Every(time.Second), 3)
}

func (l *ChatLimiter) getChatLimiter(chatID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	for id, c := range l.chats {
		if now.Sub(c.lastSeen) > l.expiration {
			delete(l.chats, id)
		}
	}

	c, exists := l.chats[chatID]
	if !exists {
		c = &chatLimiter{
			limiter: rate.NewLimiter(l.perChat, l.chatBurst),
		}
		l.chats[chatID] = c
	}

	c.lastSeen = now

	return c.limiter
}

// Wait блокируется, пока отправка в chatID не станет разрешена, или до отмены ctx.
func (l *ChatLimiter) Wait(ctx context.Context, chatID string) error {
	if err := l.getChatLimiter(chatID).Wait(ctx); err != nil {
		return fmt.Errorf("ожидание лимита чата %s: %w", chatID, err)
	}

	if err := l.global.Wait(ctx); err != nil {
		return fmt.Errorf("ожидание общего лимита: %w", err)
	}

	return nil
}
