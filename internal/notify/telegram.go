// Package notify delivers short texts to linked Telegram chats.
package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Telegram sends notifications through the bot API.
type Telegram struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegram(b *bot.Bot, logger *zap.Logger) *Telegram {
	return &Telegram{bot: b, logger: logger}
}

func (t *Telegram) Notify(ctx context.Context, chatID int64, text string) error {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	t.logger.Debug("Notification sent", zap.Int64("chat_id", chatID))
	return nil
}

// Noop is used when no bot token is configured.
type Noop struct{}

func (Noop) Notify(context.Context, int64, string) error { return nil }
