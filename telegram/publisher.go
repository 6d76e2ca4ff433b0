// Package telegram adapts the moderation queue to the Telegram Bot API: a
// publish sink for approved posts and a bot loop driving the moderation UI.
// The queue state machine itself never imports this package.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Publisher sends approved posts to destination channels as photo posts
// with HTML captions. It satisfies queue.Publisher.
type Publisher struct {
	api *tgbotapi.BotAPI
}

// NewPublisher creates a publisher over an authorized bot API client.
func NewPublisher(api *tgbotapi.BotAPI) *Publisher {
	return &Publisher{api: api}
}

// Publish sends the caption with its thumbnail to the destination chat.
func (p *Publisher) Publish(ctx context.Context, destination int64, photoURL, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == 0 {
		return fmt.Errorf("telegram: no destination configured")
	}

	photo := tgbotapi.NewPhoto(destination, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML

	if _, err := p.api.Send(photo); err != nil {
		return fmt.Errorf("telegram: publish to %d: %w", destination, err)
	}
	return nil
}
