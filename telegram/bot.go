package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"releasetracker/queue"
	"releasetracker/storage"
)

// Bot runs the moderation UI: it shows pending post cards to the moderator
// chat and translates button presses into queue actions.
type Bot struct {
	api           *tgbotapi.BotAPI
	queue         *queue.Queue
	moderatorChat int64
}

// NewBot creates the moderation bot over an authorized API client.
func NewBot(api *tgbotapi.BotAPI, q *queue.Queue, moderatorChat int64) *Bot {
	return &Bot{api: api, queue: q, moderatorChat: moderatorChat}
}

// Run processes updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	log.Printf("telegram: moderation bot running as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text == "/moderate":
		b.startModeration(update.Message.Chat.ID)
	}
}

// startModeration shows the first pending post.
func (b *Bot) startModeration(chatID int64) {
	out, err := b.queue.FirstPending()
	if err != nil {
		log.Printf("telegram: load queue: %v", err)
		b.sendText(chatID, "Failed to load the moderation queue.")
		return
	}
	b.showOutcome(chatID, out)
}

// handleCallback applies one moderator action and shows what comes next.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	action, index, err := decodeCallback(cb.Data)
	if err != nil {
		log.Printf("telegram: %v", err)
		return
	}

	chatID := b.moderatorChat
	if cb.Message != nil {
		chatID = cb.Message.Chat.ID
	}

	// Acknowledge immediately; revise and approve can take a while.
	ack := tgbotapi.NewCallback(cb.ID, ackText(action))
	if _, err := b.api.Request(ack); err != nil {
		log.Printf("telegram: answer callback: %v", err)
	}

	out, err := b.queue.Apply(ctx, action, index)
	if err != nil {
		log.Printf("telegram: apply %s@%d: %v", action, index, err)
		b.sendText(chatID, "Action failed, please try again.")
		return
	}

	if out.PublishErr != nil {
		b.sendText(chatID, "Publish failed: "+out.PublishErr.Error())
	}

	b.showOutcome(chatID, out)
}

func ackText(action queue.Action) string {
	switch action {
	case queue.ActionApprove:
		return "Approved"
	case queue.ActionRevise:
		return "Regenerating..."
	case queue.ActionDelete:
		return "Deleted"
	case queue.ActionNext:
		return "Next post"
	case queue.ActionFinish:
		return "Done"
	default:
		return ""
	}
}

// showOutcome renders the post at the outcome's index, or the end-of-queue
// notice.
func (b *Bot) showOutcome(chatID int64, out *queue.Outcome) {
	if out.Finished || out.Post == nil {
		b.sendText(chatID, "No more posts to moderate.")
		return
	}
	b.showPost(chatID, out.Index, *out.Post)
}

// showPost sends the moderation card: thumbnail, caption and action
// keyboard. When the photo send fails the caption goes out as a plain
// message so moderation can continue.
func (b *Bot) showPost(chatID int64, index int, post storage.PendingPost) {
	caption := moderationCaption(post)
	keyboard := moderationKeyboard(index)

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(post.ThumbnailURL))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	photo.ReplyMarkup = keyboard

	if _, err := b.api.Send(photo); err != nil {
		log.Printf("telegram: photo card for %q failed, sending text: %v", post.Title, err)
		msg := tgbotapi.NewMessage(chatID, "Could not load the thumbnail. The post:\n\n"+caption)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = keyboard
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("telegram: text card for %q failed too: %v", post.Title, err)
		}
	}
}

// moderationCaption is the publication caption prefixed with the channel
// name so the moderator sees the source.
func moderationCaption(post storage.PendingPost) string {
	return post.ChannelName + "\n\n" + queue.PublishCaption(post)
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("telegram: send message: %v", err)
	}
}
