package reminder

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of tgbotapi.BotAPI used for delivery.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramDeliverer sends reminders to a single Telegram chat.
type TelegramDeliverer struct {
	api    sender
	chatID int64
}

func NewTelegramDeliverer(token string, chatID int64) (*TelegramDeliverer, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &TelegramDeliverer{api: api, chatID: chatID}, nil
}

func (d *TelegramDeliverer) Deliver(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(d.chatID, formatReminder(r))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := d.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatReminder(r Reminder) string {
	title := html.EscapeString(strings.TrimSpace(r.Title))
	if title == "" {
		title = "(untitled task)"
	}
	return fmt.Sprintf("⏰ <b>%s</b>\n%s", title, r.At.Format("2006-01-02 15:04"))
}
