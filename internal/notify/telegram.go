package notify

import (
	"context"
	"html"
	"strings"

	"marketadmin/internal/telegram_api"
)

// TelegramSender доставляет уведомления в чат Telegram получателя.
type TelegramSender struct {
	bot *telegram_api.BotClient
}

func NewTelegramSender(bot *telegram_api.BotClient) *TelegramSender {
	if bot == nil {
		return nil
	}
	return &TelegramSender{bot: bot}
}

func (s *TelegramSender) Channel() Channel { return ChannelTelegram }

func (s *TelegramSender) Send(ctx context.Context, to Recipient, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Готовый HTML (подмножество Telegram) отправляется как есть.
	if msg.HTML != "" {
		return s.bot.SendText(to.TelegramChatID, msg.HTML)
	}
	var b strings.Builder
	if msg.Subject != "" {
		b.WriteString("<b>" + html.EscapeString(msg.Subject) + "</b>\n\n")
	}
	b.WriteString(html.EscapeString(msg.Body))
	return s.bot.SendText(to.TelegramChatID, b.String())
}
