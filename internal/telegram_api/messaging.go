package telegram_api

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// Лимит длины текста одного сообщения Telegram.
const maxMessageLength = 4096

// SendText отправляет текст, при необходимости разбивая его на несколько сообщений.
func (bc *BotClient) SendText(chatID int64, text string) error {
	if chatID == 0 {
		return fmt.Errorf("не указан chatID получателя")
	}
	for i, part := range SplitText(text, maxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := bc.Send(msg); err != nil {
			bc.log.WithError(err).WithField("chatId", chatID).Errorf("SendText: ошибка отправки части %d", i+1)
			return err
		}
	}
	return nil
}

// SendPhoto отправляет PNG (например, QR-код приглашения) с подписью.
func (bc *BotClient) SendPhoto(chatID int64, name string, png []byte, caption string) error {
	if chatID == 0 {
		return fmt.Errorf("не указан chatID получателя")
	}
	photoMsg := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: png})
	photoMsg.Caption = caption
	if _, err := bc.Send(photoMsg); err != nil {
		bc.log.WithError(err).WithField("chatId", chatID).Error("SendPhoto: ошибка отправки фото")
		return err
	}
	return nil
}

// SplitText режет текст на части не длиннее limit символов, стараясь резать по строкам.
func SplitText(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	var current strings.Builder
	currentLen := 0
	flush := func() {
		if currentLen > 0 {
			parts = append(parts, current.String())
			current.Reset()
			currentLen = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if currentLen+lineLen > limit {
			flush()
		}
		// Строка длиннее лимита режется по символам.
		for lineLen > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			lineLen -= limit
		}
		current.WriteString(line)
		currentLen += lineLen
	}
	flush()
	return parts
}
