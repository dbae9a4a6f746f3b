package telegram_api

import (
	"fmt"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/sirupsen/logrus"
)

// Sender - часть Bot API, которой пользуется клиент. Подменяется в тестах.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BotClient - обертка над Telegram Bot API для служебных уведомлений:
// оповещения оператора, приветствия сотрудников, QR-коды приглашений.
type BotClient struct {
	api   Sender
	log   *logrus.Logger
	Debug bool
}

// New авторизует бота по токену.
func New(token string, debug bool, log *logrus.Logger) (*BotClient, error) {
	if token == "" {
		return nil, fmt.Errorf("токен Telegram API не предоставлен")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Telegram Bot API: %w", err)
	}
	api.Debug = debug
	log.Infof("Авторизован как аккаунт %s", api.Self.UserName)
	return &BotClient{api: api, log: log, Debug: debug}, nil
}

// NewWithSender собирает клиент поверх готового отправителя.
func NewWithSender(api Sender, log *logrus.Logger) *BotClient {
	return &BotClient{api: api, log: log}
}

// Send отправляет сообщение через BotClient.
func (bc *BotClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if bc == nil || bc.api == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient или его API не инициализирован")
	}
	if bc.Debug {
		switch msg := c.(type) {
		case tgbotapi.MessageConfig:
			bc.log.Debugf("Отправка сообщения: ChatID=%d, Text='%.50s...'", msg.ChatID, msg.Text)
		case tgbotapi.PhotoConfig:
			bc.log.Debugf("Отправка фото: ChatID=%d, Caption='%.50s...'", msg.ChatID, msg.Caption)
		default:
			bc.log.Debugf("Отправка/запрос типа %T", c)
		}
	}
	return bc.api.Send(c)
}

// Request выполняет запрос через BotClient.
func (bc *BotClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if bc == nil || bc.api == nil {
		return nil, fmt.Errorf("BotClient или его API не инициализирован")
	}
	return bc.api.Request(c)
}
