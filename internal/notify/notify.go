// Package notify рассылает уведомления по нескольким каналам и возвращает
// результат по каждому каналу. Ошибка канала не считается ошибкой операции.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"marketadmin/internal/apperr"
	"marketadmin/internal/config"
	"marketadmin/internal/telegram_api"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Recipient - адресат уведомления. Пустые контакты означают, что канал пропускается.
type Recipient struct {
	Name           string
	Email          string
	Phone          string
	TelegramChatID int64
}

type Message struct {
	Subject string
	Body    string
	HTML    string
}

// Sender - один канал доставки.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, to Recipient, msg Message) error
}

// Result - исход отправки по одному каналу.
type Result struct {
	Channel Channel `json:"channel"`
	Status  Status  `json:"status"`
	Error   string  `json:"error,omitempty"`
}

// Report - исходы по всем запрошенным каналам.
type Report struct {
	Results []Result `json:"results"`
}

func (r Report) Failed() []Channel {
	var failed []Channel
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res.Channel)
		}
	}
	return failed
}

// Err возвращает PartialNotificationFailure, если хотя бы один канал не сработал.
// Вызывающий решает сам, предупреждать ли оператора.
func (r Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, ch := range failed {
		names = append(names, string(ch))
	}
	return &apperr.Error{
		Kind:    apperr.KindPartialNotificationFailure,
		Op:      "notify.Dispatch",
		Message: "не доставлено: " + strings.Join(names, ", "),
	}
}

// Dispatcher рассылает сообщение по каналам параллельно.
type Dispatcher struct {
	senders map[Channel]Sender
	timeout time.Duration
	log     *logrus.Logger
}

func NewDispatcher(log *logrus.Logger, senders ...Sender) *Dispatcher {
	d := &Dispatcher{
		senders: make(map[Channel]Sender),
		timeout: 15 * time.Second,
		log:     log,
	}
	for _, s := range senders {
		if s != nil {
			d.senders[s.Channel()] = s
		}
	}
	return d
}

// Dispatch отправляет сообщение по указанным каналам (по всем настроенным, если список пуст).
// Каналы без настройки или без контакта получателя помечаются как skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, to Recipient, msg Message, channels ...Channel) Report {
	if len(channels) == 0 {
		for ch := range d.senders {
			channels = append(channels, ch)
		}
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })

	results := make([]Result, len(channels))
	var mu sync.Mutex
	var g errgroup.Group
	for i, ch := range channels {
		sender, ok := d.senders[ch]
		if !ok || !reachable(ch, to) {
			results[i] = Result{Channel: ch, Status: StatusSkipped}
			continue
		}
		g.Go(func() error {
			sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			res := Result{Channel: ch, Status: StatusSent}
			if err := sender.Send(sendCtx, to, msg); err != nil {
				res = Result{Channel: ch, Status: StatusFailed, Error: err.Error()}
				d.log.WithError(err).WithFields(logrus.Fields{"channel": ch, "recipient": to.Name}).
					Warn("Уведомление не доставлено")
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return Report{Results: results}
}

func reachable(ch Channel, to Recipient) bool {
	switch ch {
	case ChannelEmail:
		return to.Email != ""
	case ChannelSMS, ChannelWhatsApp:
		return to.Phone != ""
	case ChannelTelegram:
		return to.TelegramChatID != 0
	}
	return false
}

// String - краткая сводка для журналов.
func (r Report) String() string {
	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		parts = append(parts, fmt.Sprintf("%s=%s", res.Channel, res.Status))
	}
	return strings.Join(parts, " ")
}

// NewFromConfig собирает диспетчер из настроенных каналов.
func NewFromConfig(cfg *config.Config, bot *telegram_api.BotClient, log *logrus.Logger) *Dispatcher {
	var senders []Sender
	if s := NewEmailSender(cfg); s != nil {
		senders = append(senders, s)
	}
	if s := NewSMSSender(cfg); s != nil {
		senders = append(senders, s)
	}
	if s := NewWhatsAppSender(cfg); s != nil {
		senders = append(senders, s)
	}
	if s := NewTelegramSender(bot); s != nil {
		senders = append(senders, s)
	}
	return NewDispatcher(log, senders...)
}
