// Package events публикует доменные события (смена статуса заказа, начисление комиссии)
// в topic-обменник RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/constants"
	"marketadmin/internal/models"
)

// Publisher публикует событие с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// OrderStatusEvent - заказ перешел в новый статус.
type OrderStatusEvent struct {
	OrderID        string        `json:"orderId"`
	OrderNumber    string        `json:"orderNumber,omitempty"`
	Collection     string        `json:"collection"`
	BusinessID     string        `json:"businessId"`
	From           models.Status `json:"from"`
	To             models.Status `json:"to"`
	NotifyCustomer bool          `json:"notifyCustomer"`
	RefundOwed     bool          `json:"refundOwed"`
	RefundAmount   float64       `json:"refundAmount,omitempty"`
	ActorID        string        `json:"actorId"`
	ChangedAt      time.Time     `json:"changedAt"`
}

// OrderStatusKey - ключ маршрутизации вида order.status.<status>.
func OrderStatusKey(status models.Status) string {
	return constants.ORDER_STATUS_ROUTING_KEY + string(status)
}

// CommissionSettledKey - ключ события о созданной записи комиссии.
const CommissionSettledKey = "commission.settled"

// AMQPPublisher публикует события в RabbitMQ.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *logrus.Logger
	mu       sync.Mutex
}

// Dial подключается к брокеру и объявляет topic-обменник.
func Dial(url string, log *logrus.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка открытия канала RabbitMQ: %w", err)
	}
	if err := ch.ExchangeDeclare(
		constants.ORDER_EVENTS_EXCHANGE, // name
		"topic",                         // type
		true,                            // durable
		false,                           // auto-deleted
		false,                           // internal
		false,                           // no-wait
		nil,                             // arguments
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("ошибка объявления обменника %s: %w", constants.ORDER_EVENTS_EXCHANGE, err)
	}
	log.Infof("RabbitMQ: обменник %s готов", constants.ORDER_EVENTS_EXCHANGE)
	return &AMQPPublisher{conn: conn, ch: ch, exchange: constants.ORDER_EVENTS_EXCHANGE, log: log}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("ошибка публикации %s: %w", routingKey, err)
	}
	p.log.WithField("routingKey", routingKey).Debug("Событие опубликовано")
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// Discard - публикатор для окружений без брокера: событие только пишется в журнал.
type Discard struct {
	Log *logrus.Logger
}

func (d Discard) Publish(ctx context.Context, routingKey string, payload any) error {
	if d.Log != nil {
		d.Log.WithField("routingKey", routingKey).Debug("Брокер не настроен, событие пропущено")
	}
	return nil
}

// Recorder запоминает опубликованные события. Используется в тестах.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
	Err    error
}

type Recorded struct {
	RoutingKey string
	Payload    any
}

func (r *Recorder) Publish(ctx context.Context, routingKey string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, Recorded{RoutingKey: routingKey, Payload: payload})
	return nil
}

// Keys возвращает ключи опубликованных событий по порядку.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}
