package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"marketadmin/internal/config"
)

// GatewaySender отправляет SMS или WhatsApp через HTTP JSON шлюз провайдера.
type GatewaySender struct {
	channel Channel
	url     string
	token   string
	client  *http.Client
}

// NewSMSSender возвращает nil, если шлюз не настроен.
func NewSMSSender(cfg *config.Config) *GatewaySender {
	if cfg.SMSGatewayURL == "" {
		return nil
	}
	return newGateway(ChannelSMS, cfg.SMSGatewayURL, cfg.SMSGatewayToken)
}

// NewWhatsAppSender возвращает nil, если API не настроен.
func NewWhatsAppSender(cfg *config.Config) *GatewaySender {
	if cfg.WhatsAppAPIURL == "" {
		return nil
	}
	return newGateway(ChannelWhatsApp, cfg.WhatsAppAPIURL, cfg.WhatsAppToken)
}

func newGateway(ch Channel, url, token string) *GatewaySender {
	return &GatewaySender{
		channel: ch,
		url:     url,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *GatewaySender) Channel() Channel { return s.channel }

type gatewayPayload struct {
	To        string `json:"to"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (s *GatewaySender) Send(ctx context.Context, to Recipient, msg Message) error {
	jsonData, err := json.Marshal(gatewayPayload{To: to.Phone, Text: msg.Body, Timestamp: time.Now().Unix()})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", s.channel, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: шлюз вернул статус %d", s.channel, resp.StatusCode)
	}
	return nil
}
