// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	AppEnv string `env:"ENV" envDefault:"dev"`
	Port   string `env:"PORT" envDefault:"8080"`

	// Хранилище документов: postgres (JSONB) или memory (локальная разработка).
	DocstoreDriver string `env:"DOCSTORE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	DBHost         string
	DBPort         string
	DBName         string

	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"12h"`

	MediaDir      string `env:"MEDIA_DIR" envDefault:"media_storage"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	ConsoleURL    string `env:"CONSOLE_URL" envDefault:"http://localhost:3000"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	SMSGatewayURL   string `env:"SMS_GATEWAY_URL"`
	SMSGatewayToken string `env:"SMS_GATEWAY_TOKEN"`
	WhatsAppAPIURL  string `env:"WHATSAPP_API_URL"`
	WhatsAppToken   string `env:"WHATSAPP_TOKEN"`

	TelegramToken  string `env:"TELEGRAM_APITOKEN"`
	OperatorChatID int64  `env:"OPERATOR_CHAT_ID"`

	AMQPURL string `env:"AMQP_URL"`

	DefaultVATRate        float64 `env:"DEFAULT_VAT_RATE" envDefault:"0.19"`
	DefaultCommissionRate float64 `env:"DEFAULT_COMMISSION_RATE" envDefault:"0.10"`
	DefaultCurrency       string  `env:"DEFAULT_CURRENCY" envDefault:"EUR"`

	// Фиксированный сбор за заказ по типу доставки.
	FeeSelfPickup      float64 `env:"FEE_SELF_PICKUP" envDefault:"0"`
	FeeVendorCourier   float64 `env:"FEE_VENDOR_COURIER" envDefault:"0.50"`
	FeePlatformCourier float64 `env:"FEE_PLATFORM_COURIER" envDefault:"1.00"`

	// Часовой пояс отчетов по сменам.
	ShiftTimezone string `env:"SHIFT_TIMEZONE" envDefault:"Europe/Berlin"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
	LogPath   string `env:"LOG_PATH" envDefault:"logs"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"https://*,http://*"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	if cfg.DefaultVATRate < 0 || cfg.DefaultVATRate >= 1 {
		logrus.Warnf("Некорректное значение DEFAULT_VAT_RATE (%.4f), используется значение по умолчанию 0.19.", cfg.DefaultVATRate)
		cfg.DefaultVATRate = 0.19
	}
	if cfg.DefaultCommissionRate < 0 || cfg.DefaultCommissionRate >= 1 {
		logrus.Warnf("Некорректное значение DEFAULT_COMMISSION_RATE (%.4f), используется значение по умолчанию 0.10.", cfg.DefaultCommissionRate)
		cfg.DefaultCommissionRate = 0.10
	}

	switch cfg.DocstoreDriver {
	case "memory":
		logrus.Warn("DOCSTORE_DRIVER=memory: данные не сохраняются между перезапусками.")
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL не установлен")
		}
		parsedURL, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга DATABASE_URL: %w", err)
		}
		cfg.DBHost = parsedURL.Hostname()
		cfg.DBPort = parsedURL.Port()
		if cfg.DBPort == "" {
			cfg.DBPort = "5432"
		}
		cfg.DBName = strings.TrimPrefix(parsedURL.Path, "/")
	default:
		return nil, fmt.Errorf("неизвестный DOCSTORE_DRIVER: %q", cfg.DocstoreDriver)
	}

	if cfg.TelegramToken == "" {
		logrus.Warn("TELEGRAM_APITOKEN не установлен. Уведомления в Telegram отключены.")
	}
	if cfg.SMTPHost == "" {
		logrus.Warn("SMTP_HOST не установлен. Email-уведомления отключены.")
	}
	if cfg.AMQPURL == "" {
		logrus.Warn("AMQP_URL не установлен. События заказов не публикуются.")
	}

	return cfg, nil
}

// IsDev сообщает, запущено ли приложение в режиме разработки.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}
