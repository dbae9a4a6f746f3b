package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/accounts"
	"marketadmin/internal/activity"
	"marketadmin/internal/api"
	"marketadmin/internal/auth"
	"marketadmin/internal/blob"
	"marketadmin/internal/commission"
	"marketadmin/internal/config"
	"marketadmin/internal/db"
	"marketadmin/internal/docstore"
	"marketadmin/internal/events"
	"marketadmin/internal/invitations"
	"marketadmin/internal/logger"
	"marketadmin/internal/notify"
	"marketadmin/internal/orders"
	"marketadmin/internal/search"
	"marketadmin/internal/sectors"
	"marketadmin/internal/session"
	"marketadmin/internal/shifts"
	"marketadmin/internal/telegram_api"
)

func main() {
	// --- Блок инициализации ---
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	appLog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось настроить журнал: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(cfg, appLog)
	defer closeStore()

	var bot *telegram_api.BotClient
	var messenger invitations.Messenger
	if cfg.TelegramToken != "" {
		bot, err = telegram_api.New(cfg.TelegramToken, cfg.IsDev(), appLog)
		if err != nil {
			appLog.WithError(err).Warn("Telegram недоступен, уведомления оператору отключены")
			bot = nil
		} else {
			messenger = bot
		}
	}

	var publisher events.Publisher = events.Discard{Log: appLog}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.Dial(cfg.AMQPURL, appLog)
		if err != nil {
			appLog.WithError(err).Fatal("Критическая ошибка: не удалось подключиться к брокеру событий")
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	blobs, err := blob.NewLocal(cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Критическая ошибка: не удалось подготовить хранилище файлов")
	}

	loc, err := time.LoadLocation(cfg.ShiftTimezone)
	if err != nil {
		appLog.WithError(err).WithField("timezone", cfg.ShiftTimezone).Warn("Неизвестный часовой пояс, отчеты по сменам в UTC")
		loc = time.UTC
	}

	dispatcher := notify.NewFromConfig(cfg, bot, appLog)
	act := activity.New(store, appLog)
	provider := auth.NewProvider(store, cfg, appLog)
	commissionSvc := commission.NewService(store, publisher, act, cfg, appLog)
	ordersSvc := orders.NewService(orders.Deps{
		Store:          store,
		Publisher:      publisher,
		Notifier:       dispatcher,
		Activity:       act,
		Settler:        commissionSvc,
		Log:            appLog,
		OperatorChatID: cfg.OperatorChatID,
	})

	router := api.NewRouter(api.ApiDependencies{
		Config:      cfg,
		Log:         appLog,
		Auth:        provider,
		Sessions:    session.NewManager(store, appLog),
		Orders:      ordersSvc,
		Commission:  commissionSvc,
		Shifts:      shifts.NewService(store, appLog, loc),
		Invitations: invitations.NewService(store, blobs, messenger, act, cfg, appLog),
		Accounts:    accounts.NewService(store, provider, dispatcher, act, cfg, appLog),
		Search:      search.NewService(store, appLog),
		Sectors:     sectors.NewService(store, act, appLog),
		Activity:    act,
		Blobs:       blobs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запускаем HTTP-сервер в отдельной горутине
	go func() {
		appLog.Infof("Запуск HTTP-сервера консоли на порту %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Fatal("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер")
		}
	}()

	<-ctx.Done()
	appLog.Info("Получен сигнал остановки, завершаем работу...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Warn("HTTP-сервер остановлен с ошибкой")
	}
	// Дожидаемся фоновых уведомлений по заказам.
	ordersSvc.Wait()
	appLog.Info("Сервер остановлен")
}

// openStore открывает хранилище документов по DOCSTORE_DRIVER.
func openStore(cfg *config.Config, log *logrus.Logger) (docstore.Store, func()) {
	if cfg.DocstoreDriver == "memory" {
		return docstore.NewMemory(), func() {}
	}
	pg, err := db.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Критическая ошибка: не удалось подключиться к базе данных")
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия соединения с базой данных")
		}
	}
}
