// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"marketadmin/internal/config"
	"marketadmin/internal/docstore"
)

// ChangesChannel - канал LISTEN/NOTIFY, в который триггер пишет имя измененной коллекции.
const ChangesChannel = "docstore_changes"

// Store - хранилище документов поверх PostgreSQL (таблица documents, JSONB).
type Store struct {
	db       *sql.DB
	log      *logrus.Logger
	listener *pq.Listener

	mu    sync.Mutex
	feeds map[string]map[*docstore.Feed]struct{}

	stop chan struct{}
	wg   sync.WaitGroup
}

// Open подключается к базе, выполняет миграции и запускает слушатель изменений.
func Open(cfg *config.Config, log *logrus.Logger) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL не установлена")
	}

	parsedURL, err := url.Parse(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DATABASE_URL: %w", err)
	}
	query := parsedURL.Query()
	if query.Get("sslmode") == "" && cfg.IsDev() {
		query.Set("sslmode", "disable")
	}
	parsedURL.RawQuery = query.Encode()
	dsn := parsedURL.String()

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}
	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(20)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка проверки соединения с базой данных: %w", err)
	}
	log.Info("Успешное подключение к базе данных.")

	s := &Store{
		db:    conn,
		log:   log,
		feeds: make(map[string]map[*docstore.Feed]struct{}),
		stop:  make(chan struct{}),
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ошибка выполнения миграции схемы: %w", err)
	}

	s.listener = pq.NewListener(dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.WithError(err).WithField("event", ev).Warn("Слушатель изменений: ошибка соединения")
		}
	})
	if err := s.listener.Listen(ChangesChannel); err != nil {
		s.listener.Close()
		conn.Close()
		return nil, fmt.Errorf("ошибка подписки на канал %s: %w", ChangesChannel, err)
	}
	s.wg.Add(1)
	go s.listen()

	log.Info("Инициализация хранилища документов успешно завершена.")
	return s, nil
}

// migrate выполняет идемпотентные миграции схемы.
func (s *Store) migrate() error {
	migrations := []struct {
		name string
		sql  string
	}{
		{
			name: "documents.table",
			sql: `CREATE TABLE IF NOT EXISTS documents (
                collection TEXT NOT NULL,
                id TEXT NOT NULL,
                data JSONB NOT NULL,
                created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
                updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
                PRIMARY KEY (collection, id)
            );`,
		},
		{
			name: "documents.indexes",
			sql: `CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
                  CREATE INDEX IF NOT EXISTS idx_documents_collection_created ON documents (collection, created_at DESC);`,
		},
		{
			name: "documents.notify_function",
			sql: `CREATE OR REPLACE FUNCTION documents_notify() RETURNS trigger AS $$
                  BEGIN
                      PERFORM pg_notify('` + ChangesChannel + `', COALESCE(NEW.collection, OLD.collection));
                      RETURN NULL;
                  END;
                  $$ LANGUAGE plpgsql;`,
		},
		{
			name: "documents.notify_trigger",
			sql: `DROP TRIGGER IF EXISTS documents_changed ON documents;
                  CREATE TRIGGER documents_changed AFTER INSERT OR UPDATE OR DELETE ON documents
                  FOR EACH ROW EXECUTE FUNCTION documents_notify();`,
		},
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration.sql); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				s.log.Infof("Миграция '%s' пропущена (объект уже существует): %v", migration.name, err)
				continue
			}
			return fmt.Errorf("ошибка миграции схемы ('%s'): %w", migration.name, err)
		}
		s.log.Debugf("Миграция ('%s') успешно применена.", migration.name)
	}
	return nil
}

// Close останавливает слушатель и закрывает соединение.
func (s *Store) Close() error {
	close(s.stop)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()

	s.mu.Lock()
	for _, feeds := range s.feeds {
		for feed := range feeds {
			feed.Unsubscribe()
		}
	}
	s.mu.Unlock()

	err := s.db.Close()
	s.log.Info("Соединение с базой данных закрыто.")
	return err
}

// listen раздает уведомления подпискам нужной коллекции.
// Пустое уведомление приходит после переподключения: тогда обновляются все подписки.
func (s *Store) listen() {
	defer s.wg.Done()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-s.stop:
			return
		case n, ok := <-s.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				s.notifyAll()
				continue
			}
			s.notify(n.Extra)
		case <-ping.C:
			go func() {
				if err := s.listener.Ping(); err != nil {
					s.log.WithError(err).Warn("Слушатель изменений не отвечает")
				}
			}()
		}
	}
}

func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for feed := range s.feeds[collection] {
		feed.Notify()
	}
}

func (s *Store) notifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, feeds := range s.feeds {
		for feed := range feeds {
			feed.Notify()
		}
	}
}
