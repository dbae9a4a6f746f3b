package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Memory - хранилище документов в памяти. Используется в тестах и при DOCSTORE_DRIVER=memory.
type Memory struct {
	mu    sync.RWMutex
	data  map[string]map[string]Document
	feeds map[string]map[*Feed]struct{}
	log   logrus.FieldLogger
}

func NewMemory() *Memory {
	return &Memory{
		data:  make(map[string]map[string]Document),
		feeds: make(map[string]map[*Feed]struct{}),
		log:   logrus.StandardLogger(),
	}
}

// WithLogger задает логгер для ошибок подписок.
func (m *Memory) WithLogger(log logrus.FieldLogger) *Memory {
	m.log = log
	return m
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc)
}

func (m *Memory) Find(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Копии снимаются под блокировкой: фильтры и сортировка работают уже с ними.
	m.mu.RLock()
	all := make([]Document, 0, len(m.data[q.Collection]))
	for _, doc := range m.data[q.Collection] {
		c, err := clone(doc)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		all = append(all, c)
	}
	m.mu.RUnlock()

	return Apply(all, q), nil
}

func (m *Memory) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored, err := clone(doc)
	if err != nil {
		return "", err
	}
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
	}
	stored["id"] = id
	Stamp(stored, true)

	m.mu.Lock()
	if _, exists := m.data[collection][id]; exists {
		m.mu.Unlock()
		return "", ErrAlreadyExists
	}
	m.bucket(collection)[id] = stored
	m.mu.Unlock()

	m.notify(collection)
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, err := clone(doc)
	if err != nil {
		return err
	}
	stored["id"] = id

	m.mu.Lock()
	prev, existed := m.data[collection][id]
	if existed {
		if !HasTime(stored, "createdAt") {
			stored["createdAt"] = prev["createdAt"]
		}
	}
	Stamp(stored, !existed)
	m.bucket(collection)[id] = stored
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Merge(ctx context.Context, collection, id string, fields Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	patch, err := clone(fields)
	if err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok := m.data[collection][id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	// Новый документ вместо правки на месте: ранее выданные ссылки не меняются.
	next := make(Document, len(doc)+len(patch))
	for k, v := range doc {
		next[k] = v
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		next[k] = v
	}
	Stamp(next, false)
	m.data[collection][id] = next
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	_, existed := m.data[collection][id]
	delete(m.data[collection], id)
	m.mu.Unlock()

	if existed {
		m.notify(collection)
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, q Query, h Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed := StartFeed(ctx, q, h, m.Find, m.log)

	m.mu.Lock()
	if m.feeds[q.Collection] == nil {
		m.feeds[q.Collection] = make(map[*Feed]struct{})
	}
	m.feeds[q.Collection][feed] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-feed.Done()
		m.mu.Lock()
		delete(m.feeds[q.Collection], feed)
		m.mu.Unlock()
	}()
	return feed, nil
}

func (m *Memory) bucket(collection string) map[string]Document {
	b, ok := m.data[collection]
	if !ok {
		b = make(map[string]Document)
		m.data[collection] = b
	}
	return b
}

func (m *Memory) notify(collection string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for feed := range m.feeds[collection] {
		feed.Notify()
	}
}

// Stamp проставляет служебные метки времени.
func Stamp(doc Document, created bool) {
	ts := JSONValue(now())
	if created && !HasTime(doc, "createdAt") {
		doc["createdAt"] = ts
	}
	doc["updatedAt"] = ts
}

// HasTime - поле заполнено и не равно нулевому времени.
func HasTime(doc Document, key string) bool {
	s, ok := doc[key].(string)
	if !ok || s == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return err != nil || !t.IsZero()
}

var _ Store = (*Memory)(nil)
