// Package docstore описывает хранилище документов: коллекции JSON-документов,
// точечное чтение, запросы с фильтрами и живые подписки на результат запроса.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"marketadmin/internal/models"
)

var (
	ErrNotFound      = errors.New("docstore: документ не найден")
	ErrAlreadyExists = errors.New("docstore: документ уже существует")
)

// Document - документ коллекции. Поле "id" всегда совпадает с идентификатором.
type Document map[string]any

// ID возвращает идентификатор документа.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

type Op string

const (
	OpEq  Op = "=="
	OpNeq Op = "!="
	OpGte Op = ">="
	OpLte Op = "<="
	OpIn  Op = "in"
)

// Filter - условие на поле документа. Вложенные поля через точку: "shipment.status".
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query - запрос к одной коллекции. Фильтры объединяются через AND.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Desc       bool
	Limit      int
}

// Snapshot - полный результат запроса на момент доставки.
// Seq монотонно растет в пределах одной подписки.
type Snapshot struct {
	Seq  uint64
	Docs []Document
}

// Handler получает снимки подписки. Должен быть идемпотентным.
type Handler func(Snapshot)

// Subscription - живая подписка на запрос.
// После Unsubscribe новые вызовы обработчика не начинаются; доставка,
// уже начатая в этот момент, может завершиться.
type Subscription interface {
	Unsubscribe()
}

// Store - контракт хранилища документов. Запись одного документа атомарна,
// между документами транзакций нет; побеждает последняя запись.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Find(ctx context.Context, q Query) ([]Document, error)
	// Create добавляет документ; id берется из doc["id"] или генерируется.
	Create(ctx context.Context, collection string, doc Document) (string, error)
	// Set полностью заменяет документ (создает, если его нет).
	Set(ctx context.Context, collection, id string, doc Document) error
	// Merge обновляет поля верхнего уровня существующего документа.
	Merge(ctx context.Context, collection, id string, fields Document) error
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, q Query, h Handler) (Subscription, error)
}

// Encode переводит структуру в документ через JSON.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("docstore: кодирование документа: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("docstore: кодирование документа: %w", err)
	}
	return doc, nil
}

// Decode нормализует старые поля документа и раскладывает его в структуру.
func Decode(doc Document, out any) error {
	models.Normalize(doc)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: декодирование документа %s: %w", doc.ID(), err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("docstore: декодирование документа %s: %w", doc.ID(), err)
	}
	return nil
}

// DecodeAll раскладывает список документов в срез структур.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// clone делает глубокую копию через JSON, приводя значения к JSON-типам
// (числа - float64, время - строка RFC3339).
func clone(doc Document) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	return Encode(doc)
}

func now() time.Time {
	return time.Now().UTC()
}
