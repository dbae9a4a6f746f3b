package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"marketadmin/internal/docstore"
)

// Служебные поля, для которых сортировка и сравнение идут по колонкам таблицы.
var metadataColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения документа %s/%s: %w", collection, id, err)
	}
	return decodeRow(raw)
}

func (s *Store) Find(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	query, args, err := buildFind(q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к коллекции %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа коллекции %s: %w", q.Collection, err)
		}
		doc, err := decodeRow(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по коллекции %s: %w", q.Collection, err)
	}
	return docs, nil
}

func (s *Store) Create(ctx context.Context, collection string, doc docstore.Document) (string, error) {
	stored, err := docstore.Encode(doc)
	if err != nil {
		return "", err
	}
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
	}
	stored["id"] = id
	docstore.Stamp(stored, true)

	raw, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("ошибка кодирования документа %s/%s: %w", collection, id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
         ON CONFLICT (collection, id) DO NOTHING`, collection, id, string(raw))
	if err != nil {
		return "", fmt.Errorf("ошибка создания документа %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", docstore.ErrAlreadyExists
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc docstore.Document) error {
	stored, err := docstore.Encode(doc)
	if err != nil {
		return err
	}
	stored["id"] = id
	if !docstore.HasTime(stored, "createdAt") {
		delete(stored, "createdAt")
	}
	docstore.Stamp(stored, false)

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("ошибка кодирования документа %s/%s: %w", collection, id, err)
	}
	// Без createdAt в новом содержимом сохраняется прежнее значение.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data)
         VALUES ($1, $2, jsonb_build_object('createdAt', to_jsonb(NOW())) || $3::jsonb)
         ON CONFLICT (collection, id) DO UPDATE SET
             data = CASE WHEN $3::jsonb ? 'createdAt' THEN $3::jsonb
                         ELSE $3::jsonb || jsonb_build_object('createdAt', COALESCE(documents.data->'createdAt', to_jsonb(documents.created_at)))
                    END,
             updated_at = NOW()`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("ошибка записи документа %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, fields docstore.Document) error {
	patch, err := docstore.Encode(fields)
	if err != nil {
		return err
	}
	delete(patch, "id")
	docstore.Stamp(patch, false)

	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("ошибка кодирования изменений %s/%s: %w", collection, id, err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
         WHERE collection = $1 AND id = $2`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("ошибка обновления документа %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("ошибка удаления документа %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, h docstore.Handler) (docstore.Subscription, error) {
	if _, _, err := buildFind(q); err != nil {
		return nil, err
	}
	feed := docstore.StartFeed(ctx, q, h, s.Find, s.log)

	s.mu.Lock()
	if s.feeds[q.Collection] == nil {
		s.feeds[q.Collection] = make(map[*docstore.Feed]struct{})
	}
	s.feeds[q.Collection][feed] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-feed.Done()
		s.mu.Lock()
		delete(s.feeds[q.Collection], feed)
		s.mu.Unlock()
	}()
	return feed, nil
}

func decodeRow(raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ошибка декодирования документа: %w", err)
	}
	return doc, nil
}

// buildFind строит SQL для запроса. Значения всегда передаются параметрами,
// пути к полям - массивом text[].
func buildFind(q docstore.Query) (string, []any, error) {
	if q.Collection == "" {
		return "", nil, fmt.Errorf("не указана коллекция запроса")
	}
	var b strings.Builder
	args := []any{q.Collection}
	b.WriteString(`SELECT data FROM documents WHERE collection = $1`)

	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		if f.Field == "" {
			return "", nil, fmt.Errorf("пустое поле в фильтре")
		}
		if column, ok := metadataColumns[f.Field]; ok && (f.Op == docstore.OpGte || f.Op == docstore.OpLte) {
			value, isString := docstore.JSONValue(f.Value).(string)
			if !isString {
				return "", nil, fmt.Errorf("фильтр по %s требует значения времени", f.Field)
			}
			fmt.Fprintf(&b, " AND %s %s %s::timestamptz", column, f.Op, param(value))
			continue
		}

		path := "data #> " + param(pq.Array(strings.Split(f.Field, "."))) + "::text[]"
		switch f.Op {
		case docstore.OpEq:
			raw, err := jsonParam(f.Value)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&b, " AND %s = %s::jsonb", path, param(raw))
		case docstore.OpNeq:
			raw, err := jsonParam(f.Value)
			if err != nil {
				return "", nil, err
			}
			p := param(raw)
			fmt.Fprintf(&b, " AND (%s IS NULL OR %s <> %s::jsonb)", path, path, p)
		case docstore.OpGte, docstore.OpLte:
			raw, err := jsonParam(f.Value)
			if err != nil {
				return "", nil, err
			}
			p := param(raw)
			fmt.Fprintf(&b, " AND jsonb_typeof(%s) = jsonb_typeof(%s::jsonb) AND %s %s %s::jsonb", path, p, path, f.Op, p)
		case docstore.OpIn:
			list, ok := docstore.JSONValue(f.Value).([]any)
			if !ok {
				return "", nil, fmt.Errorf("фильтр in по %s требует списка", f.Field)
			}
			items := make([]string, 0, len(list))
			for _, item := range list {
				raw, err := jsonParam(item)
				if err != nil {
					return "", nil, err
				}
				items = append(items, raw)
			}
			fmt.Fprintf(&b, " AND %s = ANY(%s::jsonb[])", path, param(pq.Array(items)))
		default:
			return "", nil, fmt.Errorf("неизвестная операция фильтра %q", f.Op)
		}
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		if column, ok := metadataColumns[q.OrderBy]; ok {
			fmt.Fprintf(&b, " ORDER BY %s %s, id", column, dir)
		} else {
			order := "data #> " + param(pq.Array(strings.Split(q.OrderBy, "."))) + "::text[]"
			fmt.Fprintf(&b, " ORDER BY %s %s NULLS LAST, id", order, dir)
		}
	} else {
		b.WriteString(" ORDER BY id")
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %s", param(q.Limit))
	}
	return b.String(), args, nil
}

func jsonParam(v any) (string, error) {
	raw, err := json.Marshal(docstore.JSONValue(v))
	if err != nil {
		return "", fmt.Errorf("ошибка кодирования значения фильтра: %w", err)
	}
	return string(raw), nil
}

var _ docstore.Store = (*Store)(nil)
