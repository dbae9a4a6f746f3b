package docstore

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Lookup достает значение по пути через точку.
func Lookup(doc Document, path string) (any, bool) {
	var cur any = map[string]any(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// JSONValue приводит значение фильтра к виду, в котором оно хранится в документе.
func JSONValue(v any) any {
	switch t := v.(type) {
	case nil, string, float64, bool:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// Matches проверяет документ на все фильтры запроса.
func Matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matchFilter(doc, f) {
			return false
		}
	}
	return true
}

func matchFilter(doc Document, f Filter) bool {
	v, ok := Lookup(doc, f.Field)
	want := JSONValue(f.Value)
	switch f.Op {
	case OpEq:
		return ok && compare(v, want) == 0
	case OpNeq:
		return !ok || compare(v, want) != 0
	case OpGte:
		return ok && v != nil && sameKind(v, want) && compare(v, want) >= 0
	case OpLte:
		return ok && v != nil && sameKind(v, want) && compare(v, want) <= 0
	case OpIn:
		list, isList := want.([]any)
		if !ok || !isList {
			return false
		}
		for _, candidate := range list {
			if compare(v, candidate) == 0 {
				return true
			}
		}
		return false
	}
	return false
}

func sameKind(a, b any) bool {
	switch a.(type) {
	case float64:
		_, ok := b.(float64)
		return ok
	case string:
		_, ok := b.(string)
		return ok
	case bool:
		_, ok := b.(bool)
		return ok
	}
	return false
}

// compare упорядочивает значения JSON: nil < bool < числа < строки.
// Строки, которые обе разбираются как RFC3339, сравниваются как время.
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch x := a.(type) {
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y := b.(string)
		if tx, err := time.Parse(time.RFC3339Nano, x); err == nil {
			if ty, err := time.Parse(time.RFC3339Nano, y); err == nil {
				return tx.Compare(ty)
			}
		}
		return strings.Compare(x, y)
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 4
}

// Apply фильтрует, сортирует и обрезает документы по запросу.
// Документы без поля сортировки идут в конце. При равенстве - по id.
func Apply(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if Matches(doc, q.Filters) {
			out = append(out, doc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy != "" {
			vi, oki := Lookup(out[i], q.OrderBy)
			vj, okj := Lookup(out[j], q.OrderBy)
			if oki != okj {
				return oki
			}
			if c := compare(vi, vj); c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return out[i].ID() < out[j].ID()
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
