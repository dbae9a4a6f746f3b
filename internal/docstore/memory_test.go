package docstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateGetMerge(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	id, err := store.Create(ctx, "orders", Document{"status": "pending", "total": 50})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.Merge(ctx, "orders", id, Document{"status": "confirmed"}))

	doc, err := store.Get(ctx, "orders", id)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", doc["status"])
	assert.Equal(t, float64(50), doc["total"])
	assert.Equal(t, id, doc.ID())
	assert.NotEmpty(t, doc["createdAt"])

	// Изменение возвращенной копии не должно менять хранимый документ.
	doc["status"] = "hacked"
	again, err := store.Get(ctx, "orders", id)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", again["status"])
}

func TestMemoryCreateDuplicateAndMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.Create(ctx, "commission_records", Document{"id": "o1"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "commission_records", Document{"id": "o1"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = store.Get(ctx, "commission_records", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Merge(ctx, "commission_records", "nope", Document{"a": 1}), ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "commission_records", "nope"))
}

func TestMemoryFindFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	for _, d := range []Document{
		{"id": "a", "businessId": "b1", "period": "2024-05", "total": 10.0},
		{"id": "b", "businessId": "b2", "period": "2024-05", "total": 30.0},
		{"id": "c", "businessId": "b1", "period": "2024-06", "total": 20.0},
		{"id": "d", "businessId": "b3", "period": "2024-05", "total": 5.0},
	} {
		_, err := store.Create(ctx, "records", d)
		require.NoError(t, err)
	}

	docs, err := store.Find(ctx, Query{
		Collection: "records",
		Filters:    []Filter{Where("period", OpEq, "2024-05")},
		OrderBy:    "total",
		Desc:       true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"b", "a", "d"}, ids(docs))

	docs, err = store.Find(ctx, Query{
		Collection: "records",
		Filters: []Filter{
			Where("businessId", OpIn, []string{"b1", "b3"}),
			Where("total", OpGte, 10),
		},
		OrderBy: "total",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(docs))

	docs, err = store.Find(ctx, Query{Collection: "records", Filters: []Filter{Where("businessId", OpNeq, "b1")}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(docs))
}

func TestMemoryNestedFieldFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := store.Create(ctx, "shop_orders", Document{"id": "s1", "shipment": map[string]any{"status": "delivered"}})
	require.NoError(t, err)
	_, err = store.Create(ctx, "shop_orders", Document{"id": "s2"})
	require.NoError(t, err)

	docs, err := store.Find(ctx, Query{Collection: "shop_orders", Filters: []Filter{Where("shipment.status", OpEq, "delivered")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(docs))
}

func TestMemorySubscribeDeliversSnapshotsInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	var mu sync.Mutex
	var seqs []uint64
	var last int
	sub, err := store.Subscribe(ctx, Query{Collection: "orders"}, func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, s.Seq)
		last = len(s.Docs)
	})
	require.NoError(t, err)

	_, err = store.Create(ctx, "orders", Document{"id": "o1"})
	require.NoError(t, err)
	_, err = store.Create(ctx, "orders", Document{"id": "o2"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return last == 2
	}, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	<-sub.(*Feed).Done()
	mu.Lock()
	delivered := len(seqs)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
	mu.Unlock()

	_, err = store.Create(ctx, "orders", Document{"id": "o3"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, delivered, len(seqs))
	mu.Unlock()
}

func TestDecodeNormalizesLegacyFields(t *testing.T) {
	var out struct {
		BusinessID string `json:"businessId"`
		Status     string `json:"status"`
	}
	require.NoError(t, Decode(Document{"id": "x", "butcherId": "b9", "orderStatus": "pending"}, &out))
	assert.Equal(t, "b9", out.BusinessID)
	assert.Equal(t, "pending", out.Status)
}

func ids(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

// Запускать с -race: слияние и чтение одного документа идут параллельно.
func TestMemoryConcurrentMergeAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_, err := store.Create(ctx, "orders", Document{"id": "o1", "status": "pending", "n": 0})
	require.NoError(t, err)

	sub, err := store.Subscribe(ctx, Query{Collection: "orders"}, func(s Snapshot) {
		for _, doc := range s.Docs {
			_ = doc["status"]
		}
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	const rounds = 2000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			assert.NoError(t, store.Merge(ctx, "orders", "o1", Document{"n": i}))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			docs, err := store.Find(ctx, Query{
				Collection: "orders",
				Filters:    []Filter{Where("status", OpNeq, "x")},
			})
			assert.NoError(t, err)
			assert.Len(t, docs, 1)
		}
	}()
	wg.Wait()

	doc, err := store.Get(ctx, "orders", "o1")
	require.NoError(t, err)
	assert.Equal(t, float64(rounds-1), doc["n"])
	assert.Equal(t, "pending", doc["status"])
}
