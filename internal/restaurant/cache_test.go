package restaurant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingAPI struct {
	lists   int
	toggles int
	records []Record
	err     error
}

func (a *countingAPI) ListRestaurants(_ context.Context, _, _ float64, _, _ int) ([]Record, error) {
	a.lists++
	if a.err != nil {
		return nil, a.err
	}
	return a.records, nil
}

func (a *countingAPI) ToggleLike(_ context.Context, _ string) error {
	a.toggles++
	return a.err
}

var errUpstream = errors.New("upstream down")

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestCacheHitSkipsUpstream(t *testing.T) {
	_, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1", Name: "Com Tam"}}}
	cache := NewCache(api, rdb, time.Minute, "user-1")

	for i := 0; i < 3; i++ {
		records, err := cache.ListRestaurants(context.Background(), 10.77, 106.70, 2, 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(records) != 1 || records[0].Name != "Com Tam" {
			t.Fatalf("unexpected records: %+v", records)
		}
	}
	if api.lists != 1 {
		t.Fatalf("expected one upstream call, got %d", api.lists)
	}
}

func TestCacheKeysArePerPageAndScope(t *testing.T) {
	_, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1"}}}

	a := NewCache(api, rdb, time.Minute, "user-a")
	b := NewCache(api, rdb, time.Minute, "user-b")

	_, _ = a.ListRestaurants(context.Background(), 1, 1, 2, 10)
	_, _ = a.ListRestaurants(context.Background(), 1, 1, 3, 10)
	_, _ = b.ListRestaurants(context.Background(), 1, 1, 2, 10)
	if api.lists != 3 {
		t.Fatalf("expected 3 upstream calls, got %d", api.lists)
	}
}

func TestCacheExpires(t *testing.T) {
	s, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	cache := NewCache(api, rdb, 30*time.Second, "user-1")

	_, _ = cache.ListRestaurants(context.Background(), 1, 1, 2, 10)
	s.FastForward(31 * time.Second)
	_, _ = cache.ListRestaurants(context.Background(), 1, 1, 2, 10)
	if api.lists != 2 {
		t.Fatalf("expected refetch after ttl, got %d calls", api.lists)
	}
}

func TestCacheFirstPageAlwaysUpstream(t *testing.T) {
	s, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	mine := NewCache(api, rdb, time.Minute, "user-1")
	other := NewCache(api, rdb, time.Minute, "user-2")

	_, _ = mine.ListRestaurants(context.Background(), 1, 1, 2, 10)
	_, _ = other.ListRestaurants(context.Background(), 1, 1, 2, 10)
	for i := 0; i < 2; i++ {
		if _, err := mine.ListRestaurants(context.Background(), 1, 1, 1, 10); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if api.lists != 4 {
		t.Fatalf("expected every first page fetched upstream, got %d calls", api.lists)
	}
	if s.Exists(pageKey("user-1", 1, 1, 1, 10)) {
		t.Fatalf("expected first page not cached")
	}
	if s.Exists(pageKey("user-1", 1, 1, 2, 10)) {
		t.Fatalf("expected deeper pages dropped on refresh")
	}
	if !s.Exists(pageKey("user-2", 1, 1, 2, 10)) {
		t.Fatalf("expected other scope kept")
	}
}

func TestCacheToggleLikeInvalidatesScope(t *testing.T) {
	s, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	mine := NewCache(api, rdb, time.Minute, "user-1")
	other := NewCache(api, rdb, time.Minute, "user-2")

	_, _ = mine.ListRestaurants(context.Background(), 1, 1, 2, 10)
	_, _ = mine.ListRestaurants(context.Background(), 1, 1, 3, 10)
	_, _ = other.ListRestaurants(context.Background(), 1, 1, 2, 10)

	if err := mine.ToggleLike(context.Background(), "r-1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if api.toggles != 1 {
		t.Fatalf("expected toggle forwarded")
	}
	if s.Exists(pageKey("user-1", 1, 1, 2, 10)) || s.Exists(pageKey("user-1", 1, 1, 3, 10)) {
		t.Fatalf("expected user-1 pages dropped")
	}
	if !s.Exists(pageKey("user-2", 1, 1, 2, 10)) {
		t.Fatalf("expected user-2 page kept")
	}
}

func TestCacheToggleLikeErrorKeepsPages(t *testing.T) {
	s, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	cache := NewCache(api, rdb, time.Minute, "user-1")
	_, _ = cache.ListRestaurants(context.Background(), 1, 1, 2, 10)

	api.err = errUpstream
	if err := cache.ToggleLike(context.Background(), "r-1"); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !s.Exists(pageKey("user-1", 1, 1, 2, 10)) {
		t.Fatalf("expected page kept after failed toggle")
	}
}

func TestCacheUpstreamErrorNotCached(t *testing.T) {
	s, rdb := newRedis(t)
	api := &countingAPI{err: errUpstream}
	cache := NewCache(api, rdb, time.Minute, "user-1")

	if _, err := cache.ListRestaurants(context.Background(), 1, 1, 2, 10); !errors.Is(err, errUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected nothing cached, got %v", s.Keys())
	}
}

func TestCacheRedisDownFallsThrough(t *testing.T) {
	s, rdb := newRedis(t)
	s.Close()

	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	cache := NewCache(api, rdb, time.Minute, "user-1")
	records, err := cache.ListRestaurants(context.Background(), 1, 1, 1, 10)
	if err != nil || len(records) != 1 {
		t.Fatalf("expected upstream result despite redis outage: %v", err)
	}
	if err := cache.ToggleLike(context.Background(), "r-1"); err != nil {
		t.Fatalf("expected toggle to succeed despite redis outage: %v", err)
	}
}

func TestCacheCorruptEntryRefetches(t *testing.T) {
	s, rdb := newRedis(t)
	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	cache := NewCache(api, rdb, time.Minute, "user-1")

	_ = s.Set(pageKey("user-1", 1, 1, 2, 10), "{broken")
	records, err := cache.ListRestaurants(context.Background(), 1, 1, 2, 10)
	if err != nil || len(records) != 1 || api.lists != 1 {
		t.Fatalf("expected refetch over corrupt entry: %v", err)
	}
}

func TestCacheDisabled(t *testing.T) {
	api := &countingAPI{records: []Record{{ID: "r-1"}}}
	cache := NewCache(api, nil, time.Minute, "user-1")

	_, _ = cache.ListRestaurants(context.Background(), 1, 1, 1, 10)
	_, _ = cache.ListRestaurants(context.Background(), 1, 1, 1, 10)
	if err := cache.ToggleLike(context.Background(), "r-1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if api.lists != 2 || api.toggles != 1 {
		t.Fatalf("expected passthrough, got lists=%d toggles=%d", api.lists, api.toggles)
	}
}
