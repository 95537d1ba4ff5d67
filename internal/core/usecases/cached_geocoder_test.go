package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/priyanshu-3/SkinCare/internal/core/domain"
	"github.com/priyanshu-3/SkinCare/internal/core/usecases"
)

// --- In-memory CacheService ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Tests ---

func TestCachedReverseGeocoder_NearbyReadingHitsCache(t *testing.T) {
	rev := chikkajala()
	cache := newMemCache()
	g := usecases.NewCachedReverseGeocoder(rev, cache, 100, 3600)

	first, err := g.Reverse(context.Background(), 12.97160, 77.59460)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.Reverse(context.Background(), 12.97161, 77.59461)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", rev.calls)
	}
	if first.DisplayName != second.DisplayName {
		t.Errorf("expected cached answer, got %q", second.DisplayName)
	}
	for _, ttl := range cache.ttls {
		if ttl != 3600 {
			t.Errorf("expected ttl 3600, got %d", ttl)
		}
	}
}

func TestCachedReverseGeocoder_DistantReadingMisses(t *testing.T) {
	rev := chikkajala()
	g := usecases.NewCachedReverseGeocoder(rev, newMemCache(), 100, 3600)

	_, _ = g.Reverse(context.Background(), 12.9716, 77.5946)
	_, _ = g.Reverse(context.Background(), 13.2473, 77.7134)
	if rev.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", rev.calls)
	}
}

func TestCachedReverseGeocoder_ErrorsNotCached(t *testing.T) {
	rev := &mockReverseGeocoder{reverseFn: func(context.Context, float64, float64) (*domain.ReverseGeocodeResult, error) {
		return nil, errors.New("503")
	}}
	cache := newMemCache()
	g := usecases.NewCachedReverseGeocoder(rev, cache, 100, 3600)

	if _, err := g.Reverse(context.Background(), 1, 2); err == nil {
		t.Fatal("expected upstream error")
	}
	if len(cache.data) != 0 {
		t.Errorf("expected nothing cached, got %d entries", len(cache.data))
	}
}

func TestCachedReverseGeocoder_NilCache(t *testing.T) {
	rev := chikkajala()
	g := usecases.NewCachedReverseGeocoder(rev, nil, 100, 3600)

	_, _ = g.Reverse(context.Background(), 1, 2)
	_, _ = g.Reverse(context.Background(), 1, 2)
	if rev.calls != 2 {
		t.Errorf("expected passthrough, got %d calls", rev.calls)
	}
}

func TestCachedIPGeolocator(t *testing.T) {
	ip := ipOK("Bengaluru", "Karnataka", "India")
	g := usecases.NewCachedIPGeolocator(ip, newMemCache(), 600)

	for i := 0; i < 3; i++ {
		res, err := g.Lookup(context.Background(), "203.0.113.9")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.City != "Bengaluru" {
			t.Errorf("unexpected city %q", res.City)
		}
	}
	if ip.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", ip.calls)
	}

	// The caller's own address has no stable key.
	_, _ = g.Lookup(context.Background(), "")
	_, _ = g.Lookup(context.Background(), "")
	if ip.calls != 3 {
		t.Errorf("expected own-address lookups to bypass the cache, got %d calls", ip.calls)
	}
}

func TestCachedIPGeolocator_ErrorAnswerNotCached(t *testing.T) {
	ip := &mockIPGeolocator{lookupFn: func(context.Context, string) (*domain.IPGeolocateResult, error) {
		return &domain.IPGeolocateResult{Error: true, Reason: "Reserved IP Address"}, nil
	}}
	g := usecases.NewCachedIPGeolocator(ip, newMemCache(), 600)

	_, _ = g.Lookup(context.Background(), "10.0.0.1")
	_, _ = g.Lookup(context.Background(), "10.0.0.1")
	if ip.calls != 2 {
		t.Errorf("expected error answers to bypass the cache, got %d calls", ip.calls)
	}
}
