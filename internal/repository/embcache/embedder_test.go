package embcache

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eldadyikne/portfolio-agent/internal/db"
	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

type fakeKV struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

type countingEmbedder struct {
	calls int
	vec   []float32
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	c.calls++
	return domain.EmbeddingResult{Embedding: c.vec, TotalTokens: 7}, nil
}

func TestCachedEmbedder_SecondCallHitsCache(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.25, -1.5, 3}}
	kv := newFakeKV()
	c := New(inner, kv, "text-embedding-3-small", 0, nil, zap.NewNop())

	ctx := context.Background()
	first, err := c.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("first Embed: %v", err)
	}
	second, err := c.Embed(ctx, "hello")
	if err != nil {
		t.Fatalf("second Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
	if len(second.Embedding) != len(first.Embedding) {
		t.Fatalf("vector length mismatch: %d vs %d", len(second.Embedding), len(first.Embedding))
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Errorf("vector[%d]: %f != %f", i, first.Embedding[i], second.Embedding[i])
		}
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit reported %d tokens, want 0", second.TotalTokens)
	}
}

func TestCachedEmbedder_DifferentModelsDoNotShareEntries(t *testing.T) {
	kv := newFakeKV()
	innerA := &countingEmbedder{vec: []float32{1}}
	innerB := &countingEmbedder{vec: []float32{2}}
	a := New(innerA, kv, "model-a", 0, nil, zap.NewNop())
	b := New(innerB, kv, "model-b", 0, nil, zap.NewNop())

	ctx := context.Background()
	if _, err := a.Embed(ctx, "same text"); err != nil {
		t.Fatalf("Embed a: %v", err)
	}
	res, err := b.Embed(ctx, "same text")
	if err != nil {
		t.Fatalf("Embed b: %v", err)
	}

	if innerB.calls != 1 {
		t.Errorf("model-b inner called %d times, want 1 (no cross-model reuse)", innerB.calls)
	}
	if res.Embedding[0] != 2 {
		t.Errorf("got vector %v from wrong model's cache", res.Embedding)
	}
}

func TestCachedEmbedder_TTLApplied(t *testing.T) {
	kv := newFakeKV()
	inner := &countingEmbedder{vec: []float32{1}}
	c := New(inner, kv, "m", time.Hour, nil, zap.NewNop())

	if _, err := c.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	found := false
	for _, ttl := range kv.ttls {
		if ttl == time.Hour {
			found = true
		}
	}
	if !found {
		t.Error("expected cached entry to carry the configured TTL")
	}
}
