package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

type fakeIndex struct {
	idx *domain.RetrievalIndex
	err error
}

func (f *fakeIndex) Current(context.Context) (*domain.RetrievalIndex, error) {
	return f.idx, f.err
}

type fixedEmbedder struct {
	vec    []float32
	called bool
}

func (f *fixedEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	f.called = true
	return domain.EmbeddingResult{Embedding: f.vec}, nil
}

func buildIndex(t *testing.T, entries ...struct {
	text, tag string
	vec       []float32
}) *domain.RetrievalIndex {
	t.Helper()
	chunks := make([]domain.EmbeddedChunk, 0, len(entries))
	for _, e := range entries {
		c, err := domain.NewChunk(e.text, e.tag)
		if err != nil {
			t.Fatalf("NewChunk: %v", err)
		}
		ec, err := domain.NewEmbeddedChunk(c, e.vec)
		if err != nil {
			t.Fatalf("NewEmbeddedChunk: %v", err)
		}
		chunks = append(chunks, ec)
	}
	idx, err := domain.NewRetrievalIndex(chunks, time.Now())
	if err != nil {
		t.Fatalf("NewRetrievalIndex: %v", err)
	}
	return &idx
}

type entry = struct {
	text, tag string
	vec       []float32
}

func TestRetrieve_RanksByCosineSimilarity(t *testing.T) {
	idx := buildIndex(t,
		entry{"about cooking", "hobby.pdf", []float32{0, 1, 0}},
		entry{"about go services", "cv.pdf", []float32{1, 0, 0}},
		entry{"about mixed topics", "misc.pdf", []float32{0.7, 0.7, 0}},
	)
	s := New(&fakeIndex{idx: idx}, &fixedEmbedder{vec: []float32{1, 0, 0}}, 2)

	res, err := s.Retrieve(context.Background(), "go services")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(res.Chunks))
	}
	if res.Chunks[0].Text() != "about go services" {
		t.Errorf("top chunk = %q, want the aligned vector", res.Chunks[0].Text())
	}
	if res.Chunks[1].Text() != "about mixed topics" {
		t.Errorf("second chunk = %q", res.Chunks[1].Text())
	}
}

func TestRetrieve_TiesKeepIndexOrder(t *testing.T) {
	idx := buildIndex(t,
		entry{"first", "a", []float32{1, 0}},
		entry{"second", "b", []float32{1, 0}},
		entry{"third", "c", []float32{1, 0}},
	)
	s := New(&fakeIndex{idx: idx}, &fixedEmbedder{vec: []float32{1, 0}}, 3)

	res, err := s.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if res.Chunks[i].Text() != w {
			t.Errorf("chunk %d = %q, want %q", i, res.Chunks[i].Text(), w)
		}
	}
}

func TestRetrieve_DeduplicatesSourcesFirstSeen(t *testing.T) {
	idx := buildIndex(t,
		entry{"one", "cv.pdf", []float32{1, 0}},
		entry{"two", "records:projects", []float32{0.9, 0.1}},
		entry{"three", "cv.pdf", []float32{0.8, 0.2}},
	)
	s := New(&fakeIndex{idx: idx}, &fixedEmbedder{vec: []float32{1, 0}}, 3)

	res, err := s.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	want := []string{"cv.pdf", "records:projects"}
	if len(res.Sources) != len(want) {
		t.Fatalf("sources = %v, want %v", res.Sources, want)
	}
	for i := range want {
		if res.Sources[i] != want[i] {
			t.Errorf("sources[%d] = %q, want %q", i, res.Sources[i], want[i])
		}
	}
}

func TestRetrieve_EmptyIndexReturnsEmptyResultWithoutEmbedding(t *testing.T) {
	idx, err := domain.NewRetrievalIndex(nil, time.Now())
	if err != nil {
		t.Fatalf("NewRetrievalIndex: %v", err)
	}
	embed := &fixedEmbedder{vec: []float32{1}}
	s := New(&fakeIndex{idx: &idx}, embed, 6)

	res, err := s.Retrieve(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Chunks) != 0 || len(res.Sources) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
	if embed.called {
		t.Error("query was embedded against an empty index")
	}
}

func TestRetrieve_IndexErrorPropagates(t *testing.T) {
	s := New(&fakeIndex{err: domain.ErrIndexUnavailable}, &fixedEmbedder{vec: []float32{1}}, 6)

	_, err := s.Retrieve(context.Background(), "q")
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("got %v, want domain.ErrIndexUnavailable", err)
	}
}

func TestRetrieve_KLargerThanIndex(t *testing.T) {
	idx := buildIndex(t, entry{"only", "a", []float32{1}})
	s := New(&fakeIndex{idx: idx}, &fixedEmbedder{vec: []float32{1}}, 6)

	res, err := s.Retrieve(context.Background(), "q")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(res.Chunks) != 1 {
		t.Errorf("got %d chunks, want 1", len(res.Chunks))
	}
}
