package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// IndexProvider supplies a fresh retrieval index.
type IndexProvider interface {
	Current(ctx context.Context) (*domain.RetrievalIndex, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Result is the retrieved context for a query: the top chunks in
// descending relevance, plus their source tags deduplicated in
// first-seen order.
type Result struct {
	Chunks  []domain.Chunk
	Sources []string
}

// Service maps a query to the most relevant indexed context.
type Service struct {
	index IndexProvider
	embed Embedder
	topK  int
}

// New creates a retriever that returns at most topK chunks per query.
func New(index IndexProvider, embed Embedder, topK int) *Service {
	if topK < 1 {
		topK = 1
	}
	return &Service{index: index, embed: embed, topK: topK}
}

// Retrieve embeds the query and returns the top-K chunks by cosine
// similarity. An empty index yields an empty result, not an error, and
// skips the query embedding entirely.
func (s *Service) Retrieve(ctx context.Context, query string) (Result, error) {
	idx, err := s.index.Current(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("get index: %w", err)
	}
	if idx.Len() == 0 {
		return Result{}, nil
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, 0, idx.Len())
	for i, ec := range idx.Chunks() {
		candidates = append(candidates, scored{pos: i, score: cosine(embResult.Embedding, ec.Vector())})
	}
	// Stable sort keeps index order among equal scores deterministic.
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	k := s.topK
	if k > len(candidates) {
		k = len(candidates)
	}

	chunks := make([]domain.Chunk, 0, k)
	var sources []string
	seen := make(map[string]struct{}, k)
	all := idx.Chunks()
	for _, c := range candidates[:k] {
		chunk := all[c.pos].Chunk()
		chunks = append(chunks, chunk)
		if _, ok := seen[chunk.SourceTag()]; !ok {
			seen[chunk.SourceTag()] = struct{}{}
			sources = append(sources, chunk.SourceTag())
		}
	}
	return Result{Chunks: chunks, Sources: sources}, nil
}

// cosine computes cosine similarity in float64 for precision. A zero
// vector on either side scores 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
