package index

import (
	"context"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// ContentLoader produces the current full set of content units.
type ContentLoader interface {
	Load(ctx context.Context) ([]domain.ContentUnit, error)
}

// Chunker splits units into embedding-sized chunks.
type Chunker interface {
	Split(units []domain.ContentUnit) []domain.Chunk
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
