package domain

import (
	"errors"
	"fmt"
	"time"
)

// ContentUnit is one normalized block of source text before splitting.
// Immutable once created.
type ContentUnit struct {
	text      string
	sourceTag string
}

// NewContentUnit creates a content unit. The source tag is required.
func NewContentUnit(text, sourceTag string) (ContentUnit, error) {
	if sourceTag == "" {
		return ContentUnit{}, errors.New("content unit: source tag is required")
	}
	return ContentUnit{text: text, sourceTag: sourceTag}, nil
}

// Text returns the unit's body.
func (u ContentUnit) Text() string { return u.text }

// SourceTag returns the origin identifier (file name or logical record group).
func (u ContentUnit) SourceTag() string { return u.sourceTag }

// Chunk is a bounded slice of a ContentUnit's text carrying the parent's source tag.
type Chunk struct {
	text      string
	sourceTag string
}

// NewChunk creates a chunk. Both text and source tag are required.
func NewChunk(text, sourceTag string) (Chunk, error) {
	if text == "" {
		return Chunk{}, errors.New("chunk: text is required")
	}
	if sourceTag == "" {
		return Chunk{}, errors.New("chunk: source tag is required")
	}
	return Chunk{text: text, sourceTag: sourceTag}, nil
}

// Text returns the chunk body.
func (c Chunk) Text() string { return c.text }

// SourceTag returns the parent unit's source tag.
func (c Chunk) SourceTag() string { return c.sourceTag }

// EmbeddedChunk is a chunk plus its vector embedding.
type EmbeddedChunk struct {
	chunk  Chunk
	vector []float32
}

// NewEmbeddedChunk pairs a chunk with its embedding vector.
func NewEmbeddedChunk(chunk Chunk, vector []float32) (EmbeddedChunk, error) {
	if len(vector) == 0 {
		return EmbeddedChunk{}, errors.New("embedded chunk: vector is required")
	}
	return EmbeddedChunk{chunk: chunk, vector: vector}, nil
}

// Chunk returns the underlying chunk.
func (e EmbeddedChunk) Chunk() Chunk { return e.chunk }

// Vector returns the embedding vector. Callers must not mutate it.
func (e EmbeddedChunk) Vector() []float32 { return e.vector }

// RetrievalIndex is the full in-memory set of embedded chunks plus its build
// timestamp. Replaced wholesale on rebuild; readers never see a partial index.
type RetrievalIndex struct {
	chunks  []EmbeddedChunk
	dim     int
	builtAt time.Time
}

// NewRetrievalIndex assembles an index, enforcing constant embedding
// dimensionality across all chunks. An empty index is valid.
func NewRetrievalIndex(chunks []EmbeddedChunk, builtAt time.Time) (RetrievalIndex, error) {
	dim := 0
	for i, ec := range chunks {
		if dim == 0 {
			dim = len(ec.vector)
			continue
		}
		if len(ec.vector) != dim {
			return RetrievalIndex{}, fmt.Errorf(
				"retrieval index: chunk %d has dimension %d, want %d", i, len(ec.vector), dim)
		}
	}
	return RetrievalIndex{chunks: chunks, dim: dim, builtAt: builtAt}, nil
}

// Chunks returns the embedded chunks in original build order.
func (ri RetrievalIndex) Chunks() []EmbeddedChunk { return ri.chunks }

// Len returns the number of embedded chunks.
func (ri RetrievalIndex) Len() int { return len(ri.chunks) }

// Dim returns the embedding dimensionality, 0 for an empty index.
func (ri RetrievalIndex) Dim() int { return ri.dim }

// BuiltAt returns the build timestamp.
func (ri RetrievalIndex) BuiltAt() time.Time { return ri.builtAt }

// Stale reports whether the index has outlived the freshness window.
func (ri RetrievalIndex) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(ri.builtAt) >= window
}
