package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
	"github.com/eldadyikne/portfolio-agent/internal/metrics"
)

// Store holds the in-memory retrieval index and rebuilds it when it
// goes stale. At most one rebuild runs at a time; concurrent callers
// that find the index stale all wait on the same rebuild.
type Store struct {
	loader      ContentLoader
	chunker     Chunker
	embed       Embedder
	freshness   time.Duration
	concurrency int
	logger      *zap.Logger

	now func() time.Time

	mu       sync.Mutex
	current  *domain.RetrievalIndex
	inflight *rebuild
}

type rebuild struct {
	done chan struct{}
	idx  *domain.RetrievalIndex
	err  error
}

// NewStore creates an index store. freshness is how long a built index
// is served before a rebuild; concurrency bounds parallel embedding
// calls during a rebuild.
func NewStore(
	loader ContentLoader,
	chunker Chunker,
	embed Embedder,
	freshness time.Duration,
	concurrency int,
	logger *zap.Logger,
) *Store {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Store{
		loader:      loader,
		chunker:     chunker,
		embed:       embed,
		freshness:   freshness,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Current returns a fresh index, triggering a rebuild if none exists or
// the current one has aged past the freshness window. If a rebuild
// fails but a previous index exists, the previous index is returned
// instead of an error; domain.ErrIndexUnavailable is returned only when
// no index has ever been built.
func (s *Store) Current(ctx context.Context) (*domain.RetrievalIndex, error) {
	s.mu.Lock()
	if s.current != nil && !s.current.Stale(s.now(), s.freshness) {
		idx := s.current
		s.mu.Unlock()
		return idx, nil
	}
	if s.inflight == nil {
		s.inflight = &rebuild{done: make(chan struct{})}
		go s.run(s.inflight)
	}
	r := s.inflight
	s.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if r.err != nil {
		s.mu.Lock()
		cur := s.current
		s.mu.Unlock()
		if cur != nil {
			s.logger.Warn("Index rebuild failed, serving previous index", zap.Error(r.err))
			return cur, nil
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, r.err)
	}
	return r.idx, nil
}

// Built reports whether any index has ever been built.
func (s *Store) Built() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// run executes one rebuild and publishes the result. It deliberately
// uses a background context: the rebuild is shared between callers, so
// one caller's cancellation must not abort it for the rest.
func (s *Store) run(r *rebuild) {
	ctx := context.Background()
	now := s.now
	start := now()

	idx, err := s.build(ctx, now)

	s.mu.Lock()
	if err == nil {
		s.current = idx
	}
	s.inflight = nil
	s.mu.Unlock()

	r.idx, r.err = idx, err
	close(r.done)

	if err != nil {
		metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
		s.logger.Error("Index rebuild failed", zap.Error(err))
		return
	}
	metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
	metrics.IndexChunks.Set(float64(idx.Len()))
	s.logger.Info("Index rebuilt",
		zap.Int("chunks", idx.Len()),
		zap.Int("dimensions", idx.Dim()),
		zap.Duration("duration", now().Sub(start)))
}

func (s *Store) build(ctx context.Context, now func() time.Time) (*domain.RetrievalIndex, error) {
	units, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}
	chunks := s.chunker.Split(units)

	embedded := make([]domain.EmbeddedChunk, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			result, err := s.embed.Embed(gctx, chunk.Text())
			if err != nil {
				return fmt.Errorf("embed chunk from %s: %w", chunk.SourceTag(), err)
			}
			ec, err := domain.NewEmbeddedChunk(chunk, result.Embedding)
			if err != nil {
				return err
			}
			embedded[i] = ec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx, err := domain.NewRetrievalIndex(embedded, now())
	if err != nil {
		return nil, fmt.Errorf("assemble index: %w", err)
	}
	return &idx, nil
}
