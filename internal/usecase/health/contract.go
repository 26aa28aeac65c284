package health

import "context"

// DBPinger checks data store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexReader reports whether a retrieval index has been built.
type IndexReader interface {
	Built() bool
}
