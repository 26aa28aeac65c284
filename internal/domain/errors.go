package domain

import "errors"

var (
	// ErrInvalidPrompt signals an empty or malformed chat prompt.
	ErrInvalidPrompt = errors.New("invalid prompt")
	// ErrIndexUnavailable signals that no retrieval index has ever been built successfully.
	ErrIndexUnavailable = errors.New("retrieval index unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrRecordsUnavailable signals that the portfolio record store failed.
	ErrRecordsUnavailable = errors.New("portfolio records unavailable")
)
