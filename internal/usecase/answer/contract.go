package answer

import (
	"context"

	"github.com/eldadyikne/portfolio-agent/internal/usecase/retrieval"
)

// Retriever maps a query to relevant indexed context.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (retrieval.Result, error)
}

// Completer produces chat completions, whole or streamed.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	StreamComplete(ctx context.Context, systemPrompt, userPrompt string, onDelta func(delta string) error) error
}
