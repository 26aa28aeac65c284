package ingest

import (
	"context"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// RecordsSource fetches structured portfolio collections from the data store.
type RecordsSource interface {
	Projects(ctx context.Context, featuredOnly bool) ([]domain.Project, error)
	Skills(ctx context.Context, featuredOnly bool) ([]domain.Skill, error)
	Experiences(ctx context.Context, featuredOnly bool) ([]domain.WorkExperience, error)
}

// PageExtractor extracts per-page text from a document file on disk.
type PageExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}
