package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// Source tags for the structured collections. Document units use the
// file name as their tag.
const (
	SourceProjects    = "records:projects"
	SourceSkills      = "records:skills"
	SourceExperiences = "records:workExperience"
)

// Loader produces the full, current set of content units from every
// configured source: PDF files in a docs directory plus the structured
// portfolio collections.
type Loader struct {
	docsDir   string
	extractor PageExtractor
	records   RecordsSource
	logger    *zap.Logger
}

// NewLoader creates a content loader.
func NewLoader(docsDir string, extractor PageExtractor, records RecordsSource, logger *zap.Logger) *Loader {
	return &Loader{
		docsDir:   docsDir,
		extractor: extractor,
		records:   records,
		logger:    logger,
	}
}

// Load runs the document and structured loaders concurrently and
// concatenates their units. Individual source failures are logged and
// skipped; Load itself fails only on context cancellation.
func (l *Loader) Load(ctx context.Context) ([]domain.ContentUnit, error) {
	var docUnits, recordUnits []domain.ContentUnit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docUnits = l.LoadDocumentSources(gctx)
		return gctx.Err()
	})
	g.Go(func() error {
		recordUnits = l.LoadStructuredSources(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	return append(docUnits, recordUnits...), nil
}

// LoadDocumentSources scans the docs directory for PDF files and emits
// one unit per extracted page, tagged with the file name. An unreadable
// file is skipped with a warning, never a hard failure.
func (l *Loader) LoadDocumentSources(ctx context.Context) []domain.ContentUnit {
	entries, err := os.ReadDir(l.docsDir)
	if err != nil {
		l.logger.Warn("Failed to read docs directory",
			zap.String("dir", l.docsDir), zap.Error(err))
		return nil
	}

	var units []domain.ContentUnit
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		pages, err := l.extractor.ExtractPages(ctx, filepath.Join(l.docsDir, entry.Name()))
		if err != nil {
			l.logger.Warn("Skipping unreadable document",
				zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		for _, page := range pages {
			if strings.TrimSpace(page) == "" {
				continue
			}
			unit, err := domain.NewContentUnit(page, entry.Name())
			if err != nil {
				continue
			}
			units = append(units, unit)
		}
	}
	return units
}

// LoadStructuredSources fetches each portfolio collection and serializes
// it into one unit per collection. Collections fail independently: a
// fetch error is logged and that collection contributes zero units.
func (l *Loader) LoadStructuredSources(ctx context.Context) []domain.ContentUnit {
	var units []domain.ContentUnit

	if projects, err := l.records.Projects(ctx, false); err != nil {
		l.logger.Warn("Failed to load projects", zap.Error(err))
	} else if len(projects) > 0 {
		if unit, err := domain.NewContentUnit(formatProjects(projects), SourceProjects); err == nil {
			units = append(units, unit)
		}
	}

	if skills, err := l.records.Skills(ctx, false); err != nil {
		l.logger.Warn("Failed to load skills", zap.Error(err))
	} else if len(skills) > 0 {
		if unit, err := domain.NewContentUnit(formatSkills(skills), SourceSkills); err == nil {
			units = append(units, unit)
		}
	}

	if experiences, err := l.records.Experiences(ctx, false); err != nil {
		l.logger.Warn("Failed to load work experience", zap.Error(err))
	} else if len(experiences) > 0 {
		if unit, err := domain.NewContentUnit(formatExperiences(experiences), SourceExperiences); err == nil {
			units = append(units, unit)
		}
	}

	return units
}

// DocumentParagraphs returns the paragraph corpus of every document
// source. The realtime agent's search tool serves this corpus whole;
// files are re-read on every call rather than cached.
func (l *Loader) DocumentParagraphs(ctx context.Context) []string {
	var out []string
	for _, u := range l.LoadDocumentSources(ctx) {
		out = append(out, Paragraphs(u.Text())...)
	}
	return out
}

// formatProjects serializes projects as labeled Hebrew text, one block
// per project.
func formatProjects(projects []domain.Project) string {
	blocks := make([]string, 0, len(projects))
	for _, p := range projects {
		var b strings.Builder
		fmt.Fprintf(&b, "פרויקט: %s\n", p.Title)
		fmt.Fprintf(&b, "תיאור: %s\n", p.Description)
		if p.LongDescription != "" {
			fmt.Fprintf(&b, "תיאור מורחב: %s\n", p.LongDescription)
		}
		fmt.Fprintf(&b, "טכנולוגיות: %s\n", strings.Join(p.TechStack, ", "))
		fmt.Fprintf(&b, "קטגוריה: %s", p.Category)
		if p.LiveURL != "" {
			fmt.Fprintf(&b, "\nקישור לאתר: %s", p.LiveURL)
		}
		if p.GithubURL != "" {
			fmt.Fprintf(&b, "\nקישור לגיטהאב: %s", p.GithubURL)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// formatSkills groups skills by category and lists each with its
// proficiency level.
func formatSkills(skills []domain.Skill) string {
	grouped := make(map[string][]domain.Skill)
	var order []string
	for _, s := range skills {
		if _, seen := grouped[s.Category]; !seen {
			order = append(order, s.Category)
		}
		grouped[s.Category] = append(grouped[s.Category], s)
	}

	blocks := make([]string, 0, len(order))
	for _, category := range order {
		names := make([]string, 0, len(grouped[category]))
		for _, s := range grouped[category] {
			names = append(names, fmt.Sprintf("%s (רמה: %d%%)", s.Name, s.Proficiency))
		}
		blocks = append(blocks, fmt.Sprintf("קטגוריה: %s\nכישורים: %s", category, strings.Join(names, ", ")))
	}
	return strings.Join(blocks, "\n\n")
}

// formatExperiences serializes work experience, one block per position.
// An open-ended position renders "היום" as its end date.
func formatExperiences(experiences []domain.WorkExperience) string {
	blocks := make([]string, 0, len(experiences))
	for _, e := range experiences {
		end := e.EndDate
		if end == "" {
			end = "היום"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "חברה: %s\n", e.Company)
		fmt.Fprintf(&b, "תפקיד: %s\n", e.Role)
		fmt.Fprintf(&b, "תקופה: %s - %s\n", e.StartDate, end)
		fmt.Fprintf(&b, "תיאור: %s", e.Description)
		if len(e.Achievements) > 0 {
			fmt.Fprintf(&b, "\nהישגים: %s", strings.Join(e.Achievements, ", "))
		}
		fmt.Fprintf(&b, "\nטכנולוגיות: %s", strings.Join(e.Technologies, ", "))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
