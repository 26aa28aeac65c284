package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFExtractor extracts per-page text from PDF files using pdfcpu.
type PDFExtractor struct {
	tempDir string
}

var _ PageExtractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates an extractor with a scratch directory for
// pdfcpu's file-based content extraction.
func NewPDFExtractor() (*PDFExtractor, error) {
	tempDir := filepath.Join(os.TempDir(), "portfolio-agent-pdf")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pdf temp dir: %w", err)
	}
	return &PDFExtractor{tempDir: tempDir}, nil
}

// ExtractPages returns the text of each page of the PDF at path,
// in page order. Pages with no extractable text come back empty.
func (e *PDFExtractor) ExtractPages(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", filepath.Base(path), err)
	}
	pageCount := pdfCtx.PageCount

	// pdfcpu extracts content to files, one per page, so each run gets
	// its own output directory.
	outDir := filepath.Join(e.tempDir, uuid.NewString())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract pdf content %s: %w", filepath.Base(path), err)
	}

	pageTexts := make(map[int]string, pageCount)
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("read extraction dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
			continue
		}
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	pages := make([]string, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, pageTexts[pageNum])
	}
	return pages, nil
}
