package ingest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// Splitter cuts unit text into overlapping windows sized for the
// embedding budget. Cuts prefer paragraph breaks, then line breaks,
// then word boundaries, falling back to a hard cut.
type Splitter struct {
	maxLen  int
	overlap int
}

// NewSplitter creates a splitter. overlap must be smaller than maxLen.
func NewSplitter(maxLen, overlap int) (*Splitter, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", maxLen)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, fmt.Errorf("invalid chunk overlap %d for size %d", overlap, maxLen)
	}
	return &Splitter{maxLen: maxLen, overlap: overlap}, nil
}

// Split chunks every unit, carrying each unit's source tag onto its
// chunks. Chunks never span units. Whitespace-only units produce no
// chunks.
func (s *Splitter) Split(units []domain.ContentUnit) []domain.Chunk {
	var chunks []domain.Chunk
	for _, unit := range units {
		for _, piece := range s.splitText(unit.Text()) {
			chunk, err := domain.NewChunk(piece, unit.SourceTag())
			if err != nil {
				continue
			}
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

func (s *Splitter) splitText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= s.maxLen {
		return []string{text}
	}

	var pieces []string
	start := 0
	for start < len(text) {
		if len(text)-start <= s.maxLen {
			if piece := strings.TrimSpace(text[start:]); piece != "" {
				pieces = append(pieces, piece)
			}
			break
		}

		cut := s.cutPoint(text[start : start+s.maxLen])
		if piece := strings.TrimSpace(text[start : start+cut]); piece != "" {
			pieces = append(pieces, piece)
		}

		next := start + cut - s.overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return pieces
}

// cutPoint finds where to cut within a full-size window. It prefers the
// last paragraph break, then the last newline, then the last space, as
// long as the break lands in the second half of the window; otherwise
// it hard-cuts at the window edge, backed up to a rune boundary.
func (s *Splitter) cutPoint(window string) int {
	half := len(window) / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(window, sep); idx > half {
			return idx + len(sep)
		}
	}
	cut := len(window)
	for cut > 0 {
		r, size := utf8.DecodeLastRuneInString(window[:cut])
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut--
	}
	if cut == 0 {
		cut = len(window)
	}
	return cut
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Paragraphs splits text on blank lines, dropping empty fragments.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
