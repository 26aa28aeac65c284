package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/eldadyikne/portfolio-agent/internal/domain"
)

// systemPromptFormat is the agent persona. The retrieved context is
// embedded verbatim where %s appears; the model is instructed to say it
// has no information rather than invent answers outside that context.
const systemPromptFormat = `אתה עוזר אישי חכם של אלדד יקנה (Eldad Yikne).
אתה עונה על שאלות בעברית בלבד.
יש לך גישה למידע מקבצי PDF, פרויקטים, כישורים וניסיון תעסוקתי של אלדד.

השתמש במידע הבא כדי לענות על השאלות:

%s

הנחיות:
- אם המידע לא נמצא בקורות הנתונים, אמור "אין לי מידע על כך בנתונים שלי"
- ענה בצורה מקצועית וידידותית
- הדגש את היכולות והניסיון של אלדד
- הדגש כי אתה הסוכן האישי של אלדד ואתה שמח לעזור לתת מידע על אלדד
- אם שואלים על פרויקטים - תן פרטים על הפרויקטים כולל טכנולוגיות וקישורים
- אם שואלים על כישורים - ציין את רמת המיומנות
- אם שואלים על ניסיון - תן פרטים על החברות, התפקידים וההישגים`

// Completion is a whole synthesized answer with its sources.
type Completion struct {
	Answer  string
	Sources []string
}

// Service composes a grounded prompt from retrieved context and runs it
// through the completion provider.
type Service struct {
	retriever Retriever
	completer Completer
}

// New creates an answer synthesizer.
func New(retriever Retriever, completer Completer) *Service {
	return &Service{retriever: retriever, completer: completer}
}

// Complete produces the whole answer in one call.
func (s *Service) Complete(ctx context.Context, prompt string) (Completion, error) {
	prompt, err := validatePrompt(prompt)
	if err != nil {
		return Completion{}, err
	}

	res, err := s.retriever.Retrieve(ctx, prompt)
	if err != nil {
		return Completion{}, fmt.Errorf("retrieve context: %w", err)
	}

	text, err := s.completer.Complete(ctx, groundedSystemPrompt(res.Chunks), prompt)
	if err != nil {
		return Completion{}, fmt.Errorf("complete: %w", err)
	}
	return Completion{Answer: text, Sources: res.Sources}, nil
}

// Stream produces the answer incrementally. onSources is called exactly
// once, before any delta; onDelta is called once per text increment. A
// non-nil error from either callback aborts the stream.
func (s *Service) Stream(
	ctx context.Context,
	prompt string,
	onSources func(sources []string) error,
	onDelta func(delta string) error,
) error {
	prompt, err := validatePrompt(prompt)
	if err != nil {
		return err
	}

	res, err := s.retriever.Retrieve(ctx, prompt)
	if err != nil {
		return fmt.Errorf("retrieve context: %w", err)
	}
	if err := onSources(res.Sources); err != nil {
		return err
	}

	if err := s.completer.StreamComplete(ctx, groundedSystemPrompt(res.Chunks), prompt, onDelta); err != nil {
		return fmt.Errorf("stream completion: %w", err)
	}
	return nil
}

func validatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", domain.ErrInvalidPrompt
	}
	return prompt, nil
}

func groundedSystemPrompt(chunks []domain.Chunk) string {
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text())
	}
	return fmt.Sprintf(systemPromptFormat, strings.Join(texts, "\n\n"))
}
