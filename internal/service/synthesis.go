package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/cloo-solutions/videochat/internal/domain"
	"github.com/cloo-solutions/videochat/internal/telemetry"
)

// Completer sends a single prompt to a language model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnswerSynthesizer turns a question and its retrieved passages into an Answer.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, question string, passages []domain.ScoredPassage) (*domain.Answer, error)
}

const rewritePromptTemplate = `Rewrite the answer below in %s. Keep its meaning and keep it as bullet points. Reply with the rewritten answer only.

Answer:
%s
`

// Synthesizer builds the answer prompt, calls the model and enforces the
// answer language and bullet formatting on the reply.
type Synthesizer struct {
	completer Completer
	detector  LanguageDetector
	template  PromptTemplate
	retry     RetryPolicy
}

// NewSynthesizer creates a Synthesizer using DefaultPromptTemplate. A nil
// detector disables language enforcement.
func NewSynthesizer(completer Completer, detector LanguageDetector, policy RetryPolicy) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		detector:  detector,
		template:  MustPromptTemplate(DefaultPromptTemplate),
		retry:     policy,
	}
}

// WithTemplate returns a copy of s using tmpl.
func (s *Synthesizer) WithTemplate(tmpl PromptTemplate) *Synthesizer {
	c := *s
	c.template = tmpl
	return &c
}

// Synthesize answers question from passages. The context slot is always
// filled, with an empty string when there are no passages. Model failures
// surface as MODEL_SERVICE_ERROR; an empty reply is never returned.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []domain.ScoredPassage) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	ctx, span := telemetry.StartSpan(ctx, "answer.synthesize", telemetry.SpanAttributes{
		Passages:  len(passages),
		Operation: "answer.synthesize",
	})

	answer, err := s.synthesize(ctx, question, passages)
	span.Finish(err)
	return answer, err
}

func (s *Synthesizer) synthesize(ctx context.Context, question string, passages []domain.ScoredPassage) (*domain.Answer, error) {
	prompt := s.template.Render(question, BuildContext(passages))

	text, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var language string
	if s.detector != nil {
		if want, ok := s.detector.Detect(question); ok {
			language = want.Code
			text = s.enforceLanguage(ctx, text, want)
		}
	}

	return &domain.Answer{
		Question: question,
		Text:     EnsureBullets(text),
		Language: language,
		Context:  append([]domain.ScoredPassage(nil), passages...),
	}, nil
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	text, err := retry(ctx, s.retry, domain.ErrCodeModelService, func(ctx context.Context) (string, error) {
		return s.completer.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewDomainError(domain.ErrCodeModelService, "model returned an empty answer")
	}
	return text, nil
}

// enforceLanguage asks the model to rewrite text in want when text was
// reliably detected in another language. The original text is kept when the
// rewrite fails.
func (s *Synthesizer) enforceLanguage(ctx context.Context, text string, want Language) string {
	got, ok := s.detector.Detect(text)
	if !ok || got.Code == want.Code {
		return text
	}

	log.Printf("synthesizer: answer is in %s, question in %s; requesting rewrite", got.Name, want.Name)
	rewritten, err := s.complete(ctx, fmt.Sprintf(rewritePromptTemplate, want.Name, text))
	if err != nil {
		log.Printf("synthesizer: rewrite failed, keeping original answer: %v", err)
		return text
	}
	return rewritten
}

// EnsureBullets returns text as a bullet list. Text that already contains a
// bulleted or numbered line is returned trimmed; otherwise each line becomes a
// bullet, and a single line is split into one bullet per sentence.
func EnsureBullets(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isListItem(line) {
			return text
		}
		lines = append(lines, line)
	}

	if len(lines) == 1 {
		lines = splitSentences(lines[0])
	}

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(line)
	}
	return b.String()
}

// Emphasize renders each line of text in bold for display, keeping list
// markers outside the emphasis so bullets still render as a list.
func Emphasize(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			lines[i] = ""
			continue
		}
		n := listMarkerLen(line)
		body := strings.TrimSpace(line[n:])
		if body == "" {
			lines[i] = line
			continue
		}
		lines[i] = line[:n] + "**" + body + "**"
	}
	return strings.Join(lines, "\n")
}

func isListItem(line string) bool {
	return listMarkerLen(line) > 0
}

// listMarkerLen returns the byte length of a leading bullet or numbered-list
// marker including its trailing space, or 0.
func listMarkerLen(line string) int {
	for _, marker := range []string{"- ", "* ", "• ", "+ "} {
		if strings.HasPrefix(line, marker) {
			return len(marker)
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return i + 2
	}
	return 0
}

func splitSentences(s string) []string {
	runes := []rune(s)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isSentenceEnd(runes[i]) {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}
