package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/videochat/internal/domain"
)

const (
	questionSlot = "{question}"
	contextSlot  = "{context}"
)

// DefaultPromptTemplate instructs the model to answer from the transcript in
// the question's language, as bullet points, with a friendly fallback.
const DefaultPromptTemplate = `You answer questions about a single video using its transcript. You work in many languages and present information clearly.

Your task:
1. Read the transcript excerpts below carefully.
2. Understand the question in the language it was asked.
3. Answer accurately in the same language as the question: {question}
4. Format the answer as bullet points.
5. If the transcript does not answer the question directly:
   - Stay friendly and invite the user to keep asking.
   - Suggest related topics or questions the transcript can answer briefly.
   - Suggest watching the video for more context.

Guidelines:
- Keep a concise, professional tone.
- Stick to facts from the transcript.
- Keep answers brief.
- Translate accurately and fluently into the question's language.

Question: {question}

Transcript excerpts:
{context}
`

// PromptTemplate is an instruction text with a question slot and a context slot.
type PromptTemplate struct {
	text string
}

// NewPromptTemplate validates that text contains both the {question} and
// {context} slots and no other braced slot names.
func NewPromptTemplate(text string) (PromptTemplate, error) {
	if !strings.Contains(text, questionSlot) {
		return PromptTemplate{}, domain.NewDomainError(domain.ErrCodeInvalidInput, "prompt template is missing {question}")
	}
	if !strings.Contains(text, contextSlot) {
		return PromptTemplate{}, domain.NewDomainError(domain.ErrCodeInvalidInput, "prompt template is missing {context}")
	}

	rest := strings.NewReplacer(questionSlot, "", contextSlot, "").Replace(text)
	if slot, ok := findSlot(rest); ok {
		return PromptTemplate{}, domain.NewDomainError(domain.ErrCodeInvalidInput,
			fmt.Sprintf("prompt template has unknown slot %s", slot))
	}

	return PromptTemplate{text: text}, nil
}

// MustPromptTemplate is like NewPromptTemplate but panics on error.
func MustPromptTemplate(text string) PromptTemplate {
	t, err := NewPromptTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Render substitutes question and context in a single pass, so slot names
// inside the substituted text are left alone.
func (t PromptTemplate) Render(question, context string) string {
	return strings.NewReplacer(questionSlot, question, contextSlot, context).Replace(t.text)
}

// Text returns the raw template.
func (t PromptTemplate) Text() string {
	return t.text
}

// BuildContext joins passage texts in retrieval order, separated by blank lines.
func BuildContext(passages []domain.ScoredPassage) string {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, strings.TrimSpace(p.Text))
	}
	return strings.Join(texts, "\n\n")
}

// findSlot reports the first {identifier} left in s.
func findSlot(s string) (string, bool) {
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			return "", false
		}
		end := strings.IndexByte(s[open:], '}')
		if end < 0 {
			return "", false
		}
		name := s[open+1 : open+end]
		if isIdentifier(name) {
			return s[open : open+end+1], true
		}
		s = s[open+1:]
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
