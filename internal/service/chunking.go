package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/videochat/internal/domain"
)

// ChunkConfig controls how transcripts are split into passages.
type ChunkConfig struct {
	MaxChars int
	Overlap  int
}

// DefaultChunkConfig provides the default passage size and overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars: 1000,
		Overlap:  400,
	}
}

// Normalize fills in defaults and caps an overlap that is not smaller than
// MaxChars at MaxChars/2.
func (c ChunkConfig) Normalize() ChunkConfig {
	if c.MaxChars <= 0 {
		c.MaxChars = DefaultChunkConfig().MaxChars
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.MaxChars {
		c.Overlap = c.MaxChars / 2
	}
	return c
}

type boundary int

const (
	boundaryHard boundary = iota
	boundaryWord
	boundarySentence
	boundaryParagraph
)

// Segment splits text into ordered passages of at most cfg.MaxChars characters.
// Each passage starts exactly cfg.Overlap characters before the previous one
// ends, so passages cover the whole text and neighbours share the same
// overlap. Cuts land on the strongest boundary found in the second half of the
// window: paragraph break, then sentence end, then whitespace, then a hard cut.
//
// Empty and whitespace-only text fail with domain.ErrEmptyTranscript.
func Segment(text string, cfg ChunkConfig) ([]domain.Passage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyTranscript
	}
	cfg = cfg.Normalize()

	runes := []rune(text)
	n := len(runes)

	passages := make([]domain.Passage, 0, n/(cfg.MaxChars-cfg.Overlap)+1)
	start := 0
	for {
		end := n
		if n-start > cfg.MaxChars {
			limit := start + cfg.MaxChars
			floor := start + cfg.Overlap + 1
			if half := start + cfg.MaxChars/2; half > floor {
				floor = half
			}
			end = cutPoint(runes, floor, limit)
		}

		passages = append(passages, domain.Passage{
			Index: len(passages),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if end >= n {
			break
		}
		start = end - cfg.Overlap
	}

	return passages, nil
}

// cutPoint returns the exclusive end in [floor, limit] with the strongest
// boundary, preferring the longest passage among equals.
func cutPoint(runes []rune, floor, limit int) int {
	best, bestKind := limit, boundaryHard
	for c := limit; c >= floor && c >= 1; c-- {
		kind := boundaryAt(runes, c)
		if kind > bestKind {
			best, bestKind = c, kind
			if kind == boundaryParagraph {
				break
			}
		}
	}
	return best
}

// boundaryAt classifies a cut placed just before runes[c].
func boundaryAt(runes []rune, c int) boundary {
	prev := runes[c-1]
	if !unicode.IsSpace(prev) {
		return boundaryHard
	}
	if prev == '\n' {
		if c >= 2 && runes[c-2] == '\n' {
			return boundaryParagraph
		}
		return boundarySentence
	}
	if c >= 2 && isSentenceEnd(runes[c-2]) {
		return boundarySentence
	}
	return boundaryWord
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '؟', '。', '！', '？', '…':
		return true
	}
	return false
}
