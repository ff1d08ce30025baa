package domain

// Passage is a contiguous run of transcript characters used as a retrieval unit.
// Start and End are rune offsets into the transcript, End exclusive.
type Passage struct {
	Index int
	Start int
	End   int
	Text  string
}

// Len returns the passage length in characters.
func (p Passage) Len() int {
	return p.End - p.Start
}

// ScoredPassage is a passage paired with its similarity to a query.
type ScoredPassage struct {
	Passage
	Score float32
}
