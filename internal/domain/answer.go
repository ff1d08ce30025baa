package domain

import "time"

// Answer is the synthesized response to one question together with the
// passages that were supplied as context.
type Answer struct {
	Question string
	Text     string
	Language string
	Context  []ScoredPassage
}

// TurnRole identifies who produced a history entry
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
)

// Turn is one display-only entry of a session's conversation log.
type Turn struct {
	Role    TurnRole
	Content string
	At      time.Time
}
