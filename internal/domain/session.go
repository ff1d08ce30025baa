package domain

// SessionState represents the lifecycle state of a session
type SessionState string

const (
	SessionStateEmpty     SessionState = "empty"
	SessionStateIngesting SessionState = "ingesting"
	SessionStateReady     SessionState = "ready"
	SessionStateFailed    SessionState = "failed"
)

// CanTransition reports whether a session may move from one state to another.
func CanTransition(from, to SessionState) bool {
	switch from {
	case SessionStateEmpty:
		return to == SessionStateIngesting
	case SessionStateIngesting:
		return to == SessionStateReady || to == SessionStateFailed || to == SessionStateEmpty || to == SessionStateIngesting
	case SessionStateReady:
		return to == SessionStateIngesting || to == SessionStateEmpty
	case SessionStateFailed:
		return to == SessionStateEmpty || to == SessionStateReady
	}
	return false
}

