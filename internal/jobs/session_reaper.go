package jobs

import (
	"context"
	"log"
	"time"
)

// IdleEvicter removes sessions that have been idle for longer than a TTL.
type IdleEvicter interface {
	EvictIdle(now time.Time, ttl time.Duration) []string
}

// SessionReaper evicts idle sessions so abandoned transcripts and indexes do
// not accumulate in memory.
type SessionReaper struct {
	sessions IdleEvicter
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionReaper creates a new SessionReaper instance
func NewSessionReaper(sessions IdleEvicter, ttl time.Duration) *SessionReaper {
	return &SessionReaper{
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Name implements Task.
func (r *SessionReaper) Name() string {
	return "session-reaper"
}

// Run implements Task.
func (r *SessionReaper) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	evicted := r.sessions.EvictIdle(r.now(), r.ttl)
	if len(evicted) > 0 {
		log.Printf("session-reaper: evicted %d idle sessions: %v", len(evicted), evicted)
	}
	return nil
}
