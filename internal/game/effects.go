package game

import (
	"time"

	"github.com/verte-zerg/escaperoom/internal/model"
)

// Effect is a side effect requested by a transition. The machine never
// performs I/O itself; callers execute effects asynchronously.
type Effect interface {
	effect()
}

// SessionStarted asks for a player record and a new game session.
type SessionStarted struct {
	Generation    int
	Username      string
	TimerDuration int
	StartedAt     time.Time
}

// AttemptSubmitted asks for a stage attempt to be recorded.
type AttemptSubmitted struct {
	Generation  int
	StageID     int64
	StageType   model.StageType
	UserCode    string
	Successful  bool
	HintsUsed   int
	AttemptedAt time.Time
}

// AdvanceScheduled asks for Advance(Generation) to be called after Delay.
type AdvanceScheduled struct {
	Generation int
	Delay      time.Duration
}

// SessionEscaped reports a full completion; it marks the session completed and
// records a leaderboard entry.
type SessionEscaped struct {
	Generation int
	TotalTime  int
	EndedAt    time.Time
}

// SessionTimedOut reports that the clock expired before completion.
type SessionTimedOut struct {
	Generation int
	EndedAt    time.Time
}

func (SessionStarted) effect()   {}
func (AttemptSubmitted) effect() {}
func (AdvanceScheduled) effect() {}
func (SessionEscaped) effect()   {}
func (SessionTimedOut) effect()  {}
