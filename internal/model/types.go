// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// StageType identifies how a stage's submissions are checked.
type StageType string

// Known stage types.
const (
	StageCodeFormat      StageType = "code-format"
	StageDebug           StageType = "debug"
	StageGenerateNumbers StageType = "generate-numbers"
	StageDataTransform   StageType = "data-transform"
)

// StageTypes lists every known stage type in display order.
var StageTypes = []StageType{StageCodeFormat, StageDebug, StageGenerateNumbers, StageDataTransform}

// ParseStageType validates a stage type name.
func ParseStageType(s string) (StageType, error) {
	for _, t := range StageTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stage type %q", ErrInvalidInput, s)
}

// Config defines game settings.
type Config struct {
	Username        string
	TimerMinutes    int
	AdvanceDelay    time.Duration
	LeaderboardSize int
}

// TimerSeconds returns the configured countdown in seconds.
func (c Config) TimerSeconds() int {
	return c.TimerMinutes * 60
}

// User is a player identity.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Username length bounds, in runes.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 50
)

// ValidUsername reports whether the trimmed name is within the length bounds.
func ValidUsername(name string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	return n >= MinUsernameLen && n <= MaxUsernameLen
}

// NewUser holds the fields needed to create a user.
type NewUser struct {
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

// Stage is one puzzle definition.
type Stage struct {
	ID          int64     `json:"id"`
	Order       int       `json:"order"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        StageType `json:"type"`
	Challenge   string    `json:"challenge"`
	Solution    string    `json:"solution"`
	Hint        string    `json:"hint"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StageInput holds the fields needed to create a stage.
type StageInput struct {
	Order       int       `json:"order" toml:"order" binding:"required,gt=0"`
	Title       string    `json:"title" toml:"title" binding:"required"`
	Description string    `json:"description" toml:"description" binding:"required"`
	Type        StageType `json:"type" toml:"type" binding:"required,oneof=code-format debug generate-numbers data-transform"`
	Challenge   string    `json:"challenge" toml:"challenge"`
	Solution    string    `json:"solution" toml:"solution"`
	Hint        string    `json:"hint" toml:"hint"`
}

// StagePatch holds optional stage updates. Nil fields are left unchanged.
type StagePatch struct {
	Order       *int       `json:"order" binding:"omitempty,gt=0"`
	Title       *string    `json:"title" binding:"omitempty,min=1"`
	Description *string    `json:"description" binding:"omitempty,min=1"`
	Type        *StageType `json:"type" binding:"omitempty,oneof=code-format debug generate-numbers data-transform"`
	Challenge   *string    `json:"challenge"`
	Solution    *string    `json:"solution"`
	Hint        *string    `json:"hint"`
}

// GameSession is one timed playthrough.
type GameSession struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       *time.Time `json:"endTime,omitempty"`
	Completed     bool       `json:"completed"`
	TotalTime     *int       `json:"totalTime,omitempty"`
	TimerDuration int        `json:"timerDuration"`
}

// NewSession holds the fields needed to create a session.
type NewSession struct {
	UserID        string `json:"userId" binding:"required"`
	TimerDuration int    `json:"timerDuration" binding:"required,gt=0"`
	// StartTime defaults to the time of insertion.
	StartTime time.Time `json:"-"`
}

// SessionUpdate holds optional session updates applied at a terminal transition.
type SessionUpdate struct {
	EndTime   *time.Time `json:"endTime"`
	Completed *bool      `json:"completed"`
	TotalTime *int       `json:"totalTime" binding:"omitempty,gte=0"`
}

// StageAttempt records one submit action.
type StageAttempt struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	StageID     int64     `json:"stageId"`
	UserCode    string    `json:"userCode"`
	Successful  bool      `json:"successful"`
	HintsUsed   int       `json:"hintsUsed"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// NewAttempt holds the fields needed to record an attempt.
type NewAttempt struct {
	SessionID  string `json:"sessionId" binding:"required"`
	StageID    int64  `json:"stageId" binding:"required,gt=0"`
	UserCode   string `json:"userCode"`
	Successful bool   `json:"successful"`
	HintsUsed  int    `json:"hintsUsed" binding:"gte=0"`
	// AttemptedAt defaults to the time of insertion.
	AttemptedAt time.Time `json:"-"`
}

// LeaderboardEntry records one full-game completion.
type LeaderboardEntry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Username       string    `json:"username,omitempty"`
	CompletionTime int       `json:"completionTime"`
	CompletedAt    time.Time `json:"completedAt"`
}

// RankedEntry is a leaderboard entry with its derived rank.
type RankedEntry struct {
	LeaderboardEntry
	Rank int `json:"rank"`
}

// SessionDetail is a session with its attempts in submit order.
type SessionDetail struct {
	GameSession
	Attempts []StageAttempt `json:"attempts"`
}
