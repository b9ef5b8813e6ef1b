// Package game implements the escape room session state machine.
package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/escaperoom/internal/clock"
	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/validate"
)

// DefaultAdvanceDelay is how long a success acknowledgment stays on screen.
const DefaultAdvanceDelay = 1500 * time.Millisecond

var (
	ErrIdentityRequired = errors.New("enter your name before starting the timer")
	ErrInvalidIdentity  = fmt.Errorf("name must be %d to %d characters", model.MinUsernameLen, model.MaxUsernameLen)
	ErrInvalidDuration  = errors.New("timer duration must be a positive number of seconds")
	ErrSessionActive    = errors.New("a game is already in progress; reset it first")
	ErrNoStages         = errors.New("stage catalog is empty")
)

// Phase is the position of a session in the game.
type Phase int

// Phases.
const (
	NotStarted Phase = iota
	AwaitingDiscovery
	ChallengeOpen
	StageCleared
	Escaped
	TimedOut
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not-started"
	case AwaitingDiscovery:
		return "awaiting-discovery"
	case ChallengeOpen:
		return "challenge-open"
	case StageCleared:
		return "stage-cleared"
	case Escaped:
		return "escaped"
	case TimedOut:
		return "timed-out"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether only Reset can leave the phase.
func (p Phase) Terminal() bool {
	return p == Escaped || p == TimedOut
}

// InPlay reports whether a stage is current.
func (p Phase) InPlay() bool {
	return p == AwaitingDiscovery || p == ChallengeOpen || p == StageCleared
}

// NoticeKind classifies the player-facing message.
type NoticeKind int

// Notice kinds.
const (
	NoticeNone NoticeKind = iota
	NoticeInfo
	NoticeSuccess
	NoticeError
	NoticeVictory
)

// Notice is the latest player-facing message.
type Notice struct {
	Kind NoticeKind
	Text string
}

// SubmitResult describes the outcome of a Submit call.
type SubmitResult struct {
	// Accepted is false when the submission was ignored because no challenge
	// was open; nothing is recorded in that case.
	Accepted bool
	Verdict  validate.Verdict
	Effects  []Effect
}

// Option configures a Machine.
type Option func(*Machine)

// WithPlacer sets the hotspot source.
func WithPlacer(p *Placer) Option {
	return func(m *Machine) { m.placer = p }
}

// WithAdvanceDelay sets the display delay before the next stage.
func WithAdvanceDelay(d time.Duration) Option {
	return func(m *Machine) { m.advanceDelay = d }
}

// WithNow sets the time source used to stamp effects.
func WithNow(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// Machine owns the state of one player's game. It is not safe for concurrent
// use; callers serialize transitions on a single event loop.
type Machine struct {
	stages       []model.Stage
	clock        *clock.Clock
	placer       *Placer
	now          func() time.Time
	advanceDelay time.Duration
	duration     int

	phase       Phase
	index       int
	hintsUsed   int
	hintVisible bool
	hotspot     Hotspot
	username    string
	generation  int
	totalTime   int
	notice      Notice
}

// NewMachine builds a machine over stages, ordered by Order, with a configured
// timer of duration seconds.
func NewMachine(stages []model.Stage, duration int, opts ...Option) (*Machine, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	ordered := make([]model.Stage, len(stages))
	copy(ordered, stages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	m := &Machine{
		stages:       ordered,
		clock:        clock.New(duration),
		now:          time.Now,
		advanceDelay: DefaultAdvanceDelay,
		duration:     duration,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.placer == nil {
		m.placer = NewPlacer()
	}
	return m, nil
}

// SetDuration changes the configured timer before a game starts.
func (m *Machine) SetDuration(seconds int) error {
	if seconds <= 0 {
		return ErrInvalidDuration
	}
	if m.phase != NotStarted {
		return ErrSessionActive
	}
	m.duration = seconds
	m.clock.Reset(seconds)
	return nil
}

// Start creates a new session for username and starts the countdown.
func (m *Machine) Start(username string, duration int) ([]Effect, error) {
	if m.phase != NotStarted {
		return nil, ErrSessionActive
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrIdentityRequired
	}
	if !model.ValidUsername(username) {
		return nil, ErrInvalidIdentity
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if err := m.clock.Start(duration); err != nil {
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}
	m.duration = duration
	m.generation++
	m.username = username
	m.index = 0
	m.hintsUsed = 0
	m.hintVisible = false
	m.totalTime = 0
	m.hotspot = m.placer.Place()
	m.phase = AwaitingDiscovery
	m.notice = Notice{Kind: NoticeInfo, Text: "Timer started! Find the glowing object to start the first challenge."}
	return []Effect{SessionStarted{
		Generation:    m.generation,
		Username:      username,
		TimerDuration: duration,
		StartedAt:     m.now(),
	}}, nil
}

// Discover activates the hotspot and opens the current challenge. It reports
// whether the challenge is open afterwards.
func (m *Machine) Discover() bool {
	if m.Paused() {
		return false
	}
	if m.phase == ChallengeOpen {
		return true
	}
	if m.phase != AwaitingDiscovery {
		return false
	}
	m.phase = ChallengeOpen
	m.notice = Notice{Kind: NoticeInfo, Text: fmt.Sprintf("Challenge unlocked! Solve stage %d", m.index+1)}
	return true
}

// ToggleHint shows or hides the hint. Only the hidden to shown transition
// counts as a hint used.
func (m *Machine) ToggleHint() bool {
	if m.Paused() || m.phase != ChallengeOpen {
		return m.hintVisible
	}
	if !m.hintVisible {
		m.hintsUsed++
	}
	m.hintVisible = !m.hintVisible
	return m.hintVisible
}

// Submit checks code against the open challenge. Every accepted submission
// yields an AttemptSubmitted effect, passing or not.
func (m *Machine) Submit(code string) SubmitResult {
	if m.Paused() || m.phase != ChallengeOpen {
		return SubmitResult{}
	}
	stage := m.stages[m.index]
	verdict := validate.CheckStage(stage, code)
	effects := []Effect{AttemptSubmitted{
		Generation:  m.generation,
		StageID:     stage.ID,
		StageType:   stage.Type,
		UserCode:    code,
		Successful:  verdict.Passed(),
		HintsUsed:   m.hintsUsed,
		AttemptedAt: m.now(),
	}}
	if !verdict.Passed() {
		m.notice = Notice{Kind: NoticeError, Text: verdict.Message()}
		return SubmitResult{Accepted: true, Verdict: verdict, Effects: effects}
	}
	if m.index == len(m.stages)-1 {
		effects = append(effects, m.escape())
		return SubmitResult{Accepted: true, Verdict: verdict, Effects: effects}
	}
	m.phase = StageCleared
	m.notice = Notice{Kind: NoticeSuccess, Text: "Correct! Find the next glowing object to continue..."}
	effects = append(effects, AdvanceScheduled{Generation: m.generation, Delay: m.advanceDelay})
	return SubmitResult{Accepted: true, Verdict: verdict, Effects: effects}
}

// Advance moves to the next stage. It is the deferred half of a successful
// submit and does nothing unless generation is still current.
func (m *Machine) Advance(generation int) bool {
	if generation != m.generation || m.phase != StageCleared {
		return false
	}
	m.index++
	m.hintsUsed = 0
	m.hintVisible = false
	m.hotspot = m.placer.Place()
	m.phase = AwaitingDiscovery
	m.notice = Notice{}
	return true
}

// Tick advances the countdown for a tick scheduled under epoch.
func (m *Machine) Tick(epoch int) []Effect {
	if !m.clock.Tick(epoch) {
		return nil
	}
	if !m.phase.InPlay() {
		return nil
	}
	return []Effect{m.expire()}
}

// Pause suspends the countdown. Player actions are ignored while paused.
func (m *Machine) Pause() bool {
	if !m.phase.InPlay() || !m.clock.Pause() {
		return false
	}
	m.notice = Notice{Kind: NoticeInfo, Text: "Timer paused"}
	return true
}

// Resume continues the same session from the remaining time.
func (m *Machine) Resume() bool {
	if !m.phase.InPlay() || !m.clock.Resume() {
		return false
	}
	m.notice = Notice{Kind: NoticeInfo, Text: "Timer resumed"}
	return true
}

// Reset abandons the current session and returns to NotStarted. Pending
// advances and results from the old generation become no-ops.
func (m *Machine) Reset() {
	m.generation++
	m.clock.Reset(m.duration)
	m.phase = NotStarted
	m.index = 0
	m.hintsUsed = 0
	m.hintVisible = false
	m.hotspot = Hotspot{}
	m.totalTime = 0
	m.notice = Notice{}
}

// Warn replaces the notice with an error message, e.g. after a failed write.
func (m *Machine) Warn(text string) {
	m.notice = Notice{Kind: NoticeError, Text: text}
}

// Announce replaces the notice text keeping its kind.
func (m *Machine) Announce(text string) {
	m.notice.Text = text
}

func (m *Machine) escape() Effect {
	m.clock.Stop()
	m.totalTime = m.clock.Elapsed()
	if m.totalTime < 0 {
		m.totalTime = 0
	}
	m.phase = Escaped
	m.hintVisible = false
	m.notice = Notice{Kind: NoticeVictory, Text: fmt.Sprintf("Congratulations! You escaped in %s!", clock.Format(m.totalTime))}
	return SessionEscaped{Generation: m.generation, TotalTime: m.totalTime, EndedAt: m.now()}
}

func (m *Machine) expire() Effect {
	m.clock.Stop()
	m.phase = TimedOut
	m.hintVisible = false
	m.notice = Notice{Kind: NoticeError, Text: "Time's up! You didn't escape in time."}
	return SessionTimedOut{Generation: m.generation, EndedAt: m.now()}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

// Paused reports whether the countdown is paused mid-game.
func (m *Machine) Paused() bool { return m.clock.State() == clock.Paused }

// Stage returns the current stage while a game is in play.
func (m *Machine) Stage() (model.Stage, bool) {
	if !m.phase.InPlay() {
		return model.Stage{}, false
	}
	return m.stages[m.index], true
}

// Stages returns the ordered catalog.
func (m *Machine) Stages() []model.Stage {
	out := make([]model.Stage, len(m.stages))
	copy(out, m.stages)
	return out
}

// StageIndex returns the zero-based current stage.
func (m *Machine) StageIndex() int { return m.index }

// StageCount returns the number of stages.
func (m *Machine) StageCount() int { return len(m.stages) }

// HintsUsed returns the hints revealed for the current stage.
func (m *Machine) HintsUsed() int { return m.hintsUsed }

// HintVisible reports whether the hint is shown.
func (m *Machine) HintVisible() bool { return m.hintVisible }

// Hotspot returns the current hotspot position.
func (m *Machine) Hotspot() Hotspot { return m.hotspot }

// Username returns the player of the latest session.
func (m *Machine) Username() string { return m.username }

// TimeLeft returns the countdown seconds remaining.
func (m *Machine) TimeLeft() int { return m.clock.Remaining() }

// Duration returns the configured timer in seconds.
func (m *Machine) Duration() int { return m.duration }

// TotalTime returns the completion time of an escaped session.
func (m *Machine) TotalTime() int { return m.totalTime }

// Generation identifies the current session; it changes on Start and Reset.
func (m *Machine) Generation() int { return m.generation }

// ClockRunning reports whether ticks are being counted.
func (m *Machine) ClockRunning() bool { return m.clock.Running() }

// ClockEpoch identifies the current tick schedule.
func (m *Machine) ClockEpoch() int { return m.clock.Epoch() }

// Notice returns the latest player-facing message.
func (m *Machine) Notice() Notice { return m.notice }
