// Package clock provides the game countdown.
package clock

import "fmt"

// State is the countdown lifecycle state.
type State int

// Clock states.
const (
	Idle State = iota
	Running
	Paused
	Expired
	Stopped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Expired:
		return "expired"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Clock is a one-second resolution countdown advanced by an external tick
// source. Each transition that should cancel pending ticks bumps the epoch;
// ticks are matched against it so a stale tick never decrements the time.
type Clock struct {
	state     State
	duration  int
	remaining int
	epoch     int
}

// New returns an idle clock showing duration seconds.
func New(duration int) *Clock {
	if duration < 0 {
		duration = 0
	}
	return &Clock{duration: duration, remaining: duration}
}

// Start begins a countdown of duration seconds. Only idle or stopped clocks
// can start; an expired clock must be reset first.
func (c *Clock) Start(duration int) error {
	if duration <= 0 {
		return fmt.Errorf("timer duration must be > 0, got %d", duration)
	}
	if c.state != Idle && c.state != Stopped {
		return fmt.Errorf("clock is %s", c.state)
	}
	c.duration = duration
	c.remaining = duration
	c.state = Running
	c.epoch++
	return nil
}

// Pause suspends a running countdown.
func (c *Clock) Pause() bool {
	if c.state != Running {
		return false
	}
	c.state = Paused
	c.epoch++
	return true
}

// Resume continues a paused countdown from the remaining time.
func (c *Clock) Resume() bool {
	if c.state != Paused {
		return false
	}
	c.state = Running
	c.epoch++
	return true
}

// Stop freezes the countdown, keeping the remaining time.
func (c *Clock) Stop() {
	if c.state == Running || c.state == Paused {
		c.state = Stopped
		c.epoch++
	}
}

// Reset stops the countdown and shows duration seconds again.
func (c *Clock) Reset(duration int) {
	if duration < 0 {
		duration = 0
	}
	c.duration = duration
	c.remaining = duration
	c.state = Stopped
	c.epoch++
}

// Tick decrements the remaining time by one second when running and epoch is
// current. It reports true exactly once, on the tick that reaches zero.
func (c *Clock) Tick(epoch int) bool {
	if c.state != Running || epoch != c.epoch {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.state = Expired
		c.epoch++
		return true
	}
	return false
}

// State returns the lifecycle state.
func (c *Clock) State() State { return c.state }

// Running reports whether ticks are currently counted.
func (c *Clock) Running() bool { return c.state == Running }

// Remaining returns the seconds left.
func (c *Clock) Remaining() int { return c.remaining }

// Duration returns the seconds the countdown was started or reset with.
func (c *Clock) Duration() int { return c.duration }

// Elapsed returns duration minus remaining.
func (c *Clock) Elapsed() int { return c.duration - c.remaining }

// Epoch identifies the current tick schedule.
func (c *Clock) Epoch() int { return c.epoch }

// Format renders seconds as MM:SS.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
