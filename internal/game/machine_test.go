package game

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/validate"
)

func testStages() []model.Stage {
	return []model.Stage{
		{ID: 12, Order: 2, Type: model.StageDebug, Title: "debug", Solution: "a + b"},
		{ID: 11, Order: 1, Type: model.StageCodeFormat, Title: "format", Solution: "function hello() {\n  console.log(\"Hello\");\n  return true;\n}"},
		{ID: 13, Order: 3, Type: model.StageDataTransform, Title: "json", Solution: `{"a":1}`},
	}
}

func newTestMachine(t *testing.T, duration int) *Machine {
	t.Helper()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m, err := NewMachine(testStages(), duration,
		WithPlacer(NewSeededPlacer(7)),
		WithNow(func() time.Time { return fixed }),
		WithAdvanceDelay(time.Second),
	)
	require.NoError(t, err)
	return m
}

func tickN(m *Machine, n int) []Effect {
	var effects []Effect
	for i := 0; i < n; i++ {
		effects = append(effects, m.Tick(m.ClockEpoch())...)
	}
	return effects
}

func solveCurrent(t *testing.T, m *Machine) SubmitResult {
	t.Helper()
	require.True(t, m.Discover())
	st, ok := m.Stage()
	require.True(t, ok)
	res := m.Submit(st.Solution)
	require.True(t, res.Accepted)
	require.Equal(t, validate.Passed, res.Verdict)
	return res
}

func TestNewMachineRequiresStagesAndDuration(t *testing.T) {
	_, err := NewMachine(nil, 60)
	assert.ErrorIs(t, err, ErrNoStages)
	_, err = NewMachine(testStages(), 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestStagesAreOrdered(t *testing.T) {
	m := newTestMachine(t, 60)
	stages := m.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, []int64{11, 12, 13}, []int64{stages[0].ID, stages[1].ID, stages[2].ID})
}

func TestStartRequiresIdentity(t *testing.T) {
	m := newTestMachine(t, 60)
	effects, err := m.Start("   ", 60)
	assert.ErrorIs(t, err, ErrIdentityRequired)
	assert.Empty(t, effects)
	assert.Equal(t, NotStarted, m.Phase())
	assert.False(t, m.ClockRunning())

	_, err = m.Start("ada", 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestStartRejectsNamesOutsideLengthBounds(t *testing.T) {
	for _, name := range []string{"Al", " Al ", strings.Repeat("n", model.MaxUsernameLen+1)} {
		m := newTestMachine(t, 60)
		effects, err := m.Start(name, 60)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "name %q", name)
		assert.Empty(t, effects)
		assert.Equal(t, NotStarted, m.Phase())
	}
	for _, name := range []string{"Ada", strings.Repeat("é", model.MaxUsernameLen)} {
		m := newTestMachine(t, 60)
		_, err := m.Start(name, 60)
		require.NoError(t, err, "name %q", name)
	}
}

func TestStartEmitsSessionAndPlacesHotspot(t *testing.T) {
	m := newTestMachine(t, 60)
	effects, err := m.Start("ada", 120)
	require.NoError(t, err)
	require.Len(t, effects, 1)
	started, ok := effects[0].(SessionStarted)
	require.True(t, ok)
	assert.Equal(t, "ada", started.Username)
	assert.Equal(t, 120, started.TimerDuration)
	assert.Equal(t, m.Generation(), started.Generation)

	assert.Equal(t, AwaitingDiscovery, m.Phase())
	assert.Equal(t, 120, m.TimeLeft())
	h := m.Hotspot()
	assert.True(t, h.X >= 15 && h.X <= 85, "x=%v", h.X)
	assert.True(t, h.Y >= 20 && h.Y <= 80, "y=%v", h.Y)

	_, err = m.Start("ada", 120)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestSubmitIgnoredUntilDiscovered(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)

	res := m.Submit("anything")
	assert.False(t, res.Accepted)
	assert.Empty(t, res.Effects)

	require.True(t, m.Discover())
	require.True(t, m.Discover(), "discover is idempotent")
	assert.Equal(t, ChallengeOpen, m.Phase())
}

func TestFailedSubmitRecordsAttemptAndStaysOpen(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)
	require.True(t, m.Discover())

	res := m.Submit("function hello(){}")
	require.True(t, res.Accepted)
	assert.Equal(t, validate.Incorrect, res.Verdict)
	require.Len(t, res.Effects, 1)
	attempt := res.Effects[0].(AttemptSubmitted)
	assert.False(t, attempt.Successful)
	assert.Equal(t, int64(11), attempt.StageID)
	assert.Equal(t, ChallengeOpen, m.Phase())
	assert.Equal(t, NoticeError, m.Notice().Kind)
}

func TestMalformedJSONHasDistinctMessage(t *testing.T) {
	m := newTestMachine(t, 600)
	_, err := m.Start("ada", 600)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		res := solveCurrent(t, m)
		adv := res.Effects[1].(AdvanceScheduled)
		require.True(t, m.Advance(adv.Generation))
	}
	require.True(t, m.Discover())
	res := m.Submit("{not json")
	assert.Equal(t, validate.MalformedJSON, res.Verdict)
	require.Len(t, res.Effects, 1)
	assert.False(t, res.Effects[0].(AttemptSubmitted).Successful)
	assert.Contains(t, m.Notice().Text, "JSON")
}

func TestHintToggleCountsOncePerReveal(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)

	m.ToggleHint()
	assert.Equal(t, 0, m.HintsUsed(), "hint needs an open challenge")

	require.True(t, m.Discover())
	assert.True(t, m.ToggleHint())
	assert.False(t, m.ToggleHint())
	assert.Equal(t, 1, m.HintsUsed())

	assert.True(t, m.ToggleHint())
	assert.Equal(t, 2, m.HintsUsed())

	res := m.Submit("wrong")
	assert.Equal(t, 2, res.Effects[0].(AttemptSubmitted).HintsUsed)
}

func TestPassAdvancesAfterDeferredCallback(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)
	require.True(t, m.Discover())
	m.ToggleHint()
	first := m.Hotspot()

	res := solveCurrent(t, m)
	require.Len(t, res.Effects, 2)
	assert.True(t, res.Effects[0].(AttemptSubmitted).Successful)
	assert.Equal(t, 1, res.Effects[0].(AttemptSubmitted).HintsUsed)
	adv := res.Effects[1].(AdvanceScheduled)
	assert.Equal(t, time.Second, adv.Delay)
	assert.Equal(t, StageCleared, m.Phase())

	again := m.Submit("function hello() {\n  return 1;\n}")
	assert.False(t, again.Accepted, "no double submit while the success notice shows")

	assert.False(t, m.Advance(adv.Generation+1))
	require.True(t, m.Advance(adv.Generation))
	assert.False(t, m.Advance(adv.Generation), "advance applies once")

	assert.Equal(t, AwaitingDiscovery, m.Phase())
	assert.Equal(t, 1, m.StageIndex())
	assert.Equal(t, 0, m.HintsUsed())
	assert.False(t, m.HintVisible())
	assert.NotEqual(t, first, m.Hotspot())

	require.True(t, m.Discover())
	res = m.Submit("a + b")
	assert.Equal(t, int64(12), res.Effects[0].(AttemptSubmitted).StageID)
}

func TestResetSuppressesPendingAdvance(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)
	res := solveCurrent(t, m)
	adv := res.Effects[1].(AdvanceScheduled)

	m.Reset()
	assert.False(t, m.Advance(adv.Generation))
	assert.Equal(t, NotStarted, m.Phase())
	assert.Equal(t, 0, m.StageIndex())
	assert.Equal(t, 60, m.TimeLeft())
	_, ok := m.Stage()
	assert.False(t, ok)

	_, err = m.Start("ada", 60)
	require.NoError(t, err)
	assert.False(t, m.Advance(adv.Generation), "old generation stays dead after restart")
	assert.Equal(t, 0, m.StageIndex())
}

func TestTimeoutScenario(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)
	require.True(t, m.Discover())
	m.Submit("nope")

	prev := m.TimeLeft()
	var effects []Effect
	for i := 0; i < 59; i++ {
		effects = append(effects, m.Tick(m.ClockEpoch())...)
		assert.LessOrEqual(t, m.TimeLeft(), prev)
		prev = m.TimeLeft()
	}
	assert.Empty(t, effects)
	assert.Equal(t, 1, m.TimeLeft())
	assert.Equal(t, ChallengeOpen, m.Phase())

	effects = m.Tick(m.ClockEpoch())
	require.Len(t, effects, 1)
	_, ok := effects[0].(SessionTimedOut)
	assert.True(t, ok)
	assert.Equal(t, 0, m.TimeLeft())
	assert.Equal(t, TimedOut, m.Phase())

	assert.Empty(t, tickN(m, 5))
	assert.False(t, m.Submit(m.Stages()[0].Solution).Accepted)
	_, err = m.Start("ada", 60)
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestEscapeScenario(t *testing.T) {
	m := newTestMachine(t, 600)
	_, err := m.Start("ada", 600)
	require.NoError(t, err)

	var escaped *SessionEscaped
	for i := 0; i < m.StageCount(); i++ {
		if i == m.StageCount()-1 {
			tickN(m, 555-m.Duration()+m.TimeLeft())
		}
		res := solveCurrent(t, m)
		for _, e := range res.Effects {
			switch ev := e.(type) {
			case AdvanceScheduled:
				require.True(t, m.Advance(ev.Generation))
			case SessionEscaped:
				escaped = &ev
			}
		}
	}
	require.NotNil(t, escaped)
	assert.Equal(t, 555, escaped.TotalTime)
	assert.Equal(t, 555, m.TotalTime())
	assert.Equal(t, 45, m.TimeLeft())
	assert.Equal(t, Escaped, m.Phase())
	assert.False(t, m.ClockRunning())
	assert.Empty(t, tickN(m, 100))
	assert.Equal(t, 45, m.TimeLeft())
	assert.Equal(t, NoticeVictory, m.Notice().Kind)
	assert.Contains(t, m.Notice().Text, "09:15")
}

func TestPauseBlocksActionsAndKeepsTime(t *testing.T) {
	m := newTestMachine(t, 60)
	_, err := m.Start("ada", 60)
	require.NoError(t, err)
	tickN(m, 10)
	staleEpoch := m.ClockEpoch()
	require.True(t, m.Pause())

	assert.False(t, m.Discover())
	assert.Empty(t, m.Tick(staleEpoch))
	assert.Equal(t, 50, m.TimeLeft())

	require.True(t, m.Resume())
	assert.True(t, m.Discover())
	tickN(m, 1)
	assert.Equal(t, 49, m.TimeLeft())
}

func TestSetDurationOnlyBeforeStart(t *testing.T) {
	m := newTestMachine(t, 60)
	require.NoError(t, m.SetDuration(300))
	assert.Equal(t, 300, m.TimeLeft())
	assert.ErrorIs(t, m.SetDuration(0), ErrInvalidDuration)

	_, err := m.Start("ada", m.Duration())
	require.NoError(t, err)
	assert.ErrorIs(t, m.SetDuration(60), ErrSessionActive)

	m.Reset()
	assert.Equal(t, 300, m.TimeLeft())
}

func TestHotspotCell(t *testing.T) {
	h := Hotspot{X: 50, Y: 25}
	col, row := h.Cell(40, 20)
	assert.Equal(t, 20, col)
	assert.Equal(t, 5, row)

	col, row = Hotspot{X: 100, Y: 100}.Cell(10, 10)
	assert.Equal(t, 9, col)
	assert.Equal(t, 9, row)
}

func TestPlacerStaysInBounds(t *testing.T) {
	p := NewSeededPlacer(1)
	for i := 0; i < 1000; i++ {
		h := p.Place()
		require.True(t, h.X >= 15 && h.X < 85)
		require.True(t, h.Y >= 20 && h.Y < 80)
	}
}
