// Package tui provides the Bubble Tea escape room interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/escaperoom/internal/clock"
	"github.com/verte-zerg/escaperoom/internal/config"
	"github.com/verte-zerg/escaperoom/internal/game"
	"github.com/verte-zerg/escaperoom/internal/leaderboard"
	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/recorder"
)

// Recorder receives the effects of every transition.
type Recorder interface {
	Submit(effects ...game.Effect)
}

type tickMsg struct{ epoch int }

type advanceMsg struct{ generation int }

type resultMsg struct{ recorder.Result }

type boardMsg struct {
	top []model.RankedEntry
	err error
}

// Relay forwards recorder results into a running program.
type Relay struct {
	mu      sync.Mutex
	program *tea.Program
}

// Attach sets the program receiving results.
func (r *Relay) Attach(p *tea.Program) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Notify is a recorder callback. Results arriving before Attach are dropped.
func (r *Relay) Notify(res recorder.Result) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(resultMsg{res})
	}
}

const (
	headerLines   = 2
	footerLines   = 2
	hotspotGlyph  = "[*]"
	defaultRoomW  = 60
	defaultRoomH  = 12
	minRoomW      = 20
	minRoomH      = 6
	maxRoomH      = 18
	editorHeight  = 8
	boardTimeout  = 5 * time.Second
	fieldName     = 0
	setupFieldCnt = 2
)

// Model implements the Bubble Tea game UI.
type Model struct {
	config  model.Config
	machine *game.Machine
	rec     Recorder
	board   leaderboard.Board
	log     *zap.Logger

	width  int
	height int

	nameInput    textinput.Model
	minutesInput textinput.Model
	focus        int
	editor       textarea.Model
	table        table.Model

	showBoard bool
	top       []model.RankedEntry
	boardErr  error
	rank      *model.RankedEntry
	warning   string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	roomStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3A3A3A"))
	hotspotStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F6C945"))
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#3A3A3A")).Padding(0, 1)
	hintStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#7FB3D5"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB3D5"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	victoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F6C945"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the game UI. board may be nil when no leaderboard is
// available.
func NewModel(cfg model.Config, machine *game.Machine, rec Recorder, board leaderboard.Board, log *zap.Logger) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	name := textinput.New()
	name.Placeholder = "your name"
	name.CharLimit = 50
	name.Width = 30
	name.SetValue(cfg.Username)
	name.Focus()

	minutes := textinput.New()
	minutes.Placeholder = strconv.Itoa(config.DefaultTimerMinutes)
	minutes.CharLimit = 3
	minutes.Width = 5
	if cfg.TimerMinutes > 0 {
		minutes.SetValue(strconv.Itoa(cfg.TimerMinutes))
	}

	editor := textarea.New()
	editor.Placeholder = "Type your solution here..."
	editor.CharLimit = 0
	editor.SetHeight(editorHeight)
	editor.SetWidth(defaultRoomW)

	scores := table.New(
		table.WithColumns(boardColumns()),
		table.WithHeight(boardHeight(cfg.LeaderboardSize)),
	)

	return &Model{
		config:       cfg,
		machine:      machine,
		rec:          rec,
		board:        board,
		log:          log,
		nameInput:    name,
		minutesInput: minutes,
		editor:       editor,
		table:        scores,
	}
}

func boardColumns() []table.Column {
	return []table.Column{
		{Title: "Rank", Width: 6},
		{Title: "Player", Width: 20},
		{Title: "Time", Width: 8},
		{Title: "Completed", Width: 18},
	}
}

func boardHeight(size int) int {
	if size <= 0 {
		size = config.DefaultLeaderboardSize
	}
	return size + 1
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(m.room().w)
		return m, nil
	case tickMsg:
		return m, m.handleTick(msg.epoch)
	case advanceMsg:
		if m.machine.Advance(msg.generation) {
			m.editor.Reset()
			m.editor.Blur()
		}
		return m, nil
	case resultMsg:
		m.handleResult(msg.Result)
		return m, nil
	case boardMsg:
		m.top = msg.top
		m.boardErr = msg.err
		if msg.err != nil {
			m.log.Warn("failed to load leaderboard", zap.Error(msg.err))
		}
		m.syncTable()
		return m, nil
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.hitHotspot(msg.X, msg.Y) {
			m.discover()
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit
	case "ctrl+l":
		m.showBoard = !m.showBoard
		if m.showBoard {
			return m.loadBoard()
		}
		return nil
	case "ctrl+r":
		m.reset()
		return textinput.Blink
	case "ctrl+p":
		return m.togglePause()
	}
	if m.showBoard {
		if msg.String() == "esc" {
			m.showBoard = false
		}
		return nil
	}

	phase := m.machine.Phase()
	switch {
	case phase == game.NotStarted:
		return m.handleSetupKey(msg)
	case phase.Terminal():
		if msg.String() == "enter" {
			m.reset()
			return textinput.Blink
		}
		return nil
	case m.machine.Paused():
		return nil
	}

	switch msg.String() {
	case "enter":
		if phase == game.AwaitingDiscovery {
			m.discover()
			return nil
		}
	case "ctrl+s":
		return m.submit()
	case "ctrl+t":
		m.machine.ToggleHint()
		return nil
	case "tab":
		if phase == game.ChallengeOpen {
			m.editor.InsertString("  ")
		}
		return nil
	}
	if phase != game.ChallengeOpen {
		return nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return cmd
}

func (m *Model) handleSetupKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		return m.start()
	case "tab", "shift+tab", "up", "down":
		m.focus = (m.focus + 1) % setupFieldCnt
		if m.focus == fieldName {
			m.minutesInput.Blur()
			return m.nameInput.Focus()
		}
		m.nameInput.Blur()
		return m.minutesInput.Focus()
	}
	var cmd tea.Cmd
	if m.focus == fieldName {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.minutesInput, cmd = m.minutesInput.Update(msg)
	}
	return cmd
}

func (m *Model) start() tea.Cmd {
	minutes, ok := m.minutes()
	if !ok {
		m.machine.Warn(fmt.Sprintf("Timer must be between %d and %d minutes.", config.MinTimerMinutes, config.MaxTimerMinutes))
		return nil
	}
	effects, err := m.machine.Start(m.nameInput.Value(), minutes*60)
	switch {
	case errors.Is(err, game.ErrIdentityRequired):
		m.machine.Warn("Please enter your name before starting the timer!")
		return nil
	case errors.Is(err, game.ErrInvalidIdentity):
		m.machine.Warn(fmt.Sprintf("Your name must be %d to %d characters.", model.MinUsernameLen, model.MaxUsernameLen))
		m.focus = fieldName
		m.minutesInput.Blur()
		return m.nameInput.Focus()
	case err != nil:
		m.machine.Warn(err.Error())
		return nil
	}
	m.config.Username = m.machine.Username()
	m.config.TimerMinutes = minutes
	m.rank = nil
	m.warning = ""
	m.nameInput.Blur()
	m.minutesInput.Blur()
	m.editor.Reset()
	m.rec.Submit(effects...)
	return tickCmd(m.machine.ClockEpoch())
}

func (m *Model) minutes() (int, bool) {
	raw := strings.TrimSpace(m.minutesInput.Value())
	if raw == "" {
		return config.DefaultTimerMinutes, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < config.MinTimerMinutes || n > config.MaxTimerMinutes {
		return 0, false
	}
	return n, true
}

func (m *Model) discover() {
	if m.machine.Discover() {
		m.editor.Focus()
	}
}

func (m *Model) submit() tea.Cmd {
	res := m.machine.Submit(m.editor.Value())
	if !res.Accepted {
		return nil
	}
	m.rec.Submit(res.Effects...)
	var cmds []tea.Cmd
	for _, e := range res.Effects {
		switch e := e.(type) {
		case game.AdvanceScheduled:
			m.editor.Blur()
			cmds = append(cmds, advanceCmd(e.Generation, e.Delay))
		case game.SessionEscaped:
			m.editor.Blur()
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) togglePause() tea.Cmd {
	if m.machine.Paused() {
		if m.machine.Resume() {
			if m.machine.Phase() == game.ChallengeOpen {
				m.editor.Focus()
			}
			return tickCmd(m.machine.ClockEpoch())
		}
		return nil
	}
	if m.machine.Pause() {
		m.editor.Blur()
	}
	return nil
}

func (m *Model) reset() {
	m.machine.Reset()
	m.editor.Reset()
	m.editor.Blur()
	m.showBoard = false
	m.rank = nil
	m.warning = ""
	m.focus = fieldName
	m.minutesInput.Blur()
	m.nameInput.Focus()
}

func (m *Model) handleTick(epoch int) tea.Cmd {
	effects := m.machine.Tick(epoch)
	if len(effects) > 0 {
		m.editor.Blur()
		m.rec.Submit(effects...)
	}
	if m.machine.ClockRunning() && epoch == m.machine.ClockEpoch() {
		return tickCmd(epoch)
	}
	return nil
}

func (m *Model) handleResult(r recorder.Result) {
	if r.Generation != m.machine.Generation() {
		return
	}
	switch r.Kind {
	case recorder.SessionOpened:
		if r.Err != nil {
			m.warning = "Playing offline: your progress will not be saved."
		}
	case recorder.AttemptSaved:
		if r.Err != nil && !errors.Is(r.Err, recorder.ErrOffline) {
			m.warning = "Failed to save your attempt."
		}
	case recorder.TimeoutSaved:
		if r.Err != nil && !errors.Is(r.Err, recorder.ErrOffline) {
			m.warning = "Failed to save the session result."
		}
	case recorder.Ranked:
		if r.Err != nil {
			if !errors.Is(r.Err, recorder.ErrOffline) {
				m.warning = "Your time could not be recorded on the leaderboard."
			}
			return
		}
		entry := r.Entry
		m.rank = &entry
		m.top = r.Top
		m.boardErr = nil
		m.syncTable()
		m.machine.Announce(fmt.Sprintf("%s You are ranked #%d on the leaderboard.", m.machine.Notice().Text, entry.Rank))
	}
}

func (m *Model) loadBoard() tea.Cmd {
	if m.board == nil {
		return nil
	}
	board := m.board
	n := m.config.LeaderboardSize
	if n <= 0 {
		n = config.DefaultLeaderboardSize
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), boardTimeout)
		defer cancel()
		top, err := board.Top(ctx, n)
		return boardMsg{top: top, err: err}
	}
}

func (m *Model) syncTable() {
	rows := make([]table.Row, 0, len(m.top))
	for _, e := range m.top {
		name := e.Username
		if name == "" {
			name = "Unknown"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", e.Rank),
			name,
			clock.Format(e.CompletionTime),
			e.CompletedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	m.table.SetRows(rows)
}

func tickCmd(epoch int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{epoch: epoch}
	})
}

func advanceCmd(generation int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return advanceMsg{generation: generation}
	})
}

type roomRect struct {
	x, y, w, h int
}

// room returns the interior of the room box in screen cells.
func (m *Model) room() roomRect {
	w, h := defaultRoomW, defaultRoomH
	if m.width > 0 {
		w = max(m.width-2, minRoomW)
	}
	if m.height > 0 {
		h = min(max(m.height-headerLines-footerLines-2, minRoomH), maxRoomH)
	}
	return roomRect{x: 1, y: headerLines + 1, w: w, h: h}
}

func (m *Model) hitHotspot(x, y int) bool {
	if m.showBoard || m.machine.Phase() != game.AwaitingDiscovery || m.machine.Paused() {
		return false
	}
	r := m.room()
	col, row := m.machine.Hotspot().Cell(r.w, r.h)
	gw := len(hotspotGlyph)
	start := markerStart(col, r.w, gw)
	return y == r.y+row && x >= r.x+start && x < r.x+start+gw
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	phase := m.machine.Phase()
	switch {
	case m.showBoard:
		body = m.renderBoard()
	case phase == game.NotStarted:
		body = m.renderSetup()
	case phase == game.ChallengeOpen && !m.machine.Paused():
		body = m.renderChallenge()
	case phase.Terminal():
		body = m.renderOutcome()
	default:
		body = m.renderRoom()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderNotice(),
		m.renderFooter(),
	)
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("CODE ESCAPE ROOM")
	return title + "\n" + statusStyle.Render(m.renderStatus())
}

func (m *Model) renderStatus() string {
	phase := m.machine.Phase()
	if phase == game.NotStarted {
		return fmt.Sprintf("%d stages · timer %s", m.machine.StageCount(), clock.Format(m.machine.Duration()))
	}
	segments := []string{
		fmt.Sprintf("Player %s", m.machine.Username()),
		fmt.Sprintf("Stage %d/%d", m.machine.StageIndex()+1, m.machine.StageCount()),
		fmt.Sprintf("Time %s", clock.Format(m.machine.TimeLeft())),
		fmt.Sprintf("Hints %d", m.machine.HintsUsed()),
	}
	if m.machine.Paused() {
		segments = append(segments, "PAUSED")
	}
	return strings.Join(segments, "  ")
}

func (m *Model) renderSetup() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Solve every coding challenge before the timer runs out."))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Name     "))
	b.WriteString(m.nameInput.View())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Minutes  "))
	b.WriteString(m.minutesInput.View())
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderRoom() string {
	r := m.room()
	var lines []string
	switch {
	case m.machine.Paused():
		lines = roomLines(r.w, r.h, 0, 0, "", "")
		lines[r.h/2] = centerLine("PAUSED", r.w)
	case m.machine.Phase() == game.AwaitingDiscovery:
		col, row := m.machine.Hotspot().Cell(r.w, r.h)
		lines = roomLines(r.w, r.h, col, row, hotspotGlyph, hotspotStyle.Render(hotspotGlyph))
	default:
		lines = roomLines(r.w, r.h, 0, 0, "", "")
	}
	return roomStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderChallenge() string {
	stage, ok := m.machine.Stage()
	if !ok {
		return ""
	}
	r := m.room()
	var b strings.Builder
	b.WriteString(titleStyle.Render(stage.Title))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(r.w).Render(stage.Description))
	b.WriteString("\n")
	if stage.Challenge != "" {
		b.WriteString(codeStyle.Render(strings.Join(wrapCode(stage.Challenge, r.w-4), "\n")))
		b.WriteString("\n")
	}
	if m.machine.HintVisible() && stage.Hint != "" {
		b.WriteString(hintStyle.Width(r.w).Render("Hint: " + stage.Hint))
		b.WriteString("\n")
	}
	b.WriteString(m.editor.View())
	return b.String()
}

func (m *Model) renderOutcome() string {
	var b strings.Builder
	b.WriteString("\n")
	if m.machine.Phase() == game.Escaped {
		b.WriteString(victoryStyle.Render("You escaped! Total time " + clock.Format(m.machine.TotalTime())))
		b.WriteString("\n")
		if m.rank != nil {
			b.WriteString(labelStyle.Render(fmt.Sprintf("Best time %s · rank #%d", clock.Format(m.rank.CompletionTime), m.rank.Rank)))
			b.WriteString("\n")
		}
		if len(m.top) > 0 {
			b.WriteString("\n")
			b.WriteString(m.table.View())
			b.WriteString("\n")
		}
	} else {
		b.WriteString(errorStyle.Render("The room stays locked."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderBoard() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Leaderboard"))
	b.WriteString("\n")
	switch {
	case m.board == nil && len(m.top) == 0:
		b.WriteString(labelStyle.Render("Leaderboard is not available."))
	case m.boardErr != nil:
		b.WriteString(errorStyle.Render("Failed to load the leaderboard."))
	case len(m.top) == 0:
		b.WriteString(labelStyle.Render("No completions yet. Be the first to escape!"))
	default:
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderNotice() string {
	n := m.machine.Notice()
	text := noticeStyle(n.Kind).Render(n.Text)
	if m.warning != "" {
		if n.Text != "" {
			text += "  "
		}
		text += errorStyle.Render(m.warning)
	}
	return text
}

func noticeStyle(kind game.NoticeKind) lipgloss.Style {
	switch kind {
	case game.NoticeInfo:
		return infoStyle
	case game.NoticeSuccess:
		return successStyle
	case game.NoticeError:
		return errorStyle
	case game.NoticeVictory:
		return victoryStyle
	default:
		return labelStyle
	}
}

func (m *Model) renderFooter() string {
	var keys []string
	switch phase := m.machine.Phase(); {
	case m.showBoard:
		keys = []string{"ctrl+l close", "ctrl+c quit"}
	case phase == game.NotStarted:
		keys = []string{"enter start", "tab switch field", "ctrl+l leaderboard", "ctrl+c quit"}
	case phase.Terminal():
		keys = []string{"enter play again", "ctrl+l leaderboard", "ctrl+c quit"}
	case phase == game.ChallengeOpen:
		keys = []string{"ctrl+s submit", "ctrl+t hint", "ctrl+p pause", "ctrl+r reset", "ctrl+c quit"}
	default:
		keys = []string{"click or enter the object", "ctrl+p pause", "ctrl+r reset", "ctrl+c quit"}
	}
	return footerStyle.Render(strings.Join(keys, " · "))
}
