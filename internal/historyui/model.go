// Package historyui provides the Bubble Tea session history browser.
package historyui

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/escaperoom/internal/clock"
	"github.com/verte-zerg/escaperoom/internal/model"
	"github.com/verte-zerg/escaperoom/internal/stats"
)

const (
	tabOverview = iota
	tabSessions
	tabStages
)

const maxWindow = 50

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Options selects the history shown.
type Options struct {
	Username string
	Stages   []model.Stage
	// Last keeps only the most recent sessions when positive.
	Last   int
	Window int
}

// Model implements the Bubble Tea history UI.
type Model struct {
	src  stats.Source
	opts Options

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	sessions  table.Model

	width  int
	height int
}

// NewModel loads the player's history from src.
func NewModel(src stats.Source, opts Options) *Model {
	if opts.Window < 1 {
		opts.Window = 1
	}
	m := &Model{
		src:  src,
		opts: opts,
		tabs: []string{"Overview", "Sessions", "Stages"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.sessions = table.New(table.WithColumns(sessionColumns()), table.WithFocused(true))
	m.sessions.SetStyles(tableStyles())
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.opts.Window = min(m.opts.Window+1, maxWindow)
			m.renderTabContents()
			return m, nil
		case "-":
			m.opts.Window = max(m.opts.Window-1, 1)
			m.renderTabContents()
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		case "g", "home":
			if m.activeTab == tabSessions {
				m.sessions.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabSessions {
				m.sessions.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			if m.activeTab == tabSessions {
				m.sessions, cmd = m.sessions.Update(msg)
				return m, cmd
			}
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.sessions.SetWidth(m.width)
	m.sessions.SetHeight(max(bodyHeight-1, 1))
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	m.activeTab = (m.activeTab + delta + count) % count
	if m.activeTab == tabSessions {
		m.sessions.Focus()
	} else {
		m.sessions.Blur()
	}
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.src, m.opts.Username, m.opts.Stages, m.opts.Last)
	if err != nil {
		m.errMsg = err.Error()
		m.report = stats.Report{}
	} else {
		m.errMsg = ""
		m.report = report
	}
	m.sessions.SetRows(sessionRows(m.report.Sessions))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load history.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report.Sessions, m.opts.Window, width))
	m.viewports[tabStages].SetContent(renderStages(m.report.Stages))
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	last := "all"
	if m.opts.Last > 0 {
		last = fmt.Sprintf("%d", m.opts.Last)
	}
	summary := fmt.Sprintf("Player: %s  last=%s  window=%d", m.opts.Username, last, m.opts.Window)
	return m.renderTabs() + "\n" + headerStyle.Render(runewidth.Truncate(summary, m.width, "..."))
}

func (m *Model) renderBody() string {
	if m.activeTab == tabSessions {
		if len(m.report.Sessions) == 0 {
			return "No sessions found."
		}
		return tableMutedStyle.Render(m.sessions.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderFooter() string {
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Reload: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func renderOverview(rows []stats.SessionRow, window, width int) string {
	if len(rows) == 0 {
		return "No sessions found."
	}
	cards := summaryCards(rows)
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		summary = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	var buf bytes.Buffer
	if err := stats.RenderTrend(&buf, rows, window, width); err != nil {
		return summary + "\n\n" + fmt.Sprintf("Failed to render trend: %v", err)
	}
	trend := strings.TrimRight(buf.String(), "\n")
	if trend == "" {
		trend = "No escapes yet."
	}
	return summary + "\n\n" + trend
}

func summaryCards(rows []stats.SessionRow) []string {
	escaped, timedOut := 0, 0
	for _, r := range rows {
		switch r.Outcome {
		case stats.OutcomeEscaped:
			escaped++
		case stats.OutcomeTimedOut:
			timedOut++
		}
	}
	best, avg := "-", "-"
	if times := stats.CompletionTimes(rows); len(times) > 0 {
		lo, sum := times[0], 0.0
		for _, v := range times {
			lo = math.Min(lo, v)
			sum += v
		}
		best = clock.Format(int(lo))
		avg = clock.Format(int(math.Round(sum / float64(len(times)))))
	}
	return []string{
		metricCard("Sessions", fmt.Sprintf("%d", len(rows))),
		metricCard("Escaped", fmt.Sprintf("%d", escaped)),
		metricCard("Timed out", fmt.Sprintf("%d", timedOut)),
		metricCard("Best", best),
		metricCard("Average", avg),
	}
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderStages(stageStats []stats.StageStat) string {
	var buf bytes.Buffer
	if err := stats.RenderStageTable(&buf, stageStats); err != nil {
		return fmt.Sprintf("Failed to render stages: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func sessionColumns() []table.Column {
	return []table.Column{
		{Title: "Started", Width: 16},
		{Title: "Outcome", Width: 10},
		{Title: "Time", Width: 6},
		{Title: "Timer", Width: 6},
		{Title: "Attempts", Width: 8},
		{Title: "Hints", Width: 5},
	}
}

// sessionRows lists newest first.
func sessionRows(rows []stats.SessionRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		elapsed := "-"
		if r.Outcome == stats.OutcomeEscaped {
			elapsed = clock.Format(r.TotalTime)
		}
		out = append(out, table.Row{
			r.Session.StartTime.Local().Format("2006-01-02 15:04"),
			string(r.Outcome),
			elapsed,
			clock.Format(r.Session.TimerDuration),
			fmt.Sprintf("%d", r.Attempts),
			fmt.Sprintf("%d", r.Hints),
		})
	}
	return out
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
