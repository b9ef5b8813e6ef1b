package historyui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/escaperoom/internal/catalog"
	"github.com/verte-zerg/escaperoom/internal/model"
)

type fakeSource struct {
	user     model.User
	sessions []model.SessionDetail
	calls    int
}

func (f *fakeSource) FindUserByUsername(_ context.Context, username string) (model.User, error) {
	if username != f.user.Username {
		return model.User{}, fmt.Errorf("user %s: %w", username, model.ErrNotFound)
	}
	return f.user, nil
}

func (f *fakeSource) ListSessionsByUser(_ context.Context, _ string) ([]model.SessionDetail, error) {
	f.calls++
	return f.sessions, nil
}

func newSource() *fakeSource {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := base.Add(time.Hour)
	fast, slow := 480, 600
	return &fakeSource{
		user: model.User{ID: "u1", Username: "ada"},
		sessions: []model.SessionDetail{
			{GameSession: model.GameSession{ID: "s1", StartTime: base, EndTime: &end, Completed: true, TotalTime: &slow, TimerDuration: 900},
				Attempts: []model.StageAttempt{{StageID: 1, Successful: true, HintsUsed: 1}}},
			{GameSession: model.GameSession{ID: "s2", StartTime: base.Add(time.Hour), EndTime: &end, TimerDuration: 900}},
			{GameSession: model.GameSession{ID: "s3", StartTime: base.Add(2 * time.Hour), EndTime: &end, Completed: true, TotalTime: &fast, TimerDuration: 900}},
		},
	}
}

func newTestModel(t *testing.T, src *fakeSource, username string) *Model {
	t.Helper()
	m := NewModel(src, Options{Username: username, Stages: catalog.Fallback(), Window: 2})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestOverviewShowsSummary(t *testing.T) {
	m := newTestModel(t, newSource(), "ada")
	view := m.View()
	for _, want := range []string{"Overview", "Sessions", "Escaped", "08:00", "09:00", "Completion Times"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestSessionsTabListsNewestFirst(t *testing.T) {
	m := newTestModel(t, newSource(), "ada")
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabSessions {
		t.Fatalf("expected sessions tab, got %d", m.activeTab)
	}
	rows := m.sessions.Rows()
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][2] != "08:00" || rows[1][1] != "timed out" || rows[2][2] != "10:00" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestTabsWrap(t *testing.T) {
	m := newTestModel(t, newSource(), "ada")
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabStages {
		t.Fatalf("expected stages tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "Per-Stage") {
		t.Fatalf("expected stage table in view:\n%s", m.View())
	}
}

func TestWindowKeysClamp(t *testing.T) {
	m := newTestModel(t, newSource(), "ada")
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	if m.opts.Window != 1 {
		t.Fatalf("expected window 1, got %d", m.opts.Window)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	if m.opts.Window != 2 {
		t.Fatalf("expected window 2, got %d", m.opts.Window)
	}
}

func TestReloadQueriesSource(t *testing.T) {
	src := newSource()
	m := newTestModel(t, src, "ada")
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if src.calls != 2 {
		t.Fatalf("expected 2 loads, got %d", src.calls)
	}
}

func TestUnknownPlayerShowsError(t *testing.T) {
	m := newTestModel(t, newSource(), "bob")
	view := m.View()
	if !strings.Contains(view, "Failed to load history.") || !strings.Contains(view, "not found") {
		t.Fatalf("expected error in view:\n%s", view)
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, newSource(), "ada")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
