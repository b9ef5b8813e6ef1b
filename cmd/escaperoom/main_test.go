package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/escaperoom/internal/config"
	"github.com/verte-zerg/escaperoom/internal/model"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template should decode: %v", err)
	}
	if cfg.Game.Username != nil || cfg.Redis.Enabled != nil {
		t.Fatalf("template should leave every value commented out: %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := model.Config{TimerMinutes: 30, AdvanceDelay: time.Second, LeaderboardSize: 10}
	if err := validateConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []model.Config{
		{TimerMinutes: 0, LeaderboardSize: 10},
		{TimerMinutes: 121, LeaderboardSize: 10},
		{TimerMinutes: 30, AdvanceDelay: -time.Millisecond, LeaderboardSize: 10},
		{TimerMinutes: 30, LeaderboardSize: 0},
	}
	for _, cfg := range cases {
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestOfflineStoreRejectsWrites(t *testing.T) {
	ctx := context.Background()
	st := offlineStore{}
	if _, err := st.EnsureUser(ctx, "ada"); !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := st.CreateSession(ctx, model.NewSession{}); !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := st.CreateAttempt(ctx, model.NewAttempt{}); !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := st.UpdateSession(ctx, "s", model.SessionUpdate{}); !errors.Is(err, model.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"config"},
		{"serve"},
		{"stages", "list"},
		{"stages", "seed"},
		{"stages", "import"},
		{"leaderboard"},
		{"history"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Fatalf("expected subcommand %v, got %v (%v)", path, cmd, err)
		}
	}
}
