package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/escaperoom/internal/catalog"
	"github.com/verte-zerg/escaperoom/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "escaperoom.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return st
}

// stepClock returns a time source advancing one second per call.
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	email := "ada@example.com"
	ada, err := st.CreateUser(ctx, model.NewUser{Username: "ada", Email: &email})
	require.NoError(t, err)
	assert.NotEmpty(t, ada.ID)

	_, err = st.CreateUser(ctx, model.NewUser{Username: "ada"})
	assert.ErrorIs(t, err, model.ErrConflict)
	_, err = st.CreateUser(ctx, model.NewUser{Username: "al"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	found, err := st.FindUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, found.ID)
	require.NotNil(t, found.Email)
	assert.Equal(t, email, *found.Email)

	again, err := st.EnsureUser(ctx, " ada ")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, again.ID)

	bob, err := st.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, ada.ID, bob.ID)
	assert.Nil(t, bob.Email)

	_, err = st.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	users, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestStages(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	stages, err := st.ListStages(ctx)
	require.NoError(t, err)
	assert.Empty(t, stages)

	seeded, err := st.ReplaceStages(ctx, catalog.BuiltinInputs())
	require.NoError(t, err)
	require.Len(t, seeded, 4)
	assert.Equal(t, int64(1), seeded[0].ID)

	created, err := st.CreateStage(ctx, model.StageInput{
		Order: 0, Title: "t", Description: "d", Type: model.StageDebug,
	})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Zero(t, created.ID)

	created, err = st.CreateStage(ctx, model.StageInput{
		Order: 5, Title: "Bonus", Description: "d", Type: model.StageDebug, Solution: "x",
	})
	require.NoError(t, err)

	title := "Renamed"
	order := 0
	updated, err := st.UpdateStage(ctx, created.ID, model.StagePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 5, updated.Order)
	_, err = st.UpdateStage(ctx, created.ID, model.StagePatch{Order: &order})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	got, err := st.GetStage(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	require.NoError(t, st.DeleteStage(ctx, created.ID))
	assert.ErrorIs(t, st.DeleteStage(ctx, created.ID), model.ErrNotFound)
	_, err = st.GetStage(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	stages, err = st.ListStages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 4)
	for i, s := range stages {
		assert.Equal(t, i+1, s.Order)
	}

	reseeded, err := st.ReplaceStages(ctx, catalog.BuiltinInputs()[:2])
	require.NoError(t, err)
	assert.Len(t, reseeded, 2)
	stages, err = st.ListStages(ctx)
	require.NoError(t, err)
	assert.Len(t, stages, 2)
}

func TestSessionsAndAttempts(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	st.now = stepClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	ada, err := st.EnsureUser(ctx, "ada")
	require.NoError(t, err)

	_, err = st.CreateSession(ctx, model.NewSession{UserID: "nobody", TimerDuration: 60})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = st.CreateSession(ctx, model.NewSession{UserID: ada.ID, TimerDuration: 0})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	first, err := st.CreateSession(ctx, model.NewSession{UserID: ada.ID, TimerDuration: 600})
	require.NoError(t, err)
	second, err := st.CreateSession(ctx, model.NewSession{UserID: ada.ID, TimerDuration: 60})
	require.NoError(t, err)

	for i, ok := range []bool{false, false, true} {
		_, err := st.CreateAttempt(ctx, model.NewAttempt{
			SessionID: first.ID, StageID: 1, UserCode: "code", Successful: ok, HintsUsed: i,
		})
		require.NoError(t, err)
	}
	_, err = st.CreateAttempt(ctx, model.NewAttempt{SessionID: "missing", StageID: 1})
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = st.CreateAttempt(ctx, model.NewAttempt{SessionID: first.ID, StageID: 0})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = st.CreateAttempt(ctx, model.NewAttempt{SessionID: first.ID, StageID: 1, HintsUsed: -1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	end := time.Date(2026, 3, 1, 10, 9, 15, 0, time.UTC)
	done := true
	total := 555
	updated, err := st.UpdateSession(ctx, first.ID, model.SessionUpdate{EndTime: &end, Completed: &done, TotalTime: &total})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.TotalTime)
	assert.Equal(t, 555, *updated.TotalTime)

	_, err = st.UpdateSession(ctx, first.ID, model.SessionUpdate{Completed: &done})
	assert.ErrorIs(t, err, model.ErrConflict)
	_, err = st.UpdateSession(ctx, "missing", model.SessionUpdate{EndTime: &end})
	assert.ErrorIs(t, err, model.ErrNotFound)

	detail, err := st.GetSession(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, detail.Attempts, 3)
	assert.False(t, detail.Attempts[0].Successful)
	assert.True(t, detail.Attempts[2].Successful)
	assert.Equal(t, 2, detail.Attempts[2].HintsUsed)
	require.NotNil(t, detail.EndTime)
	assert.True(t, end.Equal(*detail.EndTime))

	_, err = st.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	sessions, err := st.ListSessions(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID, "newest first")

	all, err := st.ListSessions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	history, err := st.ListSessionsByUser(ctx, ada.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Empty(t, history[0].Attempts)
	assert.Len(t, history[1].Attempts, 3)

	none, err := st.ListSessionsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLeaderboardRanks(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	st.now = stepClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	ada, err := st.EnsureUser(ctx, "ada")
	require.NoError(t, err)
	bob, err := st.EnsureUser(ctx, "bob")
	require.NoError(t, err)
	cy, err := st.EnsureUser(ctx, "cyd")
	require.NoError(t, err)

	_, err = st.BestForUser(ctx, ada.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = st.CreateLeaderboardEntry(ctx, ada.ID, -1, time.Time{})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = st.CreateLeaderboardEntry(ctx, "nobody", 10, time.Time{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	records := []struct {
		user string
		time int
	}{
		{ada.ID, 300},
		{bob.ID, 200},
		{cy.ID, 200},
		{ada.ID, 250},
		{bob.ID, 400},
	}
	for _, r := range records {
		_, err := st.CreateLeaderboardEntry(ctx, r.user, r.time, time.Time{})
		require.NoError(t, err)
	}

	top, err := st.TopLeaderboard(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "bob", top[0].Username)
	assert.Equal(t, "cyd", top[1].Username, "ties keep insertion order")
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 1, top[1].Rank)
	assert.Equal(t, 3, top[2].Rank)
	assert.Equal(t, 250, top[2].CompletionTime)

	best, err := st.BestForUser(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 250, best.CompletionTime)
	assert.Equal(t, 3, best.Rank)

	best, err = st.BestForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 200, best.CompletionTime)
	assert.Equal(t, 1, best.Rank)

	empty, err := st.TopLeaderboard(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	count, err := st.CountLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(records), count)
}

func TestDatabaseFailuresAreUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := New(db)
	ctx := context.Background()

	boom := errors.New("disk I/O error")
	mock.ExpectQuery("SELECT id, ord, title").WillReturnError(boom)
	_, err = st.ListStages(ctx)
	assert.ErrorIs(t, err, model.ErrUnavailable)
	assert.ErrorIs(t, err, boom)

	mock.ExpectQuery("SELECT 1 FROM sessions").WithArgs("s1").WillReturnError(boom)
	_, err = st.CreateAttempt(ctx, model.NewAttempt{SessionID: "s1", StageID: 2})
	assert.ErrorIs(t, err, model.ErrUnavailable)

	mock.ExpectQuery("SELECT id, username").WithArgs("ada").WillReturnError(boom)
	_, err = st.EnsureUser(ctx, "ada")
	assert.ErrorIs(t, err, model.ErrUnavailable)

	mock.ExpectBegin().WillReturnError(boom)
	_, err = st.ReplaceStages(ctx, catalog.BuiltinInputs())
	assert.ErrorIs(t, err, model.ErrUnavailable)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBestForUserScansRank(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	st := New(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "username", "completion_time", "completed_at", "position"}).
		AddRow("e1", "u1", "ada", 555, "2026-03-01T10:09:15.000000000Z", 4)
	mock.ExpectQuery(`SELECT l.id, l.user_id`).WithArgs("u1").WillReturnRows(rows)

	best, err := st.BestForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, best.Rank)
	assert.Equal(t, 555, best.CompletionTime)
	assert.Equal(t, "ada", best.Username)

	mock.ExpectQuery(`SELECT l.id, l.user_id`).WithArgs("u2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "completion_time", "completed_at", "position"}))
	_, err = st.BestForUser(context.Background(), "u2")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
