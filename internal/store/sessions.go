package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/escaperoom/internal/model"
)

const sessionColumns = `id, user_id, start_time, end_time, completed, total_time, timer_duration`

// CreateSession starts a session for an existing player.
func (s *Store) CreateSession(ctx context.Context, in model.NewSession) (model.GameSession, error) {
	if in.TimerDuration <= 0 {
		return model.GameSession{}, fmt.Errorf("%w: timer duration must be positive", model.ErrInvalidInput)
	}
	if err := s.userExists(ctx, in.UserID); err != nil {
		return model.GameSession{}, err
	}
	start := in.StartTime
	if start.IsZero() {
		start = s.now()
	}
	session := model.GameSession{
		ID:            s.ids(),
		UserID:        in.UserID,
		StartTime:     start.UTC(),
		TimerDuration: in.TimerDuration,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, start_time, completed, timer_duration) VALUES (?, ?, ?, 0, ?)`,
		session.ID, session.UserID, formatTime(session.StartTime), session.TimerDuration,
	); err != nil {
		return model.GameSession{}, unavailable("create session", err)
	}
	return session, nil
}

// UpdateSession applies a terminal update. A session completes at most once.
func (s *Store) UpdateSession(ctx context.Context, id string, upd model.SessionUpdate) (model.GameSession, error) {
	if upd.TotalTime != nil && *upd.TotalTime < 0 {
		return model.GameSession{}, fmt.Errorf("%w: total time must not be negative", model.ErrInvalidInput)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GameSession{}, unavailable("begin session update", err)
	}
	defer rollback(tx)

	session, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.GameSession{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.GameSession{}, unavailable("get session", err)
	}
	if upd.Completed != nil && *upd.Completed && session.Completed {
		return model.GameSession{}, fmt.Errorf("session %s: %w: already completed", id, model.ErrConflict)
	}
	if upd.EndTime != nil {
		end := upd.EndTime.UTC()
		session.EndTime = &end
	}
	if upd.Completed != nil {
		session.Completed = *upd.Completed
	}
	if upd.TotalTime != nil {
		total := *upd.TotalTime
		session.TotalTime = &total
	}

	var endTime sql.NullString
	if session.EndTime != nil {
		endTime = sql.NullString{String: formatTime(*session.EndTime), Valid: true}
	}
	var totalTime sql.NullInt64
	if session.TotalTime != nil {
		totalTime = sql.NullInt64{Int64: int64(*session.TotalTime), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET end_time = ?, completed = ?, total_time = ? WHERE id = ?`,
		endTime, boolInt(session.Completed), totalTime, id,
	); err != nil {
		return model.GameSession{}, unavailable("update session", err)
	}
	if err := tx.Commit(); err != nil {
		return model.GameSession{}, unavailable("commit session update", err)
	}
	return session, nil
}

// GetSession returns a session with its attempts in submit order.
func (s *Store) GetSession(ctx context.Context, id string) (model.SessionDetail, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionDetail{}, fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.SessionDetail{}, unavailable("get session", err)
	}
	attempts, err := s.ListAttemptsBySession(ctx, id)
	if err != nil {
		return model.SessionDetail{}, err
	}
	return model.SessionDetail{GameSession: session, Attempts: attempts}, nil
}

// ListSessions returns sessions newest first, restricted to userID when set.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]model.GameSession, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if userID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, userID)
	}
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY start_time DESC`,
		sessionColumns, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list sessions", err)
	}
	defer closeRows(rows)

	sessions := []model.GameSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, unavailable("scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list sessions", err)
	}
	return sessions, nil
}

// ListSessionsByUser returns a player's history, newest first, with attempts.
func (s *Store) ListSessionsByUser(ctx context.Context, userID string) ([]model.SessionDetail, error) {
	sessions, err := s.ListSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return []model.SessionDetail{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.session_id, a.stage_id, a.user_code, a.successful, a.hints_used, a.attempted_at
		 FROM attempts a
		 JOIN sessions s ON s.id = a.session_id
		 WHERE s.user_id = ?
		 ORDER BY a.attempted_at ASC, a.rowid ASC`, userID)
	if err != nil {
		return nil, unavailable("list attempts", err)
	}
	defer closeRows(rows)

	bySession := map[string][]model.StageAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, unavailable("scan attempt", err)
		}
		bySession[a.SessionID] = append(bySession[a.SessionID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list attempts", err)
	}

	details := make([]model.SessionDetail, len(sessions))
	for i, session := range sessions {
		attempts := bySession[session.ID]
		if attempts == nil {
			attempts = []model.StageAttempt{}
		}
		details[i] = model.SessionDetail{GameSession: session, Attempts: attempts}
	}
	return details, nil
}

func (s *Store) sessionExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return unavailable("look up session", err)
	}
	return nil
}

func scanSession(row scanner) (model.GameSession, error) {
	var session model.GameSession
	var start string
	var end sql.NullString
	var completed int
	var total sql.NullInt64
	if err := row.Scan(&session.ID, &session.UserID, &start, &end, &completed, &total, &session.TimerDuration); err != nil {
		return model.GameSession{}, err
	}
	var err error
	if session.StartTime, err = parseTime(start); err != nil {
		return model.GameSession{}, err
	}
	if session.EndTime, err = parseNullTime(end); err != nil {
		return model.GameSession{}, err
	}
	session.Completed = completed != 0
	if total.Valid {
		v := int(total.Int64)
		session.TotalTime = &v
	}
	return session, nil
}
