package store

import (
	"context"
	"fmt"

	"github.com/verte-zerg/escaperoom/internal/model"
)

const attemptColumns = `id, session_id, stage_id, user_code, successful, hints_used, attempted_at`

// CreateAttempt appends a submit record to a session. Attempts are never
// updated or deleted.
func (s *Store) CreateAttempt(ctx context.Context, in model.NewAttempt) (model.StageAttempt, error) {
	if in.StageID <= 0 {
		return model.StageAttempt{}, fmt.Errorf("%w: stage id must be positive", model.ErrInvalidInput)
	}
	if in.HintsUsed < 0 {
		return model.StageAttempt{}, fmt.Errorf("%w: hints used must not be negative", model.ErrInvalidInput)
	}
	if err := s.sessionExists(ctx, in.SessionID); err != nil {
		return model.StageAttempt{}, err
	}
	at := in.AttemptedAt
	if at.IsZero() {
		at = s.now()
	}
	attempt := model.StageAttempt{
		ID:          s.ids(),
		SessionID:   in.SessionID,
		StageID:     in.StageID,
		UserCode:    in.UserCode,
		Successful:  in.Successful,
		HintsUsed:   in.HintsUsed,
		AttemptedAt: at.UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.SessionID, attempt.StageID, attempt.UserCode,
		boolInt(attempt.Successful), attempt.HintsUsed, formatTime(attempt.AttemptedAt),
	); err != nil {
		return model.StageAttempt{}, unavailable("create attempt", err)
	}
	return attempt, nil
}

// ListAttemptsBySession returns a session's attempts in submit order.
func (s *Store) ListAttemptsBySession(ctx context.Context, sessionID string) ([]model.StageAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE session_id = ? ORDER BY attempted_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, unavailable("list attempts", err)
	}
	defer closeRows(rows)

	attempts := []model.StageAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, unavailable("scan attempt", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list attempts", err)
	}
	return attempts, nil
}

func scanAttempt(row scanner) (model.StageAttempt, error) {
	var a model.StageAttempt
	var successful int
	var at string
	if err := row.Scan(&a.ID, &a.SessionID, &a.StageID, &a.UserCode, &successful, &a.HintsUsed, &at); err != nil {
		return model.StageAttempt{}, err
	}
	a.Successful = successful != 0
	var err error
	if a.AttemptedAt, err = parseTime(at); err != nil {
		return model.StageAttempt{}, err
	}
	return a, nil
}
