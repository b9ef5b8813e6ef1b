package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/escaperoom/internal/catalog"
	"github.com/verte-zerg/escaperoom/internal/model"
)

const stageColumns = `id, ord, title, description, type, challenge, solution, hint, created_at, updated_at`

// CreateStage inserts a stage definition.
func (s *Store) CreateStage(ctx context.Context, in model.StageInput) (model.Stage, error) {
	if err := validStage(in); err != nil {
		return model.Stage{}, err
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO stages (ord, title, description, type, challenge, solution, hint, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Order, in.Title, in.Description, string(in.Type), in.Challenge, in.Solution, in.Hint,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return model.Stage{}, unavailable("create stage", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Stage{}, unavailable("create stage", err)
	}
	return stageFrom(id, in, now), nil
}

// ListStages returns every stage ordered by Order.
func (s *Store) ListStages(ctx context.Context) ([]model.Stage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stageColumns+` FROM stages ORDER BY ord ASC, id ASC`)
	if err != nil {
		return nil, unavailable("list stages", err)
	}
	defer closeRows(rows)

	stages := []model.Stage{}
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, unavailable("scan stage", err)
		}
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list stages", err)
	}
	return stages, nil
}

// GetStage returns the stage with id.
func (s *Store) GetStage(ctx context.Context, id int64) (model.Stage, error) {
	st, err := scanStage(s.db.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Stage{}, fmt.Errorf("stage %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Stage{}, unavailable("get stage", err)
	}
	return st, nil
}

// UpdateStage applies the non-nil fields of patch.
func (s *Store) UpdateStage(ctx context.Context, id int64, patch model.StagePatch) (model.Stage, error) {
	st, err := s.GetStage(ctx, id)
	if err != nil {
		return model.Stage{}, err
	}
	in := model.StageInput{
		Order:       st.Order,
		Title:       st.Title,
		Description: st.Description,
		Type:        st.Type,
		Challenge:   st.Challenge,
		Solution:    st.Solution,
		Hint:        st.Hint,
	}
	if patch.Order != nil {
		in.Order = *patch.Order
	}
	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Type != nil {
		in.Type = *patch.Type
	}
	if patch.Challenge != nil {
		in.Challenge = *patch.Challenge
	}
	if patch.Solution != nil {
		in.Solution = *patch.Solution
	}
	if patch.Hint != nil {
		in.Hint = *patch.Hint
	}
	if err := validStage(in); err != nil {
		return model.Stage{}, err
	}
	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE stages SET ord = ?, title = ?, description = ?, type = ?, challenge = ?, solution = ?, hint = ?, updated_at = ?
		 WHERE id = ?`,
		in.Order, in.Title, in.Description, string(in.Type), in.Challenge, in.Solution, in.Hint, formatTime(now), id,
	); err != nil {
		return model.Stage{}, unavailable("update stage", err)
	}
	updated := stageFrom(id, in, st.CreatedAt)
	updated.UpdatedAt = now
	return updated, nil
}

// DeleteStage removes the stage with id.
func (s *Store) DeleteStage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stages WHERE id = ?`, id)
	if err != nil {
		return unavailable("delete stage", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete stage", err)
	}
	if n == 0 {
		return fmt.Errorf("stage %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// ReplaceStages swaps the whole catalog in one transaction. Ids restart at 1.
func (s *Store) ReplaceStages(ctx context.Context, inputs []model.StageInput) ([]model.Stage, error) {
	for _, in := range inputs {
		if err := validStage(in); err != nil {
			return nil, err
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin stage import", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM stages`); err != nil {
		return nil, unavailable("clear stages", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stages (id, ord, title, description, type, challenge, solution, hint, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, unavailable("prepare stage insert", err)
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()

	now := s.now().UTC()
	stages := make([]model.Stage, 0, len(inputs))
	for i, in := range inputs {
		id := int64(i + 1)
		if _, err := stmt.ExecContext(ctx, id, in.Order, in.Title, in.Description, string(in.Type),
			in.Challenge, in.Solution, in.Hint, formatTime(now), formatTime(now)); err != nil {
			return nil, unavailable("insert stage", err)
		}
		stages = append(stages, stageFrom(id, in, now))
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit stage import", err)
	}
	return stages, nil
}

func validStage(in model.StageInput) error {
	return catalog.ValidateInput(in)
}

func stageFrom(id int64, in model.StageInput, at time.Time) model.Stage {
	st := catalog.FromInput(id, in)
	st.CreatedAt = at
	st.UpdatedAt = at
	return st
}

func scanStage(row scanner) (model.Stage, error) {
	var st model.Stage
	var typ, createdAt, updatedAt string
	if err := row.Scan(&st.ID, &st.Order, &st.Title, &st.Description, &typ,
		&st.Challenge, &st.Solution, &st.Hint, &createdAt, &updatedAt); err != nil {
		return model.Stage{}, err
	}
	st.Type = model.StageType(typ)
	var err error
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Stage{}, err
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Stage{}, err
	}
	return st, nil
}
