package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/escaperoom/internal/model"
)

const userColumns = `id, username, email, created_at, updated_at`

// CreateUser inserts a new player. Usernames are unique.
func (s *Store) CreateUser(ctx context.Context, in model.NewUser) (model.User, error) {
	username := strings.TrimSpace(in.Username)
	if !model.ValidUsername(username) {
		return model.User{}, fmt.Errorf("%w: username must be %d to %d characters",
			model.ErrInvalidInput, model.MinUsernameLen, model.MaxUsernameLen)
	}
	if _, err := s.FindUserByUsername(ctx, username); err == nil {
		return model.User{}, fmt.Errorf("%w: username %q is taken", model.ErrConflict, username)
	} else if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}
	now := s.now().UTC()
	user := model.User{
		ID:        s.ids(),
		Username:  username,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var email sql.NullString
	if in.Email != nil {
		email = sql.NullString{String: *in.Email, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Username, email, formatTime(now), formatTime(now),
	); err != nil {
		return model.User{}, unavailable("create user", err)
	}
	return user, nil
}

// FindUserByUsername looks a player up by name.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %q: %w", username, model.ErrNotFound)
	}
	if err != nil {
		return model.User{}, unavailable("find user", err)
	}
	return user, nil
}

// EnsureUser returns the player named username, creating it if absent.
func (s *Store) EnsureUser(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.FindUserByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.User{}, err
	}
	return s.CreateUser(ctx, model.NewUser{Username: username})
}

// GetUser returns the player with id.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.User{}, unavailable("get user", err)
	}
	return user, nil
}

// ListUsers returns all players, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer closeRows(rows)

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, unavailable("scan user", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list users", err)
	}
	return users, nil
}

func (s *Store) userExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return unavailable("look up user", err)
	}
	return nil
}

func scanUser(row scanner) (model.User, error) {
	var user model.User
	var email sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&user.ID, &user.Username, &email, &createdAt, &updatedAt); err != nil {
		return model.User{}, err
	}
	if email.Valid {
		user.Email = &email.String
	}
	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.User{}, err
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.User{}, err
	}
	return user, nil
}
