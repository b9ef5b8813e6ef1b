package model

import "errors"

// Error taxonomy shared by the store, the leaderboard and the API.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("persistence unavailable")
)
