package repository

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrNotFound     = errors.New("user not on leaderboard")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidBoard = errors.New("invalid leaderboard key")
)
