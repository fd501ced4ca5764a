package service

import (
	"errors"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/adapters/storage"
	"github.com/okian/pitwall/internal/domain/betting"
)

// Errors callers can match with errors.Is. Several alias the sentinel of
// the layer that produces them.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrQueueFull         = errors.New("scoring queue full")
	ErrNotFound          = storage.ErrNotFound
	ErrConflict          = storage.ErrConflict
	ErrInvalidPrediction = betting.ErrInvalidPrediction
	ErrInvalidResults    = betting.ErrInvalidResults
	ErrBettingClosed     = betting.ErrBettingClosed
	ErrInvalidBoard      = repository.ErrInvalidBoard
	ErrInvalidLimit      = repository.ErrInvalidLimit
	ErrInvalidRace       = errors.New("invalid race")
	ErrInvalidDriver     = errors.New("invalid driver")
)
