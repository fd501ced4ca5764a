package betting

import "errors"

// Sentinel errors returned by the validators.
var (
	ErrInvalidPrediction = errors.New("invalid prediction")
	ErrInvalidResults    = errors.New("invalid results")
	ErrBettingClosed     = errors.New("betting is closed for this race")
)
