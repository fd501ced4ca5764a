package model

import (
	"time"

	"github.com/okian/pitwall/internal/domain/scoring"
)

// ScoringJob asks a worker to score one bet against one results revision.
// Results and FastestLapDriverID are a snapshot taken when the job was
// enqueued, so later submissions cannot change what the job sees.
type ScoringJob struct {
	Key                string
	BetID              string
	UserID             string
	RaceID             string
	Season             int
	Revision           int
	Prediction         scoring.Prediction
	Results            []scoring.Result
	FastestLapDriverID string
	EnqueuedAt         time.Time

	// Reply, when set, receives exactly one Outcome. It must be buffered
	// enough that the worker never blocks on it.
	Reply chan<- JobOutcome
}

// JobOutcome reports what happened to a ScoringJob.
type JobOutcome struct {
	BetID     string
	UserID    string
	Breakdown scoring.Breakdown
	Attempts  int
	Err       error
}
