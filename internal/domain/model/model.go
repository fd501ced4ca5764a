// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/pitwall/internal/domain/scoring"
)

// User is a bettor. Identity comes from the upstream auth layer.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Driver is an entrant that can be predicted.
type Driver struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Number   int    `json:"number"`
	Team     string `json:"team"`
	Code     string `json:"code"` // three-letter code, unique
	IsActive bool   `json:"is_active"`
}

// Race is one grand prix.
type Race struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Location           string    `json:"location"`
	Date               time.Time `json:"date"`
	Season             int       `json:"season"`
	Round              int       `json:"round"`
	IsCompleted        bool      `json:"is_completed"`
	IsActive           bool      `json:"is_active"`
	BettingDeadline    time.Time `json:"betting_deadline"`
	FastestLapDriverID string    `json:"fastest_lap_driver_id,omitempty"`
	ResultsRevision    int       `json:"results_revision"`
	CreatedAt          time.Time `json:"created_at"`
}

// BettingOpen reports whether bets can still be placed at now.
func (r Race) BettingOpen(now time.Time) bool {
	return r.IsActive && !r.IsCompleted && !now.After(r.BettingDeadline)
}

// Bet is one user's prediction for one race. Score is nil until the race
// has been scored.
type Bet struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	RaceID     string             `json:"race_id"`
	Prediction scoring.Prediction `json:"prediction"`
	Score      *int               `json:"score"`
	Details    []scoring.Detail   `json:"scoring_details,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Scored reports whether the bet carries a score.
func (b Bet) Scored() bool { return b.Score != nil }

// ScoredBet joins a scored bet with its race and user for reporting.
type ScoredBet struct {
	BetID    string    `json:"bet_id" parquet:"bet_id,snappy"`
	UserID   string    `json:"user_id" parquet:"user_id,snappy"`
	UserName string    `json:"user_name" parquet:"user_name,snappy"`
	RaceID   string    `json:"race_id" parquet:"race_id,snappy"`
	RaceName string    `json:"race_name" parquet:"race_name,snappy"`
	Season   int       `json:"season" parquet:"season,snappy"`
	Round    int       `json:"round" parquet:"round,snappy"`
	Score    int       `json:"score" parquet:"score,snappy"`
	ScoredAt time.Time `json:"scored_at" parquet:"scored_at,snappy"`
}
