// Package simulate drives a running server through a full betting round and
// checks the scores it reports against a local run of the scoring engine.
package simulate

import (
	"errors"
	"time"
)

// ErrMismatch is returned when the server disagrees with the local engine.
var ErrMismatch = errors.New("server scores disagree with local scoring")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // server base URL
	AdminToken string        // X-Admin-Token for race and results routes
	Users      int           // number of simulated bettors
	Positions  int           // positions each prediction fills
	Workers    int           // concurrent HTTP requests
	Timeout    time.Duration // per-request timeout
	Season     int           // season of the generated race
	Seed       uint64        // random seed; 0 picks one from the clock
	TopN       int           // leaderboard size to fetch and check
}

// Stats summarises a simulation run.
type Stats struct {
	RaceID         string
	BetsSubmitted  int
	BetsFailed     int
	Scored         int
	RanksRetrieved int
	Mismatches     int
	StartTime      time.Time
	Duration       time.Duration
}

func (c *Config) normalize() {
	if c.Users < 1 {
		c.Users = 100
	}
	if c.Positions < 1 {
		c.Positions = 10
	}
	if c.Workers < 1 {
		c.Workers = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Season < 1 {
		c.Season = time.Now().Year()
	}
	if c.TopN < 1 {
		c.TopN = 10
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
}
