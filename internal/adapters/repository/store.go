// Package repository holds the in-memory leaderboards: one ranking store per
// board (overall, per season, per race) keyed in a Boards registry.
package repository

import "context"

// Entry represents a leaderboard row.
type Entry struct {
	Rank   int
	UserID string
	Score  int
}

// Store provides read/write access to one board's ranking state.
type Store interface {
	// Set records userID's absolute score, replacing any previous one.
	Set(ctx context.Context, userID string, score int) error

	// Remove drops userID from the board. Returns false if it was absent.
	Remove(ctx context.Context, userID string) bool

	// Rank returns the current rank and score for a user.
	// Returns ErrNotFound if the user is not on the board.
	Rank(ctx context.Context, userID string) (Entry, error)

	// TopN returns the top-N entries ordered by score desc, user id asc.
	TopN(ctx context.Context, n int) ([]Entry, error)

	// Count returns the number of users on the board.
	Count(ctx context.Context) int
}
