package simulate

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/pkg/logger"
)

// verify checks every user's race score and the ordering of the top of the
// race board.
func verify(ctx context.Context, c *client, cfg Config, raceID string, expected map[string]int,
	stats *Stats, log logger.Logger,
) error {
	var retrieved, mismatches atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for user, want := range expected {
		g.Go(func() error {
			e, err := c.rank(gctx, raceID, user)
			if err != nil {
				return fmt.Errorf("rank %s: %w", user, err)
			}
			retrieved.Add(1)
			if e.Score != want {
				mismatches.Add(1)
				log.Warn(gctx, "score mismatch",
					logger.String("user_id", user),
					logger.Int("server", e.Score),
					logger.Int("local", want))
			}
			return nil
		})
	}
	err := g.Wait()
	stats.RanksRetrieved = int(retrieved.Load())
	stats.Mismatches = int(mismatches.Load())
	if err != nil {
		return err
	}

	board, err := c.leaderboard(ctx, raceID, cfg.TopN)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if err := checkOrdering(board); err != nil {
		return err
	}
	if stats.Mismatches > 0 {
		return fmt.Errorf("%w: %d of %d users", ErrMismatch, stats.Mismatches, len(expected))
	}
	log.Info(ctx, "race board verified", logger.Int("entries", len(board)))
	return nil
}

// checkOrdering validates score order, user ID tie-breaks and dense ranks.
func checkOrdering(board []types.Entry) error {
	for i := 1; i < len(board); i++ {
		prev, cur := board[i-1], board[i]
		switch {
		case cur.Score > prev.Score:
			return fmt.Errorf("%w: entry %d outscores entry %d", ErrMismatch, i, i-1)
		case cur.Score == prev.Score && (cur.UserID < prev.UserID || cur.Rank != prev.Rank):
			return fmt.Errorf("%w: tie at entry %d is not ordered by user or ranked equally", ErrMismatch, i)
		case cur.Score < prev.Score && cur.Rank != prev.Rank+1:
			return fmt.Errorf("%w: entry %d has rank %d after rank %d", ErrMismatch, i, cur.Rank, prev.Rank)
		}
	}
	return nil
}
