package simulate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/pkg/logger"
)

// bettingWindow keeps the generated race open long enough to place every bet.
const bettingWindow = time.Hour

// Run creates a race, places a bet for every simulated user, submits random
// results and verifies the race board against local scoring.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	cfg.normalize()
	log := logger.Get().Named("simulate")
	stats := Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.AdminToken, cfg.Timeout)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", int64(cfg.Seed)))

	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	drivers, err := c.drivers(ctx)
	if err != nil {
		return stats, fmt.Errorf("list drivers: %w", err)
	}
	ids := make([]string, len(drivers))
	for i, d := range drivers {
		ids[i] = d.ID
	}
	if len(ids) < cfg.Positions {
		return stats, fmt.Errorf("%d active drivers, %d positions needed: seed the grid first", len(ids), cfg.Positions)
	}
	gen := newGenerator(cfg.Seed, ids)

	start := time.Now().Add(bettingWindow).UTC().Truncate(time.Second)
	race, err := c.createRace(ctx, map[string]any{
		"name":     fmt.Sprintf("Simulated Grand Prix %d", cfg.Seed%10_000),
		"location": "Simulator",
		"date":     start,
		"season":   cfg.Season,
		"round":    1 + int(cfg.Seed%20),
	})
	if err != nil {
		return stats, fmt.Errorf("create race: %w", err)
	}
	stats.RaceID = race.ID

	predictions, err := placeBets(ctx, c, cfg, race.ID, gen, &stats, log)
	if err != nil {
		return stats, err
	}

	results, fastest := gen.results()
	rep, err := c.submitResults(ctx, race.ID, results, fastest)
	if err != nil {
		return stats, fmt.Errorf("submit results: %w", err)
	}
	stats.Scored = rep.Scored
	if len(rep.Failed) > 0 || rep.Pending > 0 {
		log.Warn(ctx, "scoring incomplete",
			logger.Int("failed", len(rep.Failed)),
			logger.Int("pending", rep.Pending))
	}

	expected := make(map[string]int, len(predictions))
	for user, p := range predictions {
		expected[user] = scoring.Calculate(p, results, fastest).TotalScore
	}

	err = verify(ctx, c, cfg, race.ID, expected, &stats, log)
	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, err
}

// placeBets submits one bet per user with at most cfg.Workers in flight and
// returns the predictions the server accepted.
func placeBets(ctx context.Context, c *client, cfg Config, raceID string, gen *generator,
	stats *Stats, log logger.Logger,
) (map[string]scoring.Prediction, error) {
	preds := make(map[string]scoring.Prediction, cfg.Users)
	for i := range cfg.Users {
		preds[userID(i)] = gen.prediction(cfg.Positions)
	}

	var (
		mu       sync.Mutex
		accepted = make(map[string]scoring.Prediction, cfg.Users)
		failed   atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for user, p := range preds {
		g.Go(func() error {
			if _, err := c.placeBet(gctx, user, raceID, p); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				failed.Add(1)
				log.Debug(gctx, "bet rejected", logger.String("user_id", user), logger.Error(err))
				return nil
			}
			mu.Lock()
			accepted[user] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("place bets: %w", err)
	}

	stats.BetsSubmitted = len(accepted)
	stats.BetsFailed = int(failed.Load())
	log.Info(ctx, "bets placed",
		logger.Int("accepted", stats.BetsSubmitted),
		logger.Int("failed", stats.BetsFailed))
	return accepted, nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.BetsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.String("raceID", stats.RaceID),
		logger.Int("betsSubmitted", stats.BetsSubmitted),
		logger.Int("betsFailed", stats.BetsFailed),
		logger.Int("scored", stats.Scored),
		logger.Int("ranksRetrieved", stats.RanksRetrieved),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("betsPerSecond", perSecond))
}
