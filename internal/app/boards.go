package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/pitwall/internal/adapters/mq/worker"
	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/adapters/storage"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/internal/domain/types"
	"github.com/okian/pitwall/pkg/logger"
)

// ApplyScore persists b for the job's bet and refreshes the race, season
// and overall boards. It is the workers' Updater.
//
// The user's lock is held from the write to the last board update, so a job
// for an older revision cannot put its score on a board after a newer one.
func (s *Service) ApplyScore(ctx context.Context, job worker.Job, b scoring.Breakdown) error { //nolint:gocritic // hugeParam: jobs travel by value
	unlock := s.lockUser(job.UserID)
	defer unlock()

	if err := s.store.SaveScore(ctx, job.BetID, job.Revision, b); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrStaleRevision) {
			return fmt.Errorf("%w: %w", worker.ErrPermanent, err)
		}
		return err
	}
	if err := s.boards.Board(repository.RaceBoard(job.RaceID)).Set(ctx, job.UserID, b.TotalScore); err != nil {
		return err
	}
	return s.refreshTotalsLocked(ctx, job.UserID, job.Season)
}

// refreshTotals recomputes a user's overall and season totals from storage.
// Totals are re-read rather than incremented so replayed jobs and
// re-submitted results cannot double count.
func (s *Service) refreshTotals(ctx context.Context, userID string, season int) error {
	unlock := s.lockUser(userID)
	defer unlock()
	return s.refreshTotalsLocked(ctx, userID, season)
}

// refreshTotalsLocked is refreshTotals for callers holding the user's lock.
func (s *Service) refreshTotalsLocked(ctx context.Context, userID string, season int) error {
	for _, scope := range []struct {
		key    string
		season int
	}{
		{repository.OverallBoard, 0},
		{repository.SeasonBoard(season), season},
	} {
		total, ok, err := s.store.UserTotal(ctx, userID, scope.season)
		if err != nil {
			return err
		}
		if !ok {
			if board, exists := s.boards.Lookup(scope.key); exists {
				board.Remove(ctx, userID)
			}
			continue
		}
		if err := s.boards.Board(scope.key).Set(ctx, userID, total); err != nil {
			return err
		}
	}
	return nil
}

// rebuildBoards loads every board from storage.
func (s *Service) rebuildBoards(ctx context.Context) error {
	load := func(key string, season int) error {
		totals, err := s.store.UserTotals(ctx, season)
		if err != nil {
			return err
		}
		for _, t := range totals {
			if err := s.boards.Board(key).Set(ctx, t.UserID, t.Total); err != nil {
				return err
			}
		}
		return nil
	}

	if err := load(repository.OverallBoard, 0); err != nil {
		return err
	}
	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		return err
	}
	for _, season := range seasons {
		if err := load(repository.SeasonBoard(season), season); err != nil {
			return err
		}
	}

	races, err := s.store.ListRaces(ctx, 0)
	if err != nil {
		return err
	}
	for _, race := range races {
		if !race.IsCompleted {
			continue
		}
		bets, err := s.store.BetsForRace(ctx, race.ID)
		if err != nil {
			return err
		}
		for _, b := range bets {
			if !b.Scored() {
				continue
			}
			if err := s.boards.Board(repository.RaceBoard(race.ID)).Set(ctx, b.UserID, *b.Score); err != nil {
				return err
			}
		}
	}
	s.logger.Info(ctx, "leaderboards rebuilt", logger.Int("boards", len(s.boards.Keys())))
	return nil
}

// Leaderboard returns the top n entries of board. Boards nobody has scored
// on yet are empty.
func (s *Service) Leaderboard(ctx context.Context, board string, n int) ([]types.Entry, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	if err := repository.ValidateBoard(board); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	store, ok := s.boards.Lookup(board)
	if !ok {
		return []types.Entry{}, nil
	}
	entries, err := store.TopN(ctx, n)
	if err != nil {
		return nil, err
	}

	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{Rank: e.Rank, UserID: e.UserID, Score: e.Score}
	}
	return out, nil
}

// Rank returns userID's position on board.
func (s *Service) Rank(ctx context.Context, board, userID string) (types.Entry, error) {
	if err := s.running(); err != nil {
		return types.Entry{}, err
	}
	if err := repository.ValidateBoard(board); err != nil {
		return types.Entry{}, err
	}
	store, ok := s.boards.Lookup(board)
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %s has no entries", ErrNotFound, board)
	}
	e, err := store.Rank(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return types.Entry{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return types.Entry{}, err
	}
	return types.Entry{Rank: e.Rank, UserID: e.UserID, Score: e.Score}, nil
}

// Winners returns the best scored bets across all races.
func (s *Service) Winners(ctx context.Context, limit int) ([]model.ScoredBet, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	return s.store.TopBets(ctx, limit)
}
