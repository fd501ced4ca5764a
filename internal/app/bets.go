package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/pitwall/internal/domain/betting"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/pkg/logger"
	"github.com/okian/pitwall/pkg/metrics"
)

// PlaceBet stores user's prediction for raceID, replacing an earlier one.
// Bets are refused once the deadline has passed or the race is completed.
func (s *Service) PlaceBet(ctx context.Context, user model.User, raceID string, p scoring.Prediction) (model.Bet, error) {
	if user.ID == "" {
		return model.Bet{}, fmt.Errorf("%w: missing user", ErrInvalidPrediction)
	}
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return model.Bet{}, err
	}
	if err := betting.CheckDeadline(race, s.now()); err != nil {
		s.rejectBet(ctx, user.ID, raceID, "betting_closed", err)
		return model.Bet{}, err
	}

	known, err := s.knownDrivers(ctx)
	if err != nil {
		return model.Bet{}, err
	}
	if err := betting.ValidatePrediction(p, betting.Rules{MinPositions: s.minPositions, KnownDrivers: known}); err != nil {
		s.rejectBet(ctx, user.ID, raceID, "invalid_prediction", err)
		return model.Bet{}, err
	}

	if _, err := s.store.EnsureUser(ctx, user); err != nil {
		return model.Bet{}, err
	}
	bet, err := s.store.UpsertBet(ctx, user.ID, raceID, p)
	if err != nil {
		return model.Bet{}, err
	}

	s.betsPlaced.Add(1)
	metrics.RecordBetSubmitted()
	s.logger.Debug(ctx, "bet placed",
		logger.String("bet_id", bet.ID),
		logger.String("user_id", user.ID),
		logger.String("race_id", raceID))
	return bet, nil
}

func (s *Service) rejectBet(ctx context.Context, userID, raceID, reason string, err error) {
	metrics.RecordBetRejected(reason)
	s.logger.Debug(ctx, "bet rejected",
		logger.String("user_id", userID),
		logger.String("race_id", raceID),
		logger.Error(err))
}

// knownDrivers returns the active driver IDs, or nil when no drivers are
// registered so that predictions are not restricted.
func (s *Service) knownDrivers(ctx context.Context) (map[string]struct{}, error) {
	drivers, err := s.store.ListDrivers(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(drivers) == 0 {
		return nil, nil
	}
	known := make(map[string]struct{}, len(drivers))
	for _, d := range drivers {
		known[d.ID] = struct{}{}
	}
	return known, nil
}

// UserBets lists a user's bets, newest first.
func (s *Service) UserBets(ctx context.Context, userID string) ([]model.Bet, error) {
	return s.store.BetsForUser(ctx, userID)
}

// GetBet returns a bet. When userID is set the bet must belong to that user.
func (s *Service) GetBet(ctx context.Context, userID, betID string) (model.Bet, error) {
	bet, err := s.store.GetBet(ctx, betID)
	if err != nil {
		return model.Bet{}, err
	}
	if userID != "" && bet.UserID != userID {
		// other users' bets are invisible rather than forbidden
		return model.Bet{}, fmt.Errorf("bet %s: %w", betID, ErrNotFound)
	}
	return bet, nil
}

// GetUser returns a known user.
func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, err
}
