package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
	"github.com/okian/pitwall/pkg/logger"
)

func validateRace(r model.Race) error {
	switch {
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRace)
	case r.Date.IsZero():
		return fmt.Errorf("%w: date is required", ErrInvalidRace)
	case r.Season < 1950:
		return fmt.Errorf("%w: season %d", ErrInvalidRace, r.Season)
	case r.Round < 1:
		return fmt.Errorf("%w: round %d", ErrInvalidRace, r.Round)
	case !r.BettingDeadline.IsZero() && r.BettingDeadline.After(r.Date):
		return fmt.Errorf("%w: betting deadline after race start", ErrInvalidRace)
	}
	return nil
}

// CreateRace adds a race to the calendar.
func (s *Service) CreateRace(ctx context.Context, r model.Race) (model.Race, error) {
	if err := validateRace(r); err != nil {
		return model.Race{}, err
	}
	created, err := s.store.CreateRace(ctx, r)
	if err != nil {
		return model.Race{}, err
	}
	s.logger.Info(ctx, "race created",
		logger.String("race_id", created.ID),
		logger.String("name", created.Name),
		logger.Int("season", created.Season))
	return created, nil
}

// UpdateRace replaces the editable fields of a race.
func (s *Service) UpdateRace(ctx context.Context, r model.Race) (model.Race, error) {
	if err := validateRace(r); err != nil {
		return model.Race{}, err
	}
	before, err := s.store.GetRace(ctx, r.ID)
	if err != nil {
		return model.Race{}, err
	}
	updated, err := s.store.UpdateRace(ctx, r)
	if err != nil {
		return model.Race{}, err
	}
	if before.Season != updated.Season && updated.IsCompleted {
		// scored bets moved between season boards
		if err := s.refreshRaceUsers(ctx, updated.ID, before.Season, updated.Season); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// DeleteRace removes a race, its results and bets, and takes the bets'
// points off every leaderboard.
func (s *Service) DeleteRace(ctx context.Context, id string) error {
	race, err := s.store.GetRace(ctx, id)
	if err != nil {
		return err
	}
	bets, err := s.store.BetsForRace(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRace(ctx, id); err != nil {
		return err
	}

	if !s.isStarted() {
		return nil
	}
	s.boards.Drop(repository.RaceBoard(id))
	for _, b := range bets {
		if !b.Scored() {
			continue
		}
		if err := s.refreshTotals(ctx, b.UserID, race.Season); err != nil {
			return fmt.Errorf("refresh totals for %s: %w", b.UserID, err)
		}
	}
	s.logger.Info(ctx, "race deleted", logger.String("race_id", id), logger.Int("bets", len(bets)))
	return nil
}

func (s *Service) refreshRaceUsers(ctx context.Context, raceID string, seasons ...int) error {
	if !s.isStarted() {
		return nil
	}
	bets, err := s.store.BetsForRace(ctx, raceID)
	if err != nil {
		return err
	}
	for _, b := range bets {
		if !b.Scored() {
			continue
		}
		for _, season := range seasons {
			if err := s.refreshTotals(ctx, b.UserID, season); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRace returns one race.
func (s *Service) GetRace(ctx context.Context, id string) (model.Race, error) {
	return s.store.GetRace(ctx, id)
}

// ListRaces returns races newest first; season 0 lists all.
func (s *Service) ListRaces(ctx context.Context, season int) ([]model.Race, error) {
	return s.store.ListRaces(ctx, season)
}

// CreateDriver registers a driver.
func (s *Service) CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	code := strings.TrimSpace(d.Code)
	if strings.TrimSpace(d.Name) == "" || len(code) < 2 || len(code) > 4 || d.Number < 0 {
		return model.Driver{}, fmt.Errorf("%w: name, 2-4 letter code and number are required", ErrInvalidDriver)
	}
	return s.store.CreateDriver(ctx, d)
}

// ListDrivers lists drivers, optionally only active ones.
func (s *Service) ListDrivers(ctx context.Context, activeOnly bool) ([]model.Driver, error) {
	return s.store.ListDrivers(ctx, activeOnly)
}

// Results returns a race's stored classification.
func (s *Service) Results(ctx context.Context, raceID string) (model.Race, []scoring.Result, error) {
	race, err := s.store.GetRace(ctx, raceID)
	if err != nil {
		return model.Race{}, nil, err
	}
	results, err := s.store.Results(ctx, raceID)
	if err != nil {
		return model.Race{}, nil, err
	}
	return race, results, nil
}
