// Package betting holds the rules applied to bets and results before they
// reach storage or the scoring engine.
package betting

import (
	"fmt"
	"time"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
)

// MaxPosition is the last grid slot a prediction or result may name.
const MaxPosition = 20

// Rules configures ValidatePrediction.
type Rules struct {
	// MinPositions is the number of filled positions a bet needs.
	MinPositions int
	// KnownDrivers, when non-nil, restricts every driver reference.
	KnownDrivers map[string]struct{}
}

// ValidatePrediction rejects shapes the engine would score ambiguously:
// duplicate slots, duplicate drivers and out-of-range positions.
func ValidatePrediction(p scoring.Prediction, rules Rules) error {
	if len(p.Positions) < rules.MinPositions {
		return fmt.Errorf("%w: %d positions filled, at least %d required",
			ErrInvalidPrediction, len(p.Positions), rules.MinPositions)
	}

	slots := make(map[int]struct{}, len(p.Positions))
	drivers := make(map[string]struct{}, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.Position < 1 || pos.Position > MaxPosition {
			return fmt.Errorf("%w: position %d out of range 1-%d", ErrInvalidPrediction, pos.Position, MaxPosition)
		}
		if pos.DriverID == "" {
			return fmt.Errorf("%w: position %d has no driver", ErrInvalidPrediction, pos.Position)
		}
		if _, dup := slots[pos.Position]; dup {
			return fmt.Errorf("%w: position %d predicted twice", ErrInvalidPrediction, pos.Position)
		}
		if _, dup := drivers[pos.DriverID]; dup {
			return fmt.Errorf("%w: driver %s predicted twice", ErrInvalidPrediction, pos.DriverID)
		}
		if err := rules.known(pos.DriverID); err != nil {
			return err
		}
		slots[pos.Position] = struct{}{}
		drivers[pos.DriverID] = struct{}{}
	}

	if p.FastestLap != "" {
		if err := rules.known(p.FastestLap); err != nil {
			return err
		}
	}

	dnfs := make(map[string]struct{}, len(p.DNFs))
	for _, id := range p.DNFs {
		if _, dup := dnfs[id]; dup {
			return fmt.Errorf("%w: driver %s listed as DNF twice", ErrInvalidPrediction, id)
		}
		if err := rules.known(id); err != nil {
			return err
		}
		dnfs[id] = struct{}{}
	}
	return nil
}

func (r Rules) known(driverID string) error {
	if r.KnownDrivers == nil {
		return nil
	}
	if _, ok := r.KnownDrivers[driverID]; !ok {
		return fmt.Errorf("%w: unknown driver %s", ErrInvalidPrediction, driverID)
	}
	return nil
}

// CheckDeadline returns ErrBettingClosed when race no longer accepts bets.
func CheckDeadline(race model.Race, now time.Time) error {
	if race.BettingOpen(now) {
		return nil
	}
	switch {
	case race.IsCompleted:
		return fmt.Errorf("%w: %s is completed", ErrBettingClosed, race.Name)
	case !race.IsActive:
		return fmt.Errorf("%w: %s is not active", ErrBettingClosed, race.Name)
	default:
		return fmt.Errorf("%w: deadline %s passed", ErrBettingClosed, race.BettingDeadline.Format(time.RFC3339))
	}
}

// ValidateResults checks an official classification before it is stored.
// Every entry must name a driver; the checked slice is returned.
func ValidateResults(results []scoring.Result, fastestLapDriverID string) ([]scoring.Result, error) {
	out := make([]scoring.Result, 0, len(results))
	drivers := make(map[string]struct{}, len(results))
	slots := make(map[int]string, len(results))

	for i, r := range results {
		if r.DriverID == "" {
			return nil, fmt.Errorf("%w: result %d has no driver", ErrInvalidResults, i)
		}
		if _, dup := drivers[r.DriverID]; dup {
			return nil, fmt.Errorf("%w: driver %s listed twice", ErrInvalidResults, r.DriverID)
		}
		if r.Position != nil {
			pos := *r.Position
			if pos < 1 || pos > MaxPosition {
				return nil, fmt.Errorf("%w: position %d out of range 1-%d", ErrInvalidResults, pos, MaxPosition)
			}
			if other, dup := slots[pos]; dup {
				return nil, fmt.Errorf("%w: position %d given to %s and %s", ErrInvalidResults, pos, other, r.DriverID)
			}
			slots[pos] = r.DriverID
		}
		drivers[r.DriverID] = struct{}{}
		out = append(out, r)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no results", ErrInvalidResults)
	}
	if fastestLapDriverID != "" {
		if _, ok := drivers[fastestLapDriverID]; !ok {
			return nil, fmt.Errorf("%w: fastest lap driver %s has no result", ErrInvalidResults, fastestLapDriverID)
		}
	}
	return out, nil
}

// FastestLapFromResults returns the driver flagged with the fastest lap, if any.
func FastestLapFromResults(results []scoring.Result) string {
	for _, r := range results {
		if r.FastestLap {
			return r.DriverID
		}
	}
	return ""
}
