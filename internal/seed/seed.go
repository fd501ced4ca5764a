// Package seed loads the driver grid and race calendar used to bootstrap a
// fresh database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/pitwall/internal/adapters/storage"
	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/pkg/logger"
)

// ErrInvalidFile is returned for seed files that cannot be applied.
var ErrInvalidFile = errors.New("invalid seed file")

// File is the YAML seed document.
type File struct {
	Drivers []Driver `yaml:"drivers"`
	Races   []Race   `yaml:"races"`
}

// Driver is a seeded driver. The code doubles as the ID when ID is empty.
type Driver struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Number   int    `yaml:"number"`
	Team     string `yaml:"team"`
	Code     string `yaml:"code"`
	Inactive bool   `yaml:"inactive"`
}

// Race is a seeded race. Either Date or InDays (relative to the time the
// seed is applied) must be set.
type Race struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Location string     `yaml:"location"`
	Date     *time.Time `yaml:"date"`
	InDays   *int       `yaml:"in_days"`
	Season   int        `yaml:"season"`
	Round    int        `yaml:"round"`
	// DeadlineHours closes betting this many hours before the start.
	DeadlineHours int  `yaml:"deadline_hours"`
	Inactive      bool `yaml:"inactive"`
}

// Catalogue is where seeds are written.
type Catalogue interface {
	CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error)
	CreateRace(ctx context.Context, r model.Race) (model.Race, error)
}

// Summary counts what Apply did.
type Summary struct {
	Drivers int
	Races   int
	Skipped int
}

// Parse decodes a YAML seed document.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}
	for i, r := range f.Races {
		if r.Date == nil && r.InDays == nil {
			return File{}, fmt.Errorf("%w: race %d (%s) has neither date nor in_days", ErrInvalidFile, i, r.Name)
		}
	}
	return f, nil
}

// Load reads and parses path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed: %w", err)
	}
	return Parse(data)
}

// Apply writes f into c. Records that already exist are skipped, so
// applying the same file twice is harmless.
func Apply(ctx context.Context, c Catalogue, f File, now time.Time, log logger.Logger) (Summary, error) {
	var sum Summary
	for _, d := range f.Drivers {
		id := d.ID
		if id == "" {
			id = strings.ToUpper(d.Code)
		}
		_, err := c.CreateDriver(ctx, model.Driver{
			ID: id, Name: d.Name, Number: d.Number, Team: d.Team, Code: d.Code, IsActive: !d.Inactive,
		})
		switch {
		case isConflict(err):
			sum.Skipped++
		case err != nil:
			return sum, fmt.Errorf("driver %s: %w", d.Code, err)
		default:
			sum.Drivers++
		}
	}

	for _, r := range f.Races {
		race := r.toModel(now)
		_, err := c.CreateRace(ctx, race)
		switch {
		case isConflict(err):
			sum.Skipped++
		case err != nil:
			return sum, fmt.Errorf("race %s: %w", r.Name, err)
		default:
			sum.Races++
		}
	}

	log.Info(ctx, "seed applied",
		logger.Int("drivers", sum.Drivers),
		logger.Int("races", sum.Races),
		logger.Int("skipped", sum.Skipped))
	return sum, nil
}

func (r Race) toModel(now time.Time) model.Race {
	date := now
	if r.Date != nil {
		date = *r.Date
	} else if r.InDays != nil {
		date = now.AddDate(0, 0, *r.InDays)
	}
	date = date.UTC().Truncate(time.Minute)
	out := model.Race{
		ID:       r.ID,
		Name:     r.Name,
		Location: r.Location,
		Date:     date,
		Season:   r.Season,
		Round:    r.Round,
		IsActive: !r.Inactive,
	}
	if r.DeadlineHours > 0 {
		out.BettingDeadline = date.Add(-time.Duration(r.DeadlineHours) * time.Hour)
	}
	return out
}

func isConflict(err error) bool {
	return errors.Is(err, storage.ErrConflict)
}
