package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
)

const raceColumns = `id, name, location, race_date, season, round, is_completed, is_active,
	betting_deadline, fastest_lap_driver, results_revision, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRace(sc rowScanner) (model.Race, error) {
	var (
		r                       model.Race
		date, deadline, created int64
		fastest                 sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.Name, &r.Location, &date, &r.Season, &r.Round, &r.IsCompleted,
		&r.IsActive, &deadline, &fastest, &r.ResultsRevision, &created); err != nil {
		return model.Race{}, err
	}
	r.Date = fromMillis(date)
	r.BettingDeadline = fromMillis(deadline)
	r.CreatedAt = fromMillis(created)
	r.FastestLapDriverID = fastest.String
	return r, nil
}

// CreateRace inserts r, generating an ID when empty. A zero deadline
// defaults to the race date.
func (s *Store) CreateRace(ctx context.Context, r model.Race) (model.Race, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.BettingDeadline.IsZero() {
		r.BettingDeadline = r.Date
	}
	r.Date = fromMillis(millis(r.Date))
	r.BettingDeadline = fromMillis(millis(r.BettingDeadline))
	r.CreatedAt = fromMillis(millis(s.now()))
	r.IsCompleted = false
	r.ResultsRevision = 0
	r.FastestLapDriverID = ""

	_, err := s.exec(ctx, s.db, `INSERT INTO races (`+raceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Location, millis(r.Date), r.Season, r.Round, r.IsCompleted, r.IsActive,
		millis(r.BettingDeadline), nullString(r.FastestLapDriverID), r.ResultsRevision, millis(r.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Race{}, fmt.Errorf("race %s: %w", r.ID, ErrConflict)
		}
		return model.Race{}, fmt.Errorf("create race: %w", err)
	}
	return r, nil
}

// GetRace loads a race by ID.
func (s *Store) GetRace(ctx context.Context, id string) (model.Race, error) {
	return s.getRace(ctx, s.db, id)
}

func (s *Store) getRace(ctx context.Context, q queryer, id string) (model.Race, error) {
	r, err := scanRace(s.queryRow(ctx, q, `SELECT `+raceColumns+` FROM races WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Race{}, fmt.Errorf("race %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Race{}, fmt.Errorf("get race %s: %w", id, err)
	}
	return r, nil
}

// ListRaces returns races newest first. season 0 lists every season.
func (s *Store) ListRaces(ctx context.Context, season int) ([]model.Race, error) {
	query := `SELECT ` + raceColumns + ` FROM races`
	var args []any
	if season != 0 {
		query += ` WHERE season = ?`
		args = append(args, season)
	}
	query += ` ORDER BY race_date DESC, id`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Race
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan race: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Seasons lists the distinct seasons that have races.
func (s *Store) Seasons(ctx context.Context) ([]int, error) {
	rows, err := s.query(ctx, s.db, `SELECT DISTINCT season FROM races ORDER BY season`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int
	for rows.Next() {
		var season int
		if err := rows.Scan(&season); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		out = append(out, season)
	}
	return out, rows.Err()
}

// UpdateRace overwrites the editable fields of r. Completion state, results
// revision and fastest lap are owned by ReplaceResults and left untouched.
func (s *Store) UpdateRace(ctx context.Context, r model.Race) (model.Race, error) {
	if r.BettingDeadline.IsZero() {
		r.BettingDeadline = r.Date
	}
	res, err := s.exec(ctx, s.db, `UPDATE races SET name = ?, location = ?, race_date = ?, season = ?,
		round = ?, is_active = ?, betting_deadline = ? WHERE id = ?`,
		r.Name, r.Location, millis(r.Date), r.Season, r.Round, r.IsActive, millis(r.BettingDeadline), r.ID)
	if err != nil {
		return model.Race{}, fmt.Errorf("update race %s: %w", r.ID, err)
	}
	if err := expectRows(res, "race", r.ID); err != nil {
		// MySQL reports 0 affected rows when nothing changed
		if _, getErr := s.GetRace(ctx, r.ID); getErr != nil {
			return model.Race{}, err
		}
	}
	return s.GetRace(ctx, r.ID)
}

// DeleteRace removes a race together with its results and bets.
func (s *Store) DeleteRace(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM bets WHERE race_id = ?`, id); err != nil {
			return fmt.Errorf("delete bets of %s: %w", id, err)
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM results WHERE race_id = ?`, id); err != nil {
			return fmt.Errorf("delete results of %s: %w", id, err)
		}
		res, err := s.exec(ctx, tx, `DELETE FROM races WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete race %s: %w", id, err)
		}
		return expectRows(res, "race", id)
	})
}

// ReplaceResults swaps the race's classification for results in a single
// transaction, marks the race completed, records the fastest lap and bumps
// the results revision. The updated race is returned.
func (s *Store) ReplaceResults(ctx context.Context, raceID string, results []scoring.Result, fastestLap string) (model.Race, error) {
	var race model.Race
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getRace(ctx, tx, raceID); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx, `DELETE FROM results WHERE race_id = ?`, raceID); err != nil {
			return fmt.Errorf("clear results: %w", err)
		}
		for _, r := range results {
			_, err := s.exec(ctx, tx, `INSERT INTO results (race_id, driver_id, finish_position, dnf, fastest_lap)
				VALUES (?, ?, ?, ?, ?)`,
				raceID, r.DriverID, nullInt(r.Position), r.DNF, r.DriverID == fastestLap)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("result for %s: %w", r.DriverID, ErrConflict)
				}
				return fmt.Errorf("insert result %s: %w", r.DriverID, err)
			}
		}
		if _, err := s.exec(ctx, tx, `UPDATE races SET is_completed = ?, fastest_lap_driver = ?,
			results_revision = results_revision + 1 WHERE id = ?`,
			true, nullString(fastestLap), raceID); err != nil {
			return fmt.Errorf("complete race: %w", err)
		}
		var err error
		race, err = s.getRace(ctx, tx, raceID)
		return err
	})
	if err != nil {
		return model.Race{}, fmt.Errorf("replace results for %s: %w", raceID, err)
	}
	return race, nil
}

// Results returns the stored classification ordered by position, with
// unclassified drivers last.
func (s *Store) Results(ctx context.Context, raceID string) ([]scoring.Result, error) {
	rows, err := s.query(ctx, s.db, `SELECT driver_id, finish_position, dnf, fastest_lap FROM results
		WHERE race_id = ?
		ORDER BY CASE WHEN finish_position IS NULL THEN 1 ELSE 0 END, finish_position, driver_id`, raceID)
	if err != nil {
		return nil, fmt.Errorf("results for %s: %w", raceID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []scoring.Result
	for rows.Next() {
		var (
			r   scoring.Result
			pos sql.NullInt64
		)
		if err := rows.Scan(&r.DriverID, &pos, &r.DNF, &r.FastestLap); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Position = intPtr(pos)
		out = append(out, r)
	}
	return out, rows.Err()
}

func expectRows(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
