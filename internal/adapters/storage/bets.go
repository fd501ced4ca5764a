package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/pitwall/internal/domain/model"
	"github.com/okian/pitwall/internal/domain/scoring"
)

const betColumns = `id, user_id, race_id, predictions, score, scoring_details, created_at, updated_at`

func scanBet(sc rowScanner) (model.Bet, error) {
	var (
		b                model.Bet
		predictions      string
		score            sql.NullInt64
		details          sql.NullString
		created, updated int64
	)
	if err := sc.Scan(&b.ID, &b.UserID, &b.RaceID, &predictions, &score, &details, &created, &updated); err != nil {
		return model.Bet{}, err
	}
	if err := json.Unmarshal([]byte(predictions), &b.Prediction); err != nil {
		return model.Bet{}, fmt.Errorf("decode prediction of bet %s: %w", b.ID, err)
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &b.Details); err != nil {
			return model.Bet{}, fmt.Errorf("decode details of bet %s: %w", b.ID, err)
		}
	}
	b.Score = intPtr(score)
	b.CreatedAt = fromMillis(created)
	b.UpdatedAt = fromMillis(updated)
	return b, nil
}

// UpsertBet stores the user's prediction for a race. A second call for the
// same user and race replaces the prediction and clears any score.
func (s *Store) UpsertBet(ctx context.Context, userID, raceID string, p scoring.Prediction) (model.Bet, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return model.Bet{}, fmt.Errorf("encode prediction: %w", err)
	}
	now := millis(s.now())

	var out model.Bet
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var id string
		err := s.queryRow(ctx, tx, `SELECT id FROM bets WHERE user_id = ? AND race_id = ?`, userID, raceID).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = uuid.NewString()
			_, err = s.exec(ctx, tx, `INSERT INTO bets (id, user_id, race_id, predictions, score, scoring_details,
				scored_revision, created_at, updated_at) VALUES (?, ?, ?, ?, NULL, NULL, 0, ?, ?)`,
				id, userID, raceID, string(raw), now, now)
		case err == nil:
			_, err = s.exec(ctx, tx, `UPDATE bets SET predictions = ?, score = NULL, scoring_details = NULL,
				updated_at = ? WHERE id = ?`, string(raw), now, id)
		}
		if err != nil {
			return err
		}
		out, err = s.getBet(ctx, tx, id)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return model.Bet{}, fmt.Errorf("bet for %s on %s: %w", userID, raceID, ErrConflict)
		}
		return model.Bet{}, fmt.Errorf("upsert bet: %w", err)
	}
	return out, nil
}

// GetBet loads a bet by ID.
func (s *Store) GetBet(ctx context.Context, id string) (model.Bet, error) {
	return s.getBet(ctx, s.db, id)
}

func (s *Store) getBet(ctx context.Context, q queryer, id string) (model.Bet, error) {
	b, err := scanBet(s.queryRow(ctx, q, `SELECT `+betColumns+` FROM bets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bet{}, fmt.Errorf("bet %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Bet{}, fmt.Errorf("get bet %s: %w", id, err)
	}
	return b, nil
}

// BetsForRace returns every bet on the race, oldest first.
func (s *Store) BetsForRace(ctx context.Context, raceID string) ([]model.Bet, error) {
	return s.listBets(ctx, `SELECT `+betColumns+` FROM bets WHERE race_id = ? ORDER BY created_at, id`, raceID)
}

// BetsForUser returns the user's bets, newest first.
func (s *Store) BetsForUser(ctx context.Context, userID string) ([]model.Bet, error) {
	return s.listBets(ctx, `SELECT `+betColumns+` FROM bets WHERE user_id = ? ORDER BY created_at DESC, id`, userID)
}

func (s *Store) listBets(ctx context.Context, query string, args ...any) ([]model.Bet, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveScore writes the breakdown for a bet scored against revision. Score
// and details are written by one statement. A bet already scored against a
// newer revision is left alone and ErrStaleRevision is returned.
func (s *Store) SaveScore(ctx context.Context, betID string, revision int, b scoring.Breakdown) error {
	details, err := json.Marshal(b.Details)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	res, err := s.exec(ctx, s.db, `UPDATE bets SET score = ?, scoring_details = ?, scored_revision = ?, updated_at = ?
		WHERE id = ? AND scored_revision <= ?`,
		b.TotalScore, string(details), revision, millis(s.now()), betID, revision)
	if err != nil {
		return fmt.Errorf("save score for %s: %w", betID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var current int
	err = s.queryRow(ctx, s.db, `SELECT scored_revision FROM bets WHERE id = ?`, betID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("bet %s: %w", betID, ErrNotFound)
	case err != nil:
		return fmt.Errorf("save score for %s: %w", betID, err)
	case current > revision:
		return fmt.Errorf("bet %s at revision %d, got %d: %w", betID, current, revision, ErrStaleRevision)
	}
	// same revision and same values: MySQL reports zero changed rows
	return nil
}

// UserTotal is one user's summed score.
type UserTotal struct {
	UserID string
	Total  int
}

// UserTotals sums scored bets per user. season 0 covers every season.
func (s *Store) UserTotals(ctx context.Context, season int) ([]UserTotal, error) {
	query := `SELECT b.user_id, SUM(b.score) FROM bets b JOIN races r ON r.id = b.race_id
		WHERE b.score IS NOT NULL`
	var args []any
	if season != 0 {
		query += ` AND r.season = ?`
		args = append(args, season)
	}
	query += ` GROUP BY b.user_id ORDER BY b.user_id`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []UserTotal
	for rows.Next() {
		var (
			t   UserTotal
			sum sql.NullInt64
		)
		if err := rows.Scan(&t.UserID, &sum); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		t.Total = int(sum.Int64)
		out = append(out, t)
	}
	return out, rows.Err()
}

// UserTotal sums one user's scored bets. ok is false when the user has no
// scored bet in scope.
func (s *Store) UserTotal(ctx context.Context, userID string, season int) (total int, ok bool, err error) {
	query := `SELECT COUNT(b.score), SUM(b.score) FROM bets b JOIN races r ON r.id = b.race_id
		WHERE b.user_id = ? AND b.score IS NOT NULL`
	args := []any{userID}
	if season != 0 {
		query += ` AND r.season = ?`
		args = append(args, season)
	}
	var (
		count int
		sum   sql.NullInt64
	)
	if err := s.queryRow(ctx, s.db, query, args...).Scan(&count, &sum); err != nil {
		return 0, false, fmt.Errorf("user total %s: %w", userID, err)
	}
	return int(sum.Int64), count > 0, nil
}

const scoredBetQuery = `SELECT b.id, b.user_id, COALESCE(u.name, b.user_id), b.race_id, r.name, r.season, r.round,
	b.score, b.updated_at
	FROM bets b
	JOIN races r ON r.id = b.race_id
	LEFT JOIN users u ON u.id = b.user_id
	WHERE b.score IS NOT NULL`

// TopBets returns the highest scoring bets across all races. Earlier
// scores win ties.
func (s *Store) TopBets(ctx context.Context, limit int) ([]model.ScoredBet, error) {
	return s.listScored(ctx, scoredBetQuery+` ORDER BY b.score DESC, b.updated_at, b.id LIMIT ?`, limit)
}

// ScoredBets returns every scored bet for export, in calendar order.
// season 0 covers every season.
func (s *Store) ScoredBets(ctx context.Context, season int) ([]model.ScoredBet, error) {
	query := scoredBetQuery
	var args []any
	if season != 0 {
		query += ` AND r.season = ?`
		args = append(args, season)
	}
	query += ` ORDER BY r.season, r.round, b.score DESC, b.id`
	return s.listScored(ctx, query, args...)
}

func (s *Store) listScored(ctx context.Context, query string, args ...any) ([]model.ScoredBet, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scored bets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ScoredBet
	for rows.Next() {
		var (
			sb     model.ScoredBet
			scored int64
		)
		if err := rows.Scan(&sb.BetID, &sb.UserID, &sb.UserName, &sb.RaceID, &sb.RaceName,
			&sb.Season, &sb.Round, &sb.Score, &scored); err != nil {
			return nil, fmt.Errorf("scan scored bet: %w", err)
		}
		sb.ScoredAt = fromMillis(scored)
		out = append(out, sb)
	}
	return out, rows.Err()
}
