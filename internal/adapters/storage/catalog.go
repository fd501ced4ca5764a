package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/pitwall/internal/domain/model"
)

// EnsureUser creates u if missing and refreshes its display name when a
// non-empty one is supplied.
func (s *Store) EnsureUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		return model.User{}, fmt.Errorf("ensure user: empty id")
	}
	var out model.User
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := s.getUser(ctx, tx, u.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			name := u.Name
			if name == "" {
				name = u.ID
			}
			out = model.User{ID: u.ID, Name: name, CreatedAt: fromMillis(millis(s.now()))}
			_, err = s.exec(ctx, tx, `INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
				out.ID, out.Name, millis(out.CreatedAt))
			return err
		case err != nil:
			return err
		}
		out = existing
		if u.Name != "" && u.Name != existing.Name {
			out.Name = u.Name
			_, err = s.exec(ctx, tx, `UPDATE users SET name = ? WHERE id = ?`, u.Name, u.ID)
		}
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			// lost a race with a concurrent insert of the same user
			return s.GetUser(ctx, u.ID)
		}
		return model.User{}, fmt.Errorf("ensure user %s: %w", u.ID, err)
	}
	return out, nil
}

// GetUser loads a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return s.getUser(ctx, s.db, id)
}

func (s *Store) getUser(ctx context.Context, q queryer, id string) (model.User, error) {
	var (
		u       model.User
		created int64
	)
	err := s.queryRow(ctx, q, `SELECT id, name, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

// CreateDriver inserts d, generating an ID when empty. Codes are stored
// upper-case and must be unique.
func (s *Store) CreateDriver(ctx context.Context, d model.Driver) (model.Driver, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	_, err := s.exec(ctx, s.db,
		`INSERT INTO drivers (id, name, number, team, code, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Number, d.Team, d.Code, d.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Driver{}, fmt.Errorf("driver %s: %w", d.Code, ErrConflict)
		}
		return model.Driver{}, fmt.Errorf("create driver: %w", err)
	}
	return d, nil
}

// GetDriver loads a driver by ID.
func (s *Store) GetDriver(ctx context.Context, id string) (model.Driver, error) {
	var d model.Driver
	err := s.queryRow(ctx, s.db,
		`SELECT id, name, number, team, code, is_active FROM drivers WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.Number, &d.Team, &d.Code, &d.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Driver{}, fmt.Errorf("driver %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Driver{}, fmt.Errorf("get driver %s: %w", id, err)
	}
	return d, nil
}

// ListDrivers returns drivers ordered by car number.
func (s *Store) ListDrivers(ctx context.Context, activeOnly bool) ([]model.Driver, error) {
	query := `SELECT id, name, number, team, code, is_active FROM drivers`
	var args []any
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY number, code`

	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Driver, 0, 20)
	for rows.Next() {
		var d model.Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Number, &d.Team, &d.Code, &d.IsActive); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
