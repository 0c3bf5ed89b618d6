package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// Build is a named indexing run that records attach to.
type Build struct {
	ID        string
	CreatedAt string
	Label     string
}

// CreateBuild inserts a build record. Creating an existing build is a no-op.
func (s *Store) CreateBuild(id, label string) error {
	_, err := s.q.Exec(`INSERT INTO builds (id, created_at, label) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING`, id, Now(), label)
	if err != nil {
		return fmt.Errorf("create build: %w", err)
	}
	return nil
}

// GetBuild returns a build by id, or nil if it does not exist.
func (s *Store) GetBuild(id string) (*Build, error) {
	var b Build
	err := s.q.QueryRow("SELECT id, created_at, label FROM builds WHERE id=?", id).
		Scan(&b.ID, &b.CreatedAt, &b.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get build: %w", err)
	}
	return &b, nil
}

// ListBuilds returns all builds, newest first.
func (s *Store) ListBuilds() ([]*Build, error) {
	rows, err := s.q.Query("SELECT id, created_at, label FROM builds ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()
	var result []*Build
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.Label); err != nil {
			return nil, err
		}
		result = append(result, &b)
	}
	return result, rows.Err()
}

// DeleteBuild deletes a build and all associated data (CASCADE).
func (s *Store) DeleteBuild(id string) error {
	_, err := s.q.Exec("DELETE FROM builds WHERE id=?", id)
	return err
}
