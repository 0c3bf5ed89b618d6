package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// UpsertFile inserts or updates a file record.
func (s *Store) UpsertFile(f *model.File) error {
	_, err := s.q.Exec(`
		INSERT INTO files (build_id, id, path, type, content_hash, mod_time, parse_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id, id) DO UPDATE SET
			path=excluded.path, type=excluded.type, content_hash=excluded.content_hash,
			mod_time=excluded.mod_time, parse_status=excluded.parse_status`,
		f.BuildID, f.ID, f.Path, f.Type, f.ContentHash, formatTime(f.ModTime), string(f.ParseStatus))
	if err != nil {
		return fmt.Errorf("upsert file: %w", err)
	}
	return nil
}

// GetFile returns a file by id, or nil if absent.
func (s *Store) GetFile(buildID string, id int64) (*model.File, error) {
	row := s.q.QueryRow(`SELECT build_id, id, path, type, content_hash, mod_time, parse_status
		FROM files WHERE build_id=? AND id=?`, buildID, id)
	return scanFile(row)
}

// GetFileByPath returns a file by path, or nil if absent.
func (s *Store) GetFileByPath(buildID, path string) (*model.File, error) {
	row := s.q.QueryRow(`SELECT build_id, id, path, type, content_hash, mod_time, parse_status
		FROM files WHERE build_id=? AND path=?`, buildID, path)
	return scanFile(row)
}

// GetContentHashes returns path -> content hash for every file in a build.
func (s *Store) GetContentHashes(buildID string) (map[string]string, error) {
	rows, err := s.q.Query("SELECT path, content_hash FROM files WHERE build_id=?", buildID)
	if err != nil {
		return nil, fmt.Errorf("content hashes: %w", err)
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		result[path] = hash
	}
	return result, rows.Err()
}

// DeleteFileData removes the occurrences, imports and problems recorded for
// a file so it can be re-indexed from scratch.
func (s *Store) DeleteFileData(buildID string, fileID int64) error {
	for _, table := range []string{"ast_nodes", "imports", "problems"} {
		if _, err := s.q.Exec("DELETE FROM "+table+" WHERE build_id=? AND file_id=?", buildID, fileID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// DeleteFile removes a file and everything recorded for it. Entities are
// shared across files and stay.
func (s *Store) DeleteFile(buildID string, fileID int64) error {
	if err := s.DeleteFileData(buildID, fileID); err != nil {
		return err
	}
	if _, err := s.q.Exec("DELETE FROM files WHERE build_id=? AND id=?", buildID, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func scanFile(row scanner) (*model.File, error) {
	var f model.File
	var modTime, status string
	err := row.Scan(&f.BuildID, &f.ID, &f.Path, &f.Type, &f.ContentHash, &modTime, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ModTime = parseTime(modTime)
	f.ParseStatus = model.ParseStatus(status)
	return &f, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
