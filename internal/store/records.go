package store

import (
	"fmt"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// InsertImport records an import once per (file, qualifier). It reports
// whether a new row was written.
func (s *Store) InsertImport(imp *model.Import) (bool, error) {
	res, err := s.q.Exec(`
		INSERT INTO imports (build_id, file_id, qualifier, is_static, is_wildcard, is_implicit, ast_node_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id, file_id, qualifier) DO NOTHING`,
		imp.BuildID, imp.FileID, imp.Qualifier, boolInt(imp.IsStatic), boolInt(imp.IsWildcard),
		boolInt(imp.IsImplicit), imp.AstNodeID)
	if err != nil {
		return false, fmt.Errorf("insert import: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// FindImports returns the imports of a file ordered by qualifier.
func (s *Store) FindImports(buildID string, fileID int64) ([]*model.Import, error) {
	rows, err := s.q.Query(`SELECT build_id, file_id, qualifier, is_static, is_wildcard, is_implicit, ast_node_id
		FROM imports WHERE build_id=? AND file_id=? ORDER BY qualifier`, buildID, fileID)
	if err != nil {
		return nil, fmt.Errorf("find imports: %w", err)
	}
	defer rows.Close()
	var result []*model.Import
	for rows.Next() {
		var imp model.Import
		var static, wildcard, implicit int
		if err := rows.Scan(&imp.BuildID, &imp.FileID, &imp.Qualifier, &static, &wildcard, &implicit, &imp.AstNodeID); err != nil {
			return nil, err
		}
		imp.IsStatic, imp.IsWildcard, imp.IsImplicit = static == 1, wildcard == 1, implicit == 1
		result = append(result, &imp)
	}
	return result, rows.Err()
}

// UpsertDocComment stores the documentation of an entity.
func (s *Store) UpsertDocComment(d *model.DocComment) error {
	_, err := s.q.Exec(`
		INSERT INTO doc_comments (build_id, owner_hash, content_hash, content, html)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(build_id, owner_hash) DO UPDATE SET
			content_hash=excluded.content_hash, content=excluded.content, html=excluded.html`,
		d.BuildID, d.OwnerHash, d.ContentHash, d.Content, d.HTML)
	if err != nil {
		return fmt.Errorf("upsert doc comment: %w", err)
	}
	return nil
}

// FindDocComment returns the documentation of an entity, or nil.
func (s *Store) FindDocComment(buildID string, ownerHash int64) (*model.DocComment, error) {
	rows, err := s.q.Query(`SELECT build_id, owner_hash, content_hash, content, html
		FROM doc_comments WHERE build_id=? AND owner_hash=?`, buildID, ownerHash)
	if err != nil {
		return nil, fmt.Errorf("find doc comment: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var d model.DocComment
	if err := rows.Scan(&d.BuildID, &d.OwnerHash, &d.ContentHash, &d.Content, &d.HTML); err != nil {
		return nil, err
	}
	return &d, nil
}

// InsertProblems appends diagnostics.
func (s *Store) InsertProblems(problems []model.Problem) error {
	for _, p := range problems {
		_, err := s.q.Exec(`
			INSERT INTO problems (build_id, file_id, path, severity, start_line, start_col, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.BuildID, p.FileID, p.Path, string(p.Severity), p.StartLine, p.StartCol, p.Message)
		if err != nil {
			return fmt.Errorf("insert problem: %w", err)
		}
	}
	return nil
}

// ListProblems returns the diagnostics of a build, optionally for one path.
func (s *Store) ListProblems(buildID, path string) ([]model.Problem, error) {
	query := `SELECT build_id, file_id, path, severity, start_line, start_col, message
		FROM problems WHERE build_id=?`
	args := []any{buildID}
	if path != "" {
		query += " AND path=?"
		args = append(args, path)
	}
	rows, err := s.q.Query(query+" ORDER BY path, start_line, start_col, id", args...)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()
	var result []model.Problem
	for rows.Next() {
		var p model.Problem
		var severity string
		if err := rows.Scan(&p.BuildID, &p.FileID, &p.Path, &severity, &p.StartLine, &p.StartCol, &p.Message); err != nil {
			return nil, err
		}
		p.Severity = model.Severity(severity)
		result = append(result, p)
	}
	return result, rows.Err()
}
