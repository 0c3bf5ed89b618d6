package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/DeusData/symbol-indexer/internal/model"
)

const nodeColumns = `build_id, id, file_id, start_line, start_col, end_line, end_col, start_offset, end_offset,
	value, symbol_type, ast_type, mangled_name, mangled_name_hash, scope_hash`

// FindNode returns the node with the given identity, or nil if absent.
func (s *Store) FindNode(buildID string, id int64) (*model.AstNode, error) {
	row := s.q.QueryRow(`SELECT `+nodeColumns+` FROM ast_nodes WHERE build_id=? AND id=?`, buildID, id)
	n, err := scanNode(row)
	if err != nil {
		return nil, fmt.Errorf("find node: %w", err)
	}
	return n, nil
}

// CreateNode inserts n unless a node with the same identity already exists,
// then returns the stored row. created is false when another writer (or an
// earlier pass) got there first.
func (s *Store) CreateNode(n *model.AstNode) (stored *model.AstNode, created bool, err error) {
	r := n.Range
	res, err := s.q.Exec(`
		INSERT INTO ast_nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id, id) DO NOTHING`,
		n.BuildID, n.ID, n.FileID, r.StartLine, r.StartCol, r.EndLine, r.EndCol, r.StartOffset, r.EndOffset,
		n.Value, string(n.SymbolType), string(n.AstType), n.MangledName, n.MangledNameHash, n.ScopeHash)
	if err != nil {
		return nil, false, fmt.Errorf("insert node: %w", err)
	}
	affected, _ := res.RowsAffected()
	stored, err = s.FindNode(n.BuildID, n.ID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("insert node: row %d missing after insert", n.ID)
	}
	return stored, affected == 1, nil
}

// UpdateNode overwrites the mutable fields of an existing node.
func (s *Store) UpdateNode(n *model.AstNode) error {
	r := n.Range
	_, err := s.q.Exec(`
		UPDATE ast_nodes SET file_id=?, start_line=?, start_col=?, end_line=?, end_col=?,
			start_offset=?, end_offset=?, value=?, symbol_type=?, ast_type=?, scope_hash=?
		WHERE build_id=? AND id=?`,
		n.FileID, r.StartLine, r.StartCol, r.EndLine, r.EndCol, r.StartOffset, r.EndOffset,
		n.Value, string(n.SymbolType), string(n.AstType), n.ScopeHash, n.BuildID, n.ID)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	return nil
}

// FindNodesByMangledHash returns every occurrence of a symbol, optionally
// restricted to the given roles.
func (s *Store) FindNodesByMangledHash(buildID string, hash int64, astTypes ...model.AstType) ([]*model.AstNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM ast_nodes WHERE build_id=? AND mangled_name_hash=?`
	args := []any{buildID, hash}
	query, args = appendAstTypeFilter(query, args, astTypes)
	return s.queryNodes(query+" ORDER BY file_id, start_offset", args...)
}

// FindNodesByScope returns the occurrences inside a function, optionally
// restricted to the given roles.
func (s *Store) FindNodesByScope(buildID string, scopeHash int64, astTypes ...model.AstType) ([]*model.AstNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM ast_nodes WHERE build_id=? AND scope_hash=?`
	args := []any{buildID, scopeHash}
	query, args = appendAstTypeFilter(query, args, astTypes)
	return s.queryNodes(query+" ORDER BY file_id, start_offset", args...)
}

// FindNodesByFile returns all occurrences in a file in source order.
func (s *Store) FindNodesByFile(buildID string, fileID int64) ([]*model.AstNode, error) {
	return s.queryNodes(`SELECT `+nodeColumns+` FROM ast_nodes WHERE build_id=? AND file_id=?
		ORDER BY start_offset, end_offset DESC`, buildID, fileID)
}

// FindNodeAt returns the innermost occurrence covering line:col.
func (s *Store) FindNodeAt(buildID string, fileID int64, line, col int) (*model.AstNode, error) {
	row := s.q.QueryRow(`SELECT `+nodeColumns+` FROM ast_nodes
		WHERE build_id=? AND file_id=?
		AND (start_line < ? OR (start_line = ? AND start_col <= ?))
		AND (end_line > ? OR (end_line = ? AND end_col >= ?))
		ORDER BY (end_offset - start_offset) ASC LIMIT 1`,
		buildID, fileID, line, line, col, line, line, col)
	n, err := scanNode(row)
	if err != nil {
		return nil, fmt.Errorf("find node at: %w", err)
	}
	return n, nil
}

// CountNodes returns the number of occurrences in a build.
func (s *Store) CountNodes(buildID string) (int, error) {
	var count int
	err := s.q.QueryRow("SELECT COUNT(*) FROM ast_nodes WHERE build_id=?", buildID).Scan(&count)
	return count, err
}

func appendAstTypeFilter(query string, args []any, astTypes []model.AstType) (string, []any) {
	if len(astTypes) == 0 {
		return query, args
	}
	placeholders := make([]string, len(astTypes))
	for i, t := range astTypes {
		placeholders[i] = "?"
		args = append(args, string(t))
	}
	return query + " AND ast_type IN (" + strings.Join(placeholders, ",") + ")", args
}

func (s *Store) queryNodes(query string, args ...any) ([]*model.AstNode, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()
	var result []*model.AstNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (*model.AstNode, error) {
	var n model.AstNode
	var symbolType, astType string
	r := &n.Range
	err := row.Scan(&n.BuildID, &n.ID, &n.FileID, &r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol,
		&r.StartOffset, &r.EndOffset, &n.Value, &symbolType, &astType, &n.MangledName, &n.MangledNameHash, &n.ScopeHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	n.SymbolType = model.SymbolType(symbolType)
	n.AstType = model.AstType(astType)
	return &n, nil
}
