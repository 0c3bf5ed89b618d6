package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// SearchParams defines structured entity search parameters.
type SearchParams struct {
	BuildID     string
	Kind        model.EntityKind
	NamePattern string // regex matched against the simple name
	QNPrefix    string
	Limit       int
}

// SearchEntities executes a parameterized entity search.
func (s *Store) SearchEntities(params SearchParams) ([]*model.Entity, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}

	var conditions []string
	var args []any
	conditions = append(conditions, "build_id = ?")
	args = append(args, params.BuildID)

	if params.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(params.Kind))
	}
	if params.QNPrefix != "" {
		conditions = append(conditions, "qualified_name LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(params.QNPrefix)+"%")
	}

	var re *regexp.Regexp
	if params.NamePattern != "" {
		var err error
		re, err = regexp.Compile(params.NamePattern)
		if err != nil {
			return nil, fmt.Errorf("invalid name pattern: %w", err)
		}
	}

	query := `SELECT ` + entityColumns + ` FROM entities WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY qualified_name, kind`
	all, err := s.queryEntities(query, args...)
	if err != nil {
		return nil, err
	}

	var result []*model.Entity
	for _, e := range all {
		if re != nil && !re.MatchString(e.Name) {
			continue
		}
		result = append(result, e)
		if len(result) >= params.Limit {
			break
		}
	}
	return result, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
