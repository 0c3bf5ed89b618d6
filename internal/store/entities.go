package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// entityProps holds the kind-specific scalar fields of an entity. They are
// stored as JSON in the properties column.
type entityProps struct {
	IsGeneric     bool     `json:"is_generic,omitempty"`
	GenericImpl   int64    `json:"generic_impl,omitempty"`
	TypeParams    []string `json:"type_params,omitempty"`
	SuperType     int64    `json:"super_type,omitempty"`
	IsEnum        bool     `json:"is_enum,omitempty"`
	IsInterface   bool     `json:"is_interface,omitempty"`
	ReturnType    int64    `json:"return_type,omitempty"`
	Signature     string   `json:"signature,omitempty"`
	IsConstructor bool     `json:"is_constructor,omitempty"`
	DeclType      int64    `json:"decl_type,omitempty"`
	ParamOf       int64    `json:"param_of,omitempty"`
	LocalOf       int64    `json:"local_of,omitempty"`
	FieldOf       int64    `json:"field_of,omitempty"`
	EnumType      int64    `json:"enum_type,omitempty"`
	Ordinal       int      `json:"ordinal,omitempty"`
}

func propsOf(e *model.Entity) entityProps {
	return entityProps{
		IsGeneric: e.IsGeneric, GenericImpl: e.GenericImpl, TypeParams: e.TypeParams,
		SuperType: e.SuperType, IsEnum: e.IsEnum, IsInterface: e.IsInterface,
		ReturnType: e.ReturnType, Signature: e.Signature, IsConstructor: e.IsConstructor,
		DeclType: e.DeclType, ParamOf: e.ParamOf, LocalOf: e.LocalOf, FieldOf: e.FieldOf,
		EnumType: e.EnumType, Ordinal: e.Ordinal,
	}
}

func (p entityProps) apply(e *model.Entity) {
	e.IsGeneric, e.GenericImpl, e.TypeParams = p.IsGeneric, p.GenericImpl, p.TypeParams
	e.SuperType, e.IsEnum, e.IsInterface = p.SuperType, p.IsEnum, p.IsInterface
	e.ReturnType, e.Signature, e.IsConstructor = p.ReturnType, p.Signature, p.IsConstructor
	e.DeclType, e.ParamOf, e.LocalOf, e.FieldOf = p.DeclType, p.ParamOf, p.LocalOf, p.FieldOf
	e.EnumType, e.Ordinal = p.EnumType, p.Ordinal
}

func marshalProps(e *model.Entity) string {
	b, err := json.Marshal(propsOf(e))
	if err != nil {
		return "{}"
	}
	return string(b)
}

const entityColumns = `build_id, kind, hash, mangled_name, name, qualified_name, ast_node_id, modifiers, properties`

// FindEntity returns the entity of the given kind and hash, or nil.
func (s *Store) FindEntity(buildID string, kind model.EntityKind, hash int64) (*model.Entity, error) {
	row := s.q.QueryRow(`SELECT `+entityColumns+` FROM entities WHERE build_id=? AND kind=? AND hash=?`,
		buildID, string(kind), hash)
	e, err := scanEntity(row)
	if err != nil {
		return nil, fmt.Errorf("find entity: %w", err)
	}
	if e == nil {
		return nil, nil
	}
	if err := s.loadRelations(e); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateEntity inserts e unless an entity with the same key exists, then
// returns the stored row. A concurrent writer that created the row first is
// not an error: the existing row is returned with created=false.
func (s *Store) CreateEntity(e *model.Entity) (stored *model.Entity, created bool, err error) {
	res, err := s.q.Exec(`
		INSERT INTO entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id, kind, hash) DO NOTHING`,
		e.BuildID, string(e.Kind), e.Hash, e.MangledName, e.Name, e.QualifiedName,
		e.AstNodeID, int64(e.Modifiers), marshalProps(e))
	if err != nil {
		return nil, false, fmt.Errorf("insert entity: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 1 {
		if err := s.saveRelations(e); err != nil {
			return nil, false, err
		}
	}
	stored, err = s.FindEntity(e.BuildID, e.Kind, e.Hash)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("insert entity: %s %d missing after insert", e.Kind, e.Hash)
	}
	return stored, affected == 1, nil
}

// UpdateEntity overwrites an existing entity and its relations.
func (s *Store) UpdateEntity(e *model.Entity) error {
	_, err := s.q.Exec(`
		UPDATE entities SET mangled_name=?, name=?, qualified_name=?, ast_node_id=?, modifiers=?, properties=?
		WHERE build_id=? AND kind=? AND hash=?`,
		e.MangledName, e.Name, e.QualifiedName, e.AstNodeID, int64(e.Modifiers), marshalProps(e),
		e.BuildID, string(e.Kind), e.Hash)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return s.saveRelations(e)
}

// FindEntitiesByName returns entities whose simple name matches exactly.
func (s *Store) FindEntitiesByName(buildID, name string) ([]*model.Entity, error) {
	return s.queryEntities(`SELECT `+entityColumns+` FROM entities WHERE build_id=? AND name=?
		ORDER BY kind, qualified_name`, buildID, name)
}

// FindEntitiesByHash returns the entities of any kind with the given hash.
func (s *Store) FindEntitiesByHash(buildID string, hash int64) ([]*model.Entity, error) {
	return s.queryEntities(`SELECT `+entityColumns+` FROM entities WHERE build_id=? AND hash=?
		ORDER BY kind`, buildID, hash)
}

// FindInstantiations returns the entities whose generic_impl is templateHash.
func (s *Store) FindInstantiations(buildID string, kind model.EntityKind, templateHash int64) ([]*model.Entity, error) {
	return s.queryEntities(`SELECT `+entityColumns+` FROM entities
		WHERE build_id=? AND kind=? AND json_extract(properties, '$.generic_impl')=?
		ORDER BY hash`, buildID, string(kind), templateHash)
}

// CountEntities returns the number of entities of a kind in a build. An
// empty kind counts all kinds.
func (s *Store) CountEntities(buildID string, kind model.EntityKind) (int, error) {
	var count int
	var err error
	if kind == "" {
		err = s.q.QueryRow("SELECT COUNT(*) FROM entities WHERE build_id=?", buildID).Scan(&count)
	} else {
		err = s.q.QueryRow("SELECT COUNT(*) FROM entities WHERE build_id=? AND kind=?", buildID, string(kind)).Scan(&count)
	}
	return count, err
}

func (s *Store) queryEntities(query string, args ...any) ([]*model.Entity, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	var result []*model.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Relations are loaded after the cursor is closed: an in-memory store
	// has a single connection.
	for _, e := range result {
		if err := s.loadRelations(e); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Store) saveRelations(e *model.Entity) error {
	rels := e.Relations()
	if rels == nil {
		return nil
	}
	if _, err := s.q.Exec(`DELETE FROM entity_edges WHERE build_id=? AND kind=? AND source_hash=?`,
		e.BuildID, string(e.Kind), e.Hash); err != nil {
		return fmt.Errorf("clear relations: %w", err)
	}
	for rel, targets := range rels {
		for i, target := range targets {
			if _, err := s.q.Exec(`INSERT INTO entity_edges (build_id, kind, source_hash, relation, ordinal, target_hash)
				VALUES (?, ?, ?, ?, ?, ?)`, e.BuildID, string(e.Kind), e.Hash, rel, i, target); err != nil {
				return fmt.Errorf("insert relation %s: %w", rel, err)
			}
		}
	}
	return nil
}

func (s *Store) loadRelations(e *model.Entity) error {
	if e.Relations() == nil {
		return nil
	}
	rows, err := s.q.Query(`SELECT relation, target_hash FROM entity_edges
		WHERE build_id=? AND kind=? AND source_hash=? ORDER BY relation, ordinal`,
		e.BuildID, string(e.Kind), e.Hash)
	if err != nil {
		return fmt.Errorf("load relations: %w", err)
	}
	defer rows.Close()
	byRel := map[string][]int64{}
	for rows.Next() {
		var rel string
		var target int64
		if err := rows.Scan(&rel, &target); err != nil {
			return err
		}
		byRel[rel] = append(byRel[rel], target)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for rel, targets := range byRel {
		e.SetRelation(rel, targets)
	}
	return nil
}

func scanEntity(row scanner) (*model.Entity, error) {
	var e model.Entity
	var kind, props string
	var mods int64
	err := row.Scan(&e.BuildID, &kind, &e.Hash, &e.MangledName, &e.Name, &e.QualifiedName,
		&e.AstNodeID, &mods, &props)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Kind = model.EntityKind(kind)
	e.Modifiers = model.Modifier(mods)
	var p entityProps
	if props != "" {
		if err := json.Unmarshal([]byte(props), &p); err != nil {
			return nil, fmt.Errorf("entity %d properties: %w", e.Hash, err)
		}
	}
	p.apply(&e)
	return &e, nil
}
