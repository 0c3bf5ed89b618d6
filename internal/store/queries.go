package store

import (
	"github.com/DeusData/symbol-indexer/internal/model"
)

// Definition is the declaration site of the symbol an occurrence refers to.
type Definition struct {
	Entity *model.Entity
	Node   *model.AstNode
}

// FindDefinition resolves the occurrence nodeID to the entities it refers
// to and their declaration nodes. Placeholder nodes are returned as is so
// library symbols still answer with their mangled name.
func (s *Store) FindDefinition(buildID string, nodeID int64) ([]Definition, error) {
	n, err := s.FindNode(buildID, nodeID)
	if err != nil || n == nil {
		return nil, err
	}
	entities, err := s.FindEntitiesByHash(buildID, n.MangledNameHash)
	if err != nil {
		return nil, err
	}
	var out []Definition
	for _, e := range entities {
		d := Definition{Entity: e}
		if e.AstNodeID != 0 {
			if d.Node, err = s.FindNode(buildID, e.AstNodeID); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// FindUsages returns the occurrences of the entity with the given hash and
// of all its generic instantiations.
func (s *Store) FindUsages(buildID string, hash int64, astTypes ...model.AstType) ([]*model.AstNode, error) {
	nodes, err := s.FindNodesByMangledHash(buildID, hash, astTypes...)
	if err != nil {
		return nil, err
	}
	for _, kind := range []model.EntityKind{model.KindType, model.KindFunction, model.KindVariable} {
		insts, err := s.FindInstantiations(buildID, kind, hash)
		if err != nil {
			return nil, err
		}
		for _, inst := range insts {
			more, err := s.FindNodesByMangledHash(buildID, inst.Hash, astTypes...)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, more...)
		}
	}
	return nodes, nil
}

// Callers returns the functions calling fnHash directly.
func (s *Store) Callers(buildID string, fnHash int64) ([]*FunctionHop, error) {
	res, err := s.CallHierarchy(buildID, fnHash, Inbound, 1, 0)
	if err != nil {
		return nil, err
	}
	return res.Visited, nil
}

// Callees returns the functions fnHash calls directly.
func (s *Store) Callees(buildID string, fnHash int64) ([]*FunctionHop, error) {
	res, err := s.CallHierarchy(buildID, fnHash, Outbound, 1, 0)
	if err != nil {
		return nil, err
	}
	return res.Visited, nil
}
