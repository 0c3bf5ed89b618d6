package store

import (
	"fmt"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// Direction of a call hierarchy traversal.
const (
	Outbound = "outbound" // callees
	Inbound  = "inbound"  // callers
)

// callRoles are the occurrence roles that count as a call.
var callRoles = []model.AstType{model.AstVirtualCall, model.AstUsage}

// TraverseResult holds BFS traversal results.
type TraverseResult struct {
	Root    *model.Entity
	Visited []*FunctionHop
	Calls   []CallInfo
}

// FunctionHop is a function with its BFS hop distance.
type FunctionHop struct {
	Function *model.Entity
	Hop      int
}

// CallInfo is one caller -> callee pair with the call site.
type CallInfo struct {
	From string
	To   string
	Site *model.AstNode
}

type bfsQueue struct {
	hash int64
	hop  int
}

// CallHierarchy walks callers (Inbound) or callees (Outbound) of a function
// breadth first. maxDepth caps the depth, maxResults caps visited functions.
func (s *Store) CallHierarchy(buildID string, fnHash int64, direction string, maxDepth, maxResults int) (*TraverseResult, error) {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if maxResults <= 0 {
		maxResults = 200
	}
	if direction != Inbound && direction != Outbound {
		return nil, fmt.Errorf("call hierarchy: unknown direction %q", direction)
	}

	cache := map[int64]*model.Entity{}
	root, err := s.functionByHash(cache, buildID, fnHash)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("call hierarchy: function %d not found", fnHash)
	}

	result := &TraverseResult{Root: root}
	visited := map[int64]bool{fnHash: true}
	queue := []bfsQueue{{fnHash, 0}}

	for len(queue) > 0 && len(result.Visited) < maxResults {
		item := queue[0]
		queue = queue[1:]
		if item.hop >= maxDepth {
			continue
		}

		sites, err := s.callSites(buildID, item.hash, direction)
		if err != nil {
			return nil, err
		}
		for _, site := range sites {
			next, err := s.canonicalFunction(cache, buildID, site.MangledNameHash)
			if err != nil {
				return nil, err
			}
			from, to := item.hash, next
			if direction == Inbound {
				next = site.ScopeHash
				from, to = next, item.hash
			}
			if next == 0 {
				continue
			}
			fromFn, err := s.functionByHash(cache, buildID, from)
			if err != nil {
				return nil, err
			}
			toFn, err := s.functionByHash(cache, buildID, to)
			if err != nil {
				return nil, err
			}
			result.Calls = append(result.Calls, CallInfo{From: nameOf(fromFn), To: nameOf(toFn), Site: site})

			if visited[next] {
				continue
			}
			visited[next] = true
			nextFn := toFn
			if direction == Inbound {
				nextFn = fromFn
			}
			if nextFn == nil {
				continue
			}
			result.Visited = append(result.Visited, &FunctionHop{Function: nextFn, Hop: item.hop + 1})
			queue = append(queue, bfsQueue{next, item.hop + 1})
			if len(result.Visited) >= maxResults {
				break
			}
		}
	}
	return result, nil
}

func (s *Store) callSites(buildID string, fnHash int64, direction string) ([]*model.AstNode, error) {
	var nodes []*model.AstNode
	var err error
	if direction == Outbound {
		nodes, err = s.FindNodesByScope(buildID, fnHash, callRoles...)
	} else {
		nodes, err = s.FindUsages(buildID, fnHash, callRoles...)
	}
	if err != nil {
		return nil, err
	}
	calls := nodes[:0]
	for _, n := range nodes {
		if n.SymbolType == model.SymFunction {
			calls = append(calls, n)
		}
	}
	return calls, nil
}

// functionByHash returns a Function entity, using the cache first.
func (s *Store) functionByHash(cache map[int64]*model.Entity, buildID string, hash int64) (*model.Entity, error) {
	if e, ok := cache[hash]; ok {
		return e, nil
	}
	e, err := s.FindEntity(buildID, model.KindFunction, hash)
	if err != nil {
		return nil, err
	}
	cache[hash] = e
	return e, nil
}

// canonicalFunction maps a generic instantiation to its template.
func (s *Store) canonicalFunction(cache map[int64]*model.Entity, buildID string, hash int64) (int64, error) {
	fn, err := s.functionByHash(cache, buildID, hash)
	if err != nil {
		return 0, err
	}
	if fn != nil && fn.GenericImpl != 0 {
		return fn.GenericImpl, nil
	}
	return hash, nil
}

func nameOf(e *model.Entity) string {
	if e == nil {
		return ""
	}
	return e.QualifiedName
}
