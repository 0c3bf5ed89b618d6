package engine

import (
	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// CreateNode finds or creates the occurrence at r. startAdj bytes are
// skipped at the start of the range. An existing node with the same
// identity is refreshed in place.
func (c *Context) CreateNode(r model.Range, value string, at model.AstType, st model.SymbolType, mangled string, startAdj int) (*model.AstNode, error) {
	r = c.adjustStart(r, startAdj)
	n := &model.AstNode{
		ID:              identity.ID(identity.NodeKey(value, c.File.ID, r.StartOffset, r.EndOffset, mangled)),
		BuildID:         c.BuildID,
		FileID:          c.File.ID,
		Range:           r,
		Value:           value,
		SymbolType:      st,
		AstType:         at,
		MangledName:     mangled,
		MangledNameHash: identity.ID(mangled),
	}
	if fn := c.Frame.Function(); fn != nil {
		n.ScopeHash = fn.Hash
	}

	existing, err := c.Store.FindNode(c.BuildID, n.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := c.Store.UpdateNode(n); err != nil {
			return nil, err
		}
		return n, nil
	}
	stored, created, err := c.Store.CreateNode(n)
	if err != nil {
		return nil, err
	}
	if created {
		c.NodesCreated++
	}
	return stored, nil
}

// CreateFakeNode returns the placeholder declaration node of e. It has no
// file and no range.
func (c *Context) CreateFakeNode(e *model.Entity) (*model.AstNode, error) {
	n := &model.AstNode{
		ID:              identity.ID(identity.FakeNodeKey(e.Name, e.MangledName)),
		BuildID:         c.BuildID,
		Value:           e.Name,
		SymbolType:      symbolTypeOf(e),
		AstType:         model.AstDeclaration,
		MangledName:     e.MangledName,
		MangledNameHash: e.Hash,
	}
	stored, created, err := c.Store.CreateNode(n)
	if err != nil {
		return nil, err
	}
	if created {
		c.NodesCreated++
	}
	return stored, nil
}

// StartAdjustment is the number of bytes between the start of n and the
// first character after its doc comment and modifiers.
func StartAdjustment(n *syntax.Node, source []byte) int {
	start := n.Range.StartOffset
	end := start
	if n.Doc != nil && n.Doc.Range.EndOffset > end {
		end = n.Doc.Range.EndOffset
	}
	for _, m := range n.ModifierRanges {
		if m.EndOffset > end {
			end = m.EndOffset
		}
	}
	if end == start {
		return 0
	}
	for end < len(source) && end < n.Range.EndOffset && isSpace(source[end]) {
		end++
	}
	return end - start
}

// adjustStart moves the start of r forward by adj bytes, recomputing the
// line and column from the source.
func (c *Context) adjustStart(r model.Range, adj int) model.Range {
	if adj <= 0 {
		return r
	}
	line, col := r.StartLine, r.StartCol
	for i := r.StartOffset; i < r.StartOffset+adj && i < len(c.Source); i++ {
		if c.Source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	r.StartOffset += adj
	r.StartLine, r.StartCol = line, col
	return r
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

func symbolTypeOf(e *model.Entity) model.SymbolType {
	switch e.Kind {
	case model.KindFunction:
		return model.SymFunction
	case model.KindVariable:
		return model.SymVariable
	case model.KindEnumConstant:
		return model.SymEnumConstant
	}
	if e.IsEnum {
		return model.SymEnum
	}
	return model.SymType
}
