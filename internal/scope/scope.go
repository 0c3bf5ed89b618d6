// Package scope implements the lexical scope stack used while walking a
// compilation unit. Frames are persistent: pushing never mutates the parent
// except for its anonymous-name counter, and each frame owns a copy of the
// variables visible in it.
package scope

import (
	"strconv"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// Name is the name argument of Push: either an explicit name or a request
// to synthesize a unique one.
type Name struct {
	value     string
	generated bool
}

// Named returns an explicit frame name.
func Named(s string) Name { return Name{value: s} }

// Generated asks Push to synthesize "_<n>" from the parent's counter.
func Generated() Name { return Name{generated: true} }

// Frame is one lexical scope.
type Frame struct {
	parent  *Frame
	typ     *model.Entity
	fn      *model.Entity
	vars    map[string]int64
	name    string
	qn      string
	counter int
	depth   int
}

// NewRoot returns the main frame. qualifiedName is the package or module
// qualifier, possibly empty.
func NewRoot(qualifiedName string) *Frame {
	return &Frame{
		vars: map[string]int64{},
		name: qualifiedName,
		qn:   qualifiedName,
	}
}

// Push enters a nested scope. A nil typ or fn inherits the parent's value.
// With override the name replaces the qualified name instead of extending
// it.
func (f *Frame) Push(name Name, typ, fn *model.Entity, override bool) *Frame {
	child := &Frame{
		parent: f,
		typ:    f.typ,
		fn:     f.fn,
		vars:   make(map[string]int64, len(f.vars)),
		depth:  f.depth + 1,
	}
	for k, v := range f.vars {
		child.vars[k] = v
	}
	if typ != nil {
		child.typ = typ
	}
	if fn != nil {
		child.fn = fn
	}

	child.name = name.value
	if name.generated {
		f.counter++
		child.name = "_" + strconv.Itoa(f.counter)
	}
	switch {
	case override:
		child.qn = child.name
	case f.qn == "":
		child.qn = child.name
	default:
		child.qn = f.qn + "." + child.name
	}
	return child
}

// Pop leaves the scope. The root frame pops to itself.
func (f *Frame) Pop() *Frame {
	if f.parent == nil {
		return f
	}
	return f.parent
}

// Declare binds a variable name to its declaration-site node in this frame.
func (f *Frame) Declare(name string, declID int64) {
	f.vars[name] = declID
}

// Lookup finds the declaration-site node of a variable visible here.
func (f *Frame) Lookup(name string) (int64, bool) {
	id, ok := f.vars[name]
	return id, ok
}

// Parent returns the enclosing frame, nil for the root.
func (f *Frame) Parent() *Frame { return f.parent }

// IsRoot reports whether f is the main frame.
func (f *Frame) IsRoot() bool { return f.parent == nil }

// Type returns the enclosing type entity, if any.
func (f *Frame) Type() *model.Entity { return f.typ }

// Function returns the enclosing function entity, if any.
func (f *Frame) Function() *model.Entity { return f.fn }

// Name returns the frame's own name.
func (f *Frame) Name() string { return f.name }

// QualifiedName returns the dotted qualifier for declarations in f.
func (f *Frame) QualifiedName() string { return f.qn }

// Depth is the number of pushes from the root.
func (f *Frame) Depth() int { return f.depth }
