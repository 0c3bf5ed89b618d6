package syntax

import (
	"strings"

	"github.com/DeusData/symbol-indexer/internal/model"
)

// Binding is a front-end resolution of a name. It is one of *TypeBinding,
// *MethodBinding or *VariableBinding.
type Binding interface {
	binding()
}

// TypeBinding resolves a type reference or declaration.
type TypeBinding struct {
	// QualifiedName is the dotted name without type arguments.
	QualifiedName string
	Name          string
	TypeArgs      []*TypeBinding
	TypeParams    []string
	IsPrimitive   bool
	IsArray       bool
	Elem          *TypeBinding
	IsEnum        bool
	IsInterface   bool
	IsAnonymous   bool
	IsTypeVar     bool
	Superclass    *TypeBinding
	Interfaces    []*TypeBinding
	Modifiers     model.Modifier
	// Declaration is the generic declaration this binding instantiates, nil
	// when the binding is the declaration itself.
	Declaration *TypeBinding
}

func (*TypeBinding) binding() {}

// GenericName renders the name with type arguments, e.g.
// java.util.Map<java.lang.String,java.lang.Integer>.
func (t *TypeBinding) GenericName() string {
	if t == nil {
		return ""
	}
	if t.IsArray && t.Elem != nil {
		return t.Elem.GenericName() + "[]"
	}
	if len(t.TypeArgs) == 0 {
		return t.QualifiedName
	}
	args := make([]string, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		args[i] = a.GenericName()
	}
	return t.QualifiedName + "<" + strings.Join(args, ",") + ">"
}

// ErasedName is the name of the generic declaration without arguments.
func (t *TypeBinding) ErasedName() string {
	if t == nil {
		return ""
	}
	if t.IsArray && t.Elem != nil {
		return t.Elem.ErasedName() + "[]"
	}
	return t.QualifiedName
}

// Decl returns the generic declaration or t itself.
func (t *TypeBinding) Decl() *TypeBinding {
	if t.Declaration != nil {
		return t.Declaration
	}
	return t
}

// Qualifier returns everything before the simple name.
func (t *TypeBinding) Qualifier() string {
	if i := strings.LastIndexByte(t.QualifiedName, '.'); i >= 0 {
		return t.QualifiedName[:i]
	}
	return ""
}

// MethodBinding resolves a method or constructor.
type MethodBinding struct {
	Name          string
	DeclaringType *TypeBinding
	ParamTypes    []*TypeBinding
	ReturnType    *TypeBinding
	Modifiers     model.Modifier
	IsConstructor bool
	TypeParams    []string
	Declaration   *MethodBinding
}

func (*MethodBinding) binding() {}

// Decl returns the generic declaration or m itself.
func (m *MethodBinding) Decl() *MethodBinding {
	if m.Declaration != nil {
		return m.Declaration
	}
	return m
}

// ParamTypeNames returns the parameter types with type arguments.
func (m *MethodBinding) ParamTypeNames() []string {
	out := make([]string, len(m.ParamTypes))
	for i, p := range m.ParamTypes {
		out[i] = p.GenericName()
	}
	return out
}

// VariableBinding resolves a field, parameter, local or enum constant.
type VariableBinding struct {
	Name            string
	Type            *TypeBinding
	IsField         bool
	IsParameter     bool
	IsEnumConstant  bool
	DeclaringType   *TypeBinding
	DeclaringMethod *MethodBinding
	Modifiers       model.Modifier
	Ordinal         int
}

func (*VariableBinding) binding() {}
