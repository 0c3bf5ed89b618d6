// Package syntax is the contract between a front end and the indexing
// engine: a tagged-union syntax tree whose nodes carry resolved bindings.
package syntax

import (
	"time"

	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
)

// Kind tags a syntax node.
type Kind int

const (
	KindOther Kind = iota
	KindCompilationUnit
	KindPackage
	KindImport
	KindTypeDecl
	KindAnonymousClass
	KindEnumConstantDecl
	KindMethodDecl
	KindParam
	KindFieldDecl
	KindVarDecl
	KindBlock
	KindName
	KindFieldAccess
	KindTypeRef
	KindCall
	KindNew
	KindAssign
	KindIndex
	KindIncDec
	KindLambda
	KindLiteral
	KindReturn
	KindExpr
	KindStatement
)

var kindNames = [...]string{
	KindOther:            "Other",
	KindCompilationUnit:  "CompilationUnit",
	KindPackage:          "Package",
	KindImport:           "Import",
	KindTypeDecl:         "TypeDecl",
	KindAnonymousClass:   "AnonymousClass",
	KindEnumConstantDecl: "EnumConstantDecl",
	KindMethodDecl:       "MethodDecl",
	KindParam:            "Param",
	KindFieldDecl:        "FieldDecl",
	KindVarDecl:          "VarDecl",
	KindBlock:            "Block",
	KindName:             "Name",
	KindFieldAccess:      "FieldAccess",
	KindTypeRef:          "TypeRef",
	KindCall:             "Call",
	KindNew:              "New",
	KindAssign:           "Assign",
	KindIndex:            "Index",
	KindIncDec:           "IncDec",
	KindLambda:           "Lambda",
	KindLiteral:          "Literal",
	KindReturn:           "Return",
	KindExpr:             "Expr",
	KindStatement:        "Statement",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Role is the position of a child relative to its parent.
type Role int

const (
	RoleNone Role = iota
	RoleLHS
	RoleRHS
	RoleIndexExpr
	RoleArray
	RoleArgument
	RoleOperand
	RoleInitializer
	RoleReceiver
	RoleBody
	RoleType
	RoleReturnType
	RoleSuper
	RoleInterface
	RoleCondition
)

// Flag carries construct details that do not deserve their own Kind.
type Flag uint32

const (
	// FlagStaticImport marks "import static".
	FlagStaticImport Flag = 1 << iota
	// FlagWildcard marks an on-demand import.
	FlagWildcard
	// FlagInterface marks an interface declaration.
	FlagInterface
	// FlagEnum marks an enum declaration.
	FlagEnum
	// FlagNoBody marks abstract/native/interface methods.
	FlagNoBody
	// FlagLocalClass marks a named class declared inside a function body.
	FlagLocalClass
	// FlagVarargs marks a variadic parameter.
	FlagVarargs
)

// Node is one syntax element.
type Node struct {
	Kind     Kind
	Role     Role
	Range    model.Range
	Name     string
	Binding  Binding
	Flags    Flag
	Children []*Node

	// Declarations only.
	Modifiers      model.Modifier
	Doc            *Doc
	ModifierRanges []model.Range
}

// Doc is a documentation comment attached to a declaration.
type Doc struct {
	Range model.Range
	Text  string
}

// Has reports whether f is set.
func (n *Node) Has(f Flag) bool {
	return n.Flags&f == f
}

// Add appends children and returns n.
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// ChildrenByRole returns the direct children with role r.
func (n *Node) ChildrenByRole(r Role) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Role == r {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenByKind returns the direct children of kind k.
func (n *Node) ChildrenByKind(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// WalkFunc is called for each node; returning false skips its children.
type WalkFunc func(n *Node) bool

// Walk traverses the tree depth first.
func Walk(n *Node, fn WalkFunc) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Unit is one compilation unit handed to the engine.
type Unit struct {
	Path     string
	Language lang.Language
	Source   []byte
	ModTime  time.Time
	Root     *Node
	// SyntaxErrors are the ranges the parser could not make sense of.
	SyntaxErrors []model.Range
}
