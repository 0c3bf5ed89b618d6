// Package model defines the records of the symbol graph: files, occurrences
// (AstNode), symbols (Entity), imports, doc comments and problems.
package model

import "time"

// SymbolType classifies what an occurrence refers to.
type SymbolType string

const (
	SymVariable     SymbolType = "Variable"
	SymFunction     SymbolType = "Function"
	SymType         SymbolType = "Type"
	SymEnum         SymbolType = "Enum"
	SymEnumConstant SymbolType = "EnumConstant"
	SymImport       SymbolType = "Import"
	SymMacro        SymbolType = "Macro"
	SymOther        SymbolType = "Other"
)

// AstType is the role an occurrence plays.
type AstType string

const (
	AstDeclaration           AstType = "Declaration"
	AstDefinition            AstType = "Definition"
	AstUsage                 AstType = "Usage"
	AstRead                  AstType = "Read"
	AstWrite                 AstType = "Write"
	AstVirtualCall           AstType = "VirtualCall"
	AstTypeLocation          AstType = "TypeLocation"
	AstParameterTypeLocation AstType = "ParameterTypeLocation"
	AstReturnTypeLocation    AstType = "ReturnTypeLocation"
	AstFieldTypeLocation     AstType = "FieldTypeLocation"
	AstLocalTypeLocation     AstType = "LocalTypeLocation"
	AstOther                 AstType = "Other"
)

// ParseStatus records how completely a file was indexed.
type ParseStatus string

const (
	NotParsed       ParseStatus = "NotParsed"
	PartiallyParsed ParseStatus = "PartiallyParsed"
	FullyParsed     ParseStatus = "FullyParsed"
)

// Range is a source span. Lines and columns are 1-based, offsets are byte
// offsets into the file.
type Range struct {
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
	StartOffset int
	EndOffset   int
}

// File is one indexed compilation unit.
type File struct {
	ID          int64
	BuildID     string
	Path        string
	Type        string
	ContentHash string
	ModTime     time.Time
	ParseStatus ParseStatus
}

// AstNode is one syntactic occurrence.
type AstNode struct {
	ID              int64
	BuildID         string
	FileID          int64 // 0 for placeholder nodes
	Range           Range
	Value           string
	SymbolType      SymbolType
	AstType         AstType
	MangledName     string
	MangledNameHash int64
	// ScopeHash is the mangled-name hash of the enclosing function, 0 at
	// type or file level.
	ScopeHash int64
}

// InFile reports whether the node has a real source location.
func (n *AstNode) InFile() bool {
	return n.FileID != 0
}

// Import records a reference from a file to a qualified name.
type Import struct {
	BuildID    string
	FileID     int64
	Qualifier  string
	IsStatic   bool
	IsWildcard bool
	IsImplicit bool
	AstNodeID  int64
}

// DocComment is a documentation comment attached to an entity.
type DocComment struct {
	BuildID     string
	ContentHash string
	Content     string
	HTML        string
	OwnerHash   int64
}

// Severity of a Problem.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Problem is a diagnostic gathered while walking a unit.
type Problem struct {
	BuildID   string
	FileID    int64
	Path      string
	Severity  Severity
	StartLine int
	StartCol  int
	Message   string
}
