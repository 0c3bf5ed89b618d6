package lang

// Language represents a supported programming language.
type Language string

const (
	Java   Language = "java"
	Python Language = "python"
)

// AllLanguages returns all supported languages.
func AllLanguages() []Language {
	return []Language{Java, Python}
}

// LanguageSpec defines the tree-sitter node types and naming rules for a
// language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	// TypeNodeTypes lists class-like declaration node kinds.
	TypeNodeTypes []string
	// FunctionNodeTypes lists method/function declaration node kinds.
	FunctionNodeTypes []string
	// BlockNodeTypes lists node kinds that open a variable scope.
	BlockNodeTypes  []string
	CallNodeTypes   []string
	ImportNodeTypes []string
	// AssignmentNodeTypes lists assignment expression/statement node kinds.
	AssignmentNodeTypes []string
	// CommentNodeTypes lists node kinds that may hold a doc comment.
	CommentNodeTypes []string

	// ImplicitPackages are qualifiers visible without an import
	// (java.lang, builtins).
	ImplicitPackages []string
	// PrimitiveTypes never produce imports or type entities with a file.
	PrimitiveTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".java").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// IsPrimitive reports whether name is a primitive type of the language.
func (s *LanguageSpec) IsPrimitive(name string) bool {
	for _, p := range s.PrimitiveTypes {
		if p == name {
			return true
		}
	}
	return false
}

// IsImplicitPackage reports whether qualifier needs no import.
func (s *LanguageSpec) IsImplicitPackage(qualifier string) bool {
	for _, p := range s.ImplicitPackages {
		if p == qualifier {
			return true
		}
	}
	return false
}
