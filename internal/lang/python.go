package lang

func init() {
	Register(&LanguageSpec{
		Language:            Python,
		FileExtensions:      []string{".py"},
		TypeNodeTypes:       []string{"class_definition"},
		FunctionNodeTypes:   []string{"function_definition"},
		BlockNodeTypes:      []string{"lambda"},
		CallNodeTypes:       []string{"call"},
		ImportNodeTypes:     []string{"import_statement", "import_from_statement"},
		AssignmentNodeTypes: []string{"assignment", "augmented_assignment"},
		CommentNodeTypes:    []string{"string"},
		ImplicitPackages:    []string{"builtins"},
		PrimitiveTypes:      []string{"object", "int", "float", "str", "bool", "bytes", "None"},
	})
}
