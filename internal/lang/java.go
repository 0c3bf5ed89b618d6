package lang

func init() {
	Register(&LanguageSpec{
		Language:       Java,
		FileExtensions: []string{".java"},
		TypeNodeTypes: []string{
			"class_declaration",
			"interface_declaration",
			"enum_declaration",
			"record_declaration",
		},
		FunctionNodeTypes:   []string{"method_declaration", "constructor_declaration"},
		BlockNodeTypes:      []string{"block", "constructor_body", "switch_block", "for_statement", "enhanced_for_statement", "catch_clause"},
		CallNodeTypes:       []string{"method_invocation"},
		ImportNodeTypes:     []string{"import_declaration"},
		AssignmentNodeTypes: []string{"assignment_expression"},
		CommentNodeTypes:    []string{"block_comment"},
		ImplicitPackages:    []string{"java.lang"},
		PrimitiveTypes:      []string{"void", "boolean", "byte", "char", "short", "int", "long", "float", "double"},
	})
}
