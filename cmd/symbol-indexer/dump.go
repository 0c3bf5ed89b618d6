package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/parser"
	"github.com/DeusData/symbol-indexer/internal/pipeline"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

var dumpRaw bool

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Print the bound syntax tree of a source file",
	Long: `Prints the syntax tree the front end hands to the indexer, with the
binding of every node. --raw prints the tree-sitter parse tree instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		l, ok := lang.LanguageForExtension(filepath.Ext(path))
		if !ok {
			return fmt.Errorf("%s: not a Java or Python file", path)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if dumpRaw {
			tree, err := parser.Parse(l, src)
			if err != nil {
				return err
			}
			defer tree.Close()
			printRaw(out, tree.RootNode(), src, 0)
			return nil
		}
		unit, err := pipeline.LoadUnit(path, filepath.Base(path), l, src)
		if err != nil {
			return err
		}
		for _, r := range unit.SyntaxErrors {
			fmt.Fprintf(out, "syntax error at %d:%d\n", r.StartLine, r.StartCol)
		}
		printBound(out, unit.Root, 0)
		return nil
	},
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpRaw, "raw", false, "Print the tree-sitter parse tree")
	rootCmd.AddCommand(dumpCmd)
}

func printRaw(w io.Writer, node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	text := string(source[node.StartByte():node.EndByte()])
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Fprintf(w, "%s%s %q\n", strings.Repeat("  ", indent), node.Kind(), text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printRaw(w, node.Child(i), source, indent+1)
	}
}

func printBound(w io.Writer, n *syntax.Node, indent int) {
	if n == nil {
		return
	}
	fmt.Fprintf(w, "%s%s", strings.Repeat("  ", indent), n.Kind)
	if n.Name != "" {
		fmt.Fprintf(w, " %s", n.Name)
	}
	fmt.Fprintf(w, " [%d:%d-%d:%d]", n.Range.StartLine, n.Range.StartCol, n.Range.EndLine, n.Range.EndCol)
	if b := describeBinding(n.Binding); b != "" {
		fmt.Fprintf(w, " -> %s", b)
	}
	fmt.Fprintln(w)
	for _, c := range n.Children {
		printBound(w, c, indent+1)
	}
}

func describeBinding(b syntax.Binding) string {
	switch b := b.(type) {
	case *syntax.TypeBinding:
		if b == nil {
			return ""
		}
		return "type " + b.GenericName()
	case *syntax.MethodBinding:
		if b == nil {
			return ""
		}
		params := make([]string, len(b.ParamTypes))
		for i, p := range b.ParamTypes {
			params[i] = p.GenericName()
		}
		return fmt.Sprintf("method %s.%s(%s)", b.DeclaringType.GenericName(), b.Name, strings.Join(params, ","))
	case *syntax.VariableBinding:
		if b == nil {
			return ""
		}
		return fmt.Sprintf("var %s %s", b.Name, b.Type.GenericName())
	}
	return ""
}
