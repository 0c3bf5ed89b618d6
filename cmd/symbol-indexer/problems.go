package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var buildsCmd = &cobra.Command{
	Use:   "builds",
	Short: "List the builds in the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		builds, err := s.ListBuilds()
		if err != nil {
			return err
		}
		for _, b := range builds {
			nodes, _ := s.CountNodes(b.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d nodes\t%s\n", b.ID, b.CreatedAt, nodes, b.Label)
		}
		return nil
	},
}

var problemsCmd = &cobra.Command{
	Use:   "problems [path]",
	Short: "Print the diagnostics recorded for a build",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Build == "" {
			return fmt.Errorf("a build id is required (--build or $SYMBOL_INDEXER_BUILD)")
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		problems, err := s.ListProblems(cfg.Build, path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range problems {
			fmt.Fprintf(out, "%s:%d:%d: %s: %s\n", p.Path, p.StartLine, p.StartCol, p.Severity, p.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildsCmd, problemsCmd)
}
