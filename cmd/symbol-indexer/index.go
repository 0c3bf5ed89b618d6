package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeusData/symbol-indexer/internal/pipeline"
)

var (
	indexWorkers int
	indexFull    bool
	indexIgnore  []string
)

// errUnitsFailed and errUnitsErrors make the process exit non-zero after a
// report was printed.
var (
	errUnitsFailed = errors.New("some files could not be indexed")
	errUnitsErrors = errors.New("some files have errors")
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the Java and Python files below a directory",
	Long: `Walks the directory (default: the working directory), skipping ignored
paths, and indexes every Java and Python file into the build.

Examples:
  symbol-indexer index                    # index ., incrementally
  symbol-indexer index --full src         # re-index every file
  symbol-indexer index -b release-1 src   # index into a named build`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVarP(&indexWorkers, "workers", "j", 0, "Parallel units (default: config, then NumCPU)")
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "Re-index files whose content is unchanged")
	indexCmd.Flags().StringSliceVar(&indexIgnore, "ignore", nil, "Extra ignore globs")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if indexWorkers > 0 {
		cfg.Workers = indexWorkers
	}
	if indexFull {
		cfg.Incremental = false
	}
	cfg.Ignore = append(cfg.Ignore, indexIgnore...)

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx, s, root, pipelineOptions(cfg))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, u := range report.Units {
		switch {
		case u.Err != nil:
			fmt.Fprintf(out, "FAIL  %s: %v\n", u.Path, u.Err)
		case u.Problems > 0:
			fmt.Fprintf(out, "%-5s %s (%d problems)\n", statusTag(u), u.Path, u.Problems)
		}
	}
	indexed, skipped, failed := report.Counts()
	fmt.Fprintf(out, "build %s: %d indexed, %d unchanged, %d failed in %s\n",
		report.BuildID, indexed, skipped, failed, report.Elapsed.Round(time.Millisecond))
	if report.Failed() {
		return errUnitsFailed
	}
	if report.HasErrors() {
		return errUnitsErrors
	}
	return nil
}

func statusTag(u *pipeline.UnitResult) string {
	if u.Errors > 0 {
		return "PART"
	}
	return "OK"
}
