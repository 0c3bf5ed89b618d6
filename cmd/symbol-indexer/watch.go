package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/DeusData/symbol-indexer/internal/discover"
	"github.com/DeusData/symbol-indexer/internal/metrics"
	"github.com/DeusData/symbol-indexer/internal/pipeline"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Index a directory, then re-index files as they change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "Quiet period before a batch is indexed (default: config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchDebounce > 0 {
		cfg.Debounce.Duration = watchDebounce
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logMetricsErr(err)
			}
		}()
	}

	opts := pipelineOptions(cfg)
	opts.Incremental = true
	report, err := pipeline.Run(ctx, s, root, opts)
	if err != nil {
		return err
	}
	opts.BuildID = report.BuildID

	matcher, err := discover.NewMatcher(root, opts.Discover)
	if err != nil {
		return err
	}
	w, err := watcher.New(root, opts.Discover, cfg.Debounce.Duration, func(ctx context.Context, changes []watcher.Change) error {
		return applyChanges(ctx, s, root, matcher, opts, changes)
	})
	if err != nil {
		return err
	}
	slog.Info("watch.start", "root", root, "build", opts.BuildID)
	return w.Run(ctx)
}

// applyChanges re-indexes edited files and drops removed ones. Every change
// is attempted; the joined error makes the watcher retry the batch.
func applyChanges(ctx context.Context, s *store.Store, root string, m *discover.Matcher, opts pipeline.Options, changes []watcher.Change) error {
	var errs []error
	for _, c := range changes {
		if c.Removed {
			if err := pipeline.RemoveUnit(ctx, s, opts.BuildID, c.RelPath); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		l, ok := m.Language(c.RelPath)
		if !ok {
			continue
		}
		unit, err := pipeline.LoadUnit(filepath.Join(root, filepath.FromSlash(c.RelPath)), c.RelPath, l, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := pipeline.IndexUnit(ctx, s, unit, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", c.RelPath, err))
			continue
		}
		slog.Info("watch.indexed", "path", c.RelPath, "status", res.Status, "problems", res.Problems)
	}
	return errors.Join(errs...)
}

func logMetricsErr(err error) {
	slog.Warn("metrics.serve", "err", err)
}
