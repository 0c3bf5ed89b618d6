// Package pipeline indexes compilation units into a build: front end,
// visitor and persistence, one transaction per unit.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/symbol-indexer/internal/discover"
	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/frontend"
	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/metrics"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/syntax"
	"github.com/DeusData/symbol-indexer/internal/visitor"
)

// visitUnit walks a bound unit. Tests replace it to inject failures.
var visitUnit = visitor.Visit

// ErrMissingBuild is returned when the build does not exist and Options
// does not ask for it to be created.
var ErrMissingBuild = errors.New("build does not exist")

// Options configures indexing.
type Options struct {
	BuildID     string
	BuildLabel  string
	CreateBuild bool
	// Workers bounds concurrent units; 0 means one per CPU.
	Workers int
	// Incremental skips files whose content hash is unchanged.
	Incremental bool
	Discover    *discover.Options
}

// UnitResult summarizes one unit.
type UnitResult struct {
	Path     string
	Language lang.Language
	Status   model.ParseStatus
	// Skipped is set for units left untouched by an incremental run.
	Skipped  bool
	Problems int
	Errors   int
	Nodes    int
	Entities int
	Err      error
}

// Report summarizes a run.
type Report struct {
	BuildID string
	Units   []*UnitResult
	Elapsed time.Duration
}

// Failed reports whether any unit was aborted by a fatal error.
func (r *Report) Failed() bool {
	for _, u := range r.Units {
		if u.Err != nil {
			return true
		}
	}
	return false
}

// HasErrors reports whether any unit recorded an error diagnostic.
func (r *Report) HasErrors() bool {
	for _, u := range r.Units {
		if u.Errors > 0 {
			return true
		}
	}
	return false
}

// Counts returns the number of indexed, skipped and failed units.
func (r *Report) Counts() (indexed, skipped, failed int) {
	for _, u := range r.Units {
		switch {
		case u.Err != nil:
			failed++
		case u.Skipped:
			skipped++
		default:
			indexed++
		}
	}
	return indexed, skipped, failed
}

func ensureBuild(s *store.Store, opts Options) error {
	b, err := s.GetBuild(opts.BuildID)
	if err != nil {
		return err
	}
	if b != nil {
		return nil
	}
	if !opts.CreateBuild {
		return fmt.Errorf("%w: %s", ErrMissingBuild, opts.BuildID)
	}
	return s.CreateBuild(opts.BuildID, opts.BuildLabel)
}

// ContentHash is the hex xxh3 digest stored with each file.
func ContentHash(src []byte) string {
	sum := xxh3.Hash128(src).Bytes()
	return hex.EncodeToString(sum[:])
}

// FileID is the stable id of path within a build.
func FileID(buildID, path string) int64 {
	return identity.ID(identity.FileKey(buildID, path))
}

// IndexUnit binds and visits one unit. Everything it writes, problems
// included, commits together or not at all.
func IndexUnit(ctx context.Context, s *store.Store, unit *syntax.Unit, opts Options) (*UnitResult, error) {
	res := &UnitResult{Path: unit.Path, Language: unit.Language, Status: model.NotParsed}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := ensureBuild(s, opts); err != nil {
		return res, err
	}

	start := time.Now()
	if unit.Root == nil {
		fe, err := frontend.For(unit.Language)
		if err != nil {
			return res, err
		}
		if _, err := fe.Build(unit); err != nil {
			return res, fmt.Errorf("bind %s: %w", unit.Path, err)
		}
	}

	file := &model.File{
		ID:          FileID(opts.BuildID, unit.Path),
		BuildID:     opts.BuildID,
		Path:        unit.Path,
		Type:        string(unit.Language),
		ContentHash: ContentHash(unit.Source),
		ModTime:     unit.ModTime,
		ParseStatus: model.NotParsed,
	}
	var problems []model.Problem
	err := s.WithTransaction(ctx, func(tx *store.Store) error {
		if err := tx.DeleteFileData(opts.BuildID, file.ID); err != nil {
			return err
		}
		if err := tx.UpsertFile(file); err != nil {
			return err
		}
		ec := engine.NewContext(tx, opts.BuildID, file, unit.Source, lang.ForLanguage(unit.Language))
		for _, r := range unit.SyntaxErrors {
			ec.Problems.Add(model.SeverityError, r, "syntax error")
		}
		if err := visitUnit(ec, unit.Root); err != nil {
			return fmt.Errorf("visit %s: %w", unit.Path, err)
		}

		file.ParseStatus = model.FullyParsed
		if ec.Problems.ErrorCount() > 0 {
			file.ParseStatus = model.PartiallyParsed
		}
		if err := tx.UpsertFile(file); err != nil {
			return err
		}
		problems = ec.Problems.List()
		if err := tx.InsertProblems(problems); err != nil {
			return err
		}
		res.Errors = ec.Problems.ErrorCount()
		res.Nodes = ec.NodesCreated
		res.Entities = ec.EntitiesCreated
		return nil
	})
	if err != nil {
		metrics.UnitsTotal.WithLabelValues("failed").Inc()
		return res, err
	}

	res.Status = file.ParseStatus
	res.Problems = len(problems)
	metrics.UnitDuration.WithLabelValues(string(unit.Language)).Observe(time.Since(start).Seconds())
	metrics.UnitsTotal.WithLabelValues(string(res.Status)).Inc()
	metrics.NodesCreated.Add(float64(res.Nodes))
	metrics.EntitiesCreated.Add(float64(res.Entities))
	for _, p := range problems {
		metrics.ProblemsTotal.WithLabelValues(string(p.Severity)).Inc()
	}
	slog.Debug("pipeline.unit.done", "path", unit.Path, "status", res.Status,
		"nodes", res.Nodes, "entities", res.Entities, "problems", res.Problems)
	return res, nil
}

// Run indexes every Java and Python file below root. Units are bound in
// parallel; a unit that fails is reported without stopping the others.
func Run(ctx context.Context, s *store.Store, root string, opts Options) (*Report, error) {
	start := time.Now()
	if opts.BuildID == "" {
		opts.BuildID = uuid.NewString()
		opts.CreateBuild = true
	}
	if err := ensureBuild(s, opts); err != nil {
		return nil, err
	}
	slog.Info("pipeline.start", "build", opts.BuildID, "path", root)

	files, err := discover.Discover(ctx, root, opts.Discover)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	slog.Info("pipeline.discovered", "files", len(files))

	var stored map[string]string
	if opts.Incremental {
		if stored, err = s.GetContentHashes(opts.BuildID); err != nil {
			return nil, err
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]*UnitResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = indexFile(gctx, s, f, stored, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{BuildID: opts.BuildID, Units: results, Elapsed: time.Since(start)}
	indexed, skipped, failed := report.Counts()
	slog.Info("pipeline.done", "build", opts.BuildID, "indexed", indexed, "skipped", skipped,
		"failed", failed, "elapsed", report.Elapsed)
	return report, nil
}

func indexFile(ctx context.Context, s *store.Store, f discover.FileInfo, stored map[string]string, opts Options) *UnitResult {
	src, err := os.ReadFile(f.Path)
	if err != nil {
		slog.Warn("pipeline.read.err", "path", f.RelPath, "err", err)
		return &UnitResult{Path: f.RelPath, Language: f.Language, Status: model.NotParsed, Err: err}
	}
	if prev, ok := stored[f.RelPath]; ok && prev == ContentHash(src) {
		metrics.UnitsTotal.WithLabelValues("unchanged").Inc()
		return &UnitResult{Path: f.RelPath, Language: f.Language, Skipped: true}
	}

	unit, err := LoadUnit(f.Path, f.RelPath, f.Language, src)
	if err != nil {
		return &UnitResult{Path: f.RelPath, Language: f.Language, Status: model.NotParsed, Err: err}
	}
	res, err := IndexUnit(ctx, s, unit, opts)
	if err != nil {
		slog.Warn("pipeline.unit.err", "path", f.RelPath, "err", err)
		res.Err = err
	}
	return res
}

// RemoveUnit drops a deleted file from the build.
func RemoveUnit(ctx context.Context, s *store.Store, buildID, path string) error {
	err := s.WithTransaction(ctx, func(tx *store.Store) error {
		return tx.DeleteFile(buildID, FileID(buildID, path))
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	slog.Debug("pipeline.unit.removed", "path", path)
	return nil
}

// LoadUnit binds a file read from disk. src may be nil, in which case the
// file is read.
func LoadUnit(path, rel string, l lang.Language, src []byte) (*syntax.Unit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if src == nil {
		if src, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	unit := &syntax.Unit{Path: filepath.ToSlash(rel), Language: l, Source: src, ModTime: info.ModTime()}
	fe, err := frontend.For(l)
	if err != nil {
		return nil, err
	}
	if _, err := fe.Build(unit); err != nil {
		return nil, fmt.Errorf("bind %s: %w", rel, err)
	}
	return unit, nil
}
