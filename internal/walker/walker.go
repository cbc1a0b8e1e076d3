// Package walker mirrors an input image tree onto an output tree, running
// every regular file through the letterbox pipeline.
package walker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"datasetprep/internal/manifest"
	"datasetprep/internal/metrics"
	"datasetprep/internal/pipeline"
	"datasetprep/internal/storage"
)

// Walker processes a dataset tree. Processor is required; every other field
// is optional.
type Walker struct {
	Processor *pipeline.Processor
	Logger    *zap.Logger

	// Workers bounds files in flight. Zero means GOMAXPROCS.
	Workers int

	// Manifest, when set, records every outcome. With Resume, inputs whose
	// size and mtime match a processed entry are skipped.
	Manifest *manifest.Store
	Resume   bool

	// TempMaxAge is the minimum age of orphaned temp files removed from the
	// output root before the walk.
	TempMaxAge time.Duration
}

// New returns a Walker for p.
func New(p *pipeline.Processor, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{Processor: p, Logger: logger.Named("walker")}
}

// dirPair is one pending directory of the worklist.
type dirPair struct {
	in, out string
	rel     string
}

// job is one regular input file.
type job struct {
	inPath  string
	relPath string
	outPath string
	size    int64
	modTime time.Time
}

// Run walks inRoot and writes results under outRoot. Per-file failures are
// logged and counted; only an unusable root or a cancelled ctx fail the run.
// In-flight files finish before Run returns.
func (w *Walker) Run(ctx context.Context, inRoot, outRoot string) (metrics.Summary, error) {
	if w.Processor == nil {
		return metrics.Summary{}, errors.New("walker: nil processor")
	}
	if !pipeline.Ready() {
		return metrics.Summary{}, pipeline.ErrCodecsNotReady
	}
	log := w.logger()

	info, err := os.Stat(inRoot)
	if err != nil {
		return metrics.Summary{}, fmt.Errorf("%w: input root: %w", pipeline.ErrIOFailure, err)
	}
	if !info.IsDir() {
		return metrics.Summary{}, fmt.Errorf("%w: input root %s is not a directory", pipeline.ErrIOFailure, inRoot)
	}
	if err := storage.EnsureDir(outRoot); err != nil {
		return metrics.Summary{}, fmt.Errorf("%w: output root: %w", pipeline.ErrIOFailure, err)
	}
	outInfo, err := os.Stat(outRoot)
	if err != nil {
		return metrics.Summary{}, fmt.Errorf("%w: output root: %w", pipeline.ErrIOFailure, err)
	}
	if n, err := storage.CleanOrphanedTempFiles(outRoot, w.TempMaxAge); err != nil {
		log.Warn("temp file cleanup failed", zap.Error(err))
	} else if n > 0 {
		log.Info("removed orphaned temp files", zap.Int("count", n))
	}

	workers := w.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	rec := metrics.New()
	start := time.Now()
	log.Info("dataset run started",
		zap.String("input", inRoot),
		zap.String("output", outRoot),
		zap.Int("workers", workers),
		zap.Int("target_width", w.Processor.Spec.TargetWidth),
		zap.Int("target_height", w.Processor.Spec.TargetHeight),
		zap.Stringer("interpolation", w.Processor.Spec.Interpolation),
		zap.Bool("pad", w.Processor.Spec.Pad),
	)

	var g errgroup.Group
	g.SetLimit(workers)

	// claimed maps an output path to the input that owns it. Only the
	// dispatching goroutine touches it.
	claimed := make(map[string]string)
	ext := w.Processor.Format.Ext()
	out := storage.New(outRoot)

	queue := []dirPair{{in: inRoot, out: outRoot}}
	var walkErr error
dispatch:
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir.in)
		if err != nil {
			if dir.rel == "" {
				walkErr = fmt.Errorf("%w: read input root: %w", pipeline.ErrIOFailure, err)
				break
			}
			err = fmt.Errorf("%w: read dir: %w", pipeline.ErrIOFailure, err)
			log.Warn("directory skipped", zap.String("rel_path", dir.rel), zap.Error(err))
			rec.LogFailed(err)
			continue
		}
		if err := storage.EnsureDir(dir.out); err != nil {
			log.Warn("create output directory", zap.String("path", dir.out), zap.Error(err))
		}

		for _, e := range entries {
			if ctx.Err() != nil {
				break dispatch
			}
			name := e.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			rel := filepath.Join(dir.rel, name)
			if e.IsDir() {
				sub := filepath.Join(dir.in, name)
				// the output tree may sit inside the input tree under any spelling
				if info, err := e.Info(); err == nil && os.SameFile(info, outInfo) {
					continue
				}
				queue = append(queue, dirPair{
					in:  sub,
					out: filepath.Join(dir.out, name),
					rel: rel,
				})
				continue
			}
			if !e.Type().IsRegular() {
				log.Debug("non-regular file skipped", zap.String("rel_path", rel))
				continue
			}

			j, err := w.newJob(e, dir, rel, out, ext)
			if err == nil {
				if owner, ok := claimed[j.outPath]; ok {
					err = fmt.Errorf("%w: %s already maps to %s", pipeline.ErrOutputCollision, owner, j.outPath)
				} else {
					claimed[j.outPath] = rel
				}
			}
			if err != nil {
				w.fail(ctx, rec, j, err)
				continue
			}

			g.Go(func() error {
				w.handle(ctx, rec, j)
				return nil
			})
		}
	}
	_ = g.Wait()

	summary := rec.Summary()
	fields := append(summary.Fields(), zap.Duration("elapsed", time.Since(start)))
	if walkErr != nil {
		log.Error("dataset run aborted", append(fields, zap.Error(walkErr))...)
		return summary, walkErr
	}
	if err := ctx.Err(); err != nil {
		log.Warn("dataset run cancelled", append(fields, zap.Error(err))...)
		return summary, err
	}
	log.Info("dataset run complete", fields...)
	w.logManifest(ctx)
	return summary, nil
}

func (w *Walker) logManifest(ctx context.Context) {
	if w.Manifest == nil {
		return
	}
	counts, err := w.Manifest.Counts(ctx)
	if err != nil {
		w.logger().Warn("manifest counts", zap.Error(err))
		return
	}
	w.logger().Info("manifest totals",
		zap.Int64("processed", counts[manifest.StatusProcessed]),
		zap.Int64("failed", counts[manifest.StatusFailed]),
	)
}

func (w *Walker) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}

func (w *Walker) newJob(e os.DirEntry, dir dirPair, rel string, out *storage.Storage, ext string) (job, error) {
	j := job{inPath: filepath.Join(dir.in, e.Name()), relPath: filepath.ToSlash(rel)}
	info, err := e.Info()
	if err != nil {
		return j, fmt.Errorf("%w: stat: %w", pipeline.ErrIOFailure, err)
	}
	j.size, j.modTime = info.Size(), info.ModTime()
	j.outPath, err = out.PathFor(rel, ext)
	if err != nil {
		return j, fmt.Errorf("%w: %w", pipeline.ErrIOFailure, err)
	}
	return j, nil
}

// handle runs one job and records its outcome.
func (w *Walker) handle(ctx context.Context, rec *metrics.Recorder, j job) {
	if w.upToDate(ctx, j) {
		rec.LogSkipped()
		w.logger().Debug("file up to date", zap.String("rel_path", j.relPath))
		return
	}

	res, err := w.process(j)
	if err != nil {
		w.fail(ctx, rec, j, err)
		return
	}

	rec.LogProcessed()
	w.logger().Debug("file processed",
		zap.String("rel_path", j.relPath),
		zap.String("output", j.outPath),
		zap.String("source_format", res.SourceFormat),
		zap.Int("source_width", res.SourceWidth),
		zap.Int("source_height", res.SourceHeight),
		zap.Int("scaled_width", res.Plan.ScaledWidth),
		zap.Int("scaled_height", res.Plan.ScaledHeight),
		zap.Int64("bytes", res.EncodedBytes),
	)
	w.record(ctx, manifest.Entry{
		RelPath:    j.relPath,
		OutputPath: j.outPath,
		Size:       j.size,
		ModTime:    j.modTime,
		Status:     manifest.StatusProcessed,
		Width:      res.Plan.CanvasWidth,
		Height:     res.Plan.CanvasHeight,
	})
}

// process reads, letterboxes, encodes and atomically writes one file.
func (w *Walker) process(j job) (pipeline.Result, error) {
	if limit := w.Processor.MaxBytes; limit > 0 && j.size > limit {
		return pipeline.Result{}, fmt.Errorf("%w: %d bytes", pipeline.ErrTooLarge, j.size)
	}
	data, err := os.ReadFile(j.inPath)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("%w: read: %w", pipeline.ErrIOFailure, err)
	}

	var buf bytes.Buffer
	res, err := w.Processor.ProcessBytes(data, &buf)
	if err != nil {
		return res, err
	}
	if err := storage.AtomicWrite(j.outPath, &buf); err != nil {
		return res, fmt.Errorf("%w: write: %w", pipeline.ErrIOFailure, err)
	}
	return res, nil
}

func (w *Walker) upToDate(ctx context.Context, j job) bool {
	if !w.Resume || w.Manifest == nil {
		return false
	}
	e, err := w.Manifest.Lookup(ctx, j.relPath)
	if err != nil {
		w.logger().Warn("manifest lookup failed", zap.String("rel_path", j.relPath), zap.Error(err))
		return false
	}
	if !e.UpToDate(j.size, j.modTime) || e.OutputPath != j.outPath {
		return false
	}
	_, err = os.Stat(j.outPath)
	return err == nil
}

func (w *Walker) fail(ctx context.Context, rec *metrics.Recorder, j job, err error) {
	rec.LogFailed(err)
	kind := pipeline.KindOf(err)
	w.logger().Warn("file failed",
		zap.String("rel_path", j.relPath),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	w.record(ctx, manifest.Entry{
		RelPath:    j.relPath,
		OutputPath: j.outPath,
		Size:       j.size,
		ModTime:    j.modTime,
		Status:     manifest.StatusFailed,
		ErrorKind:  string(kind),
		Error:      err.Error(),
	})
}

func (w *Walker) record(ctx context.Context, e manifest.Entry) {
	if w.Manifest == nil {
		return
	}
	// outcomes of in-flight files are still recorded after cancellation
	if err := w.Manifest.Record(context.WithoutCancel(ctx), e); err != nil {
		w.logger().Warn("manifest record failed", zap.String("rel_path", e.RelPath), zap.Error(err))
	}
}
