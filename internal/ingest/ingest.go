// Package ingest reads class files in parallel and builds class indexes
// from them. Inputs are split into contiguous chunks, one per worker; each
// worker produces its own list of class descriptions and the lists are
// joined in chunk order, so a build is deterministic for a given input.
package ingest

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jindex/internal/archive"
	"github.com/jindex/internal/index"
	"github.com/jindex/pkg/filter"
	"github.com/jindex/pkg/parallel"
	"github.com/jindex/pkg/telemetry"
	"github.com/jindex/pkg/utils"
)

// Options configures ingestion and the build that follows it.
type Options struct {
	// Workers bounds the fan-out. Zero uses one worker per CPU.
	Workers int
	// ExpectedMethodCount is passed to the builder.
	ExpectedMethodCount int
	Logger              utils.Logger
	// Timer receives the file_reading, class_reading and indexing phases.
	// A nil timer is replaced by a private one.
	Timer *utils.Timer
	// Progress is incremented once per archive or class buffer.
	Progress *parallel.ProgressTracker
	// Filter drops classes by package before indexing. Nil keeps all.
	Filter *filter.PackageFilter
}

// DefaultOptions returns options with one worker per CPU and a null
// logger.
func DefaultOptions() Options {
	return Options{Logger: &utils.NullLogger{}}
}

func (o Options) normalize() Options {
	o.Logger = utils.OrNull(o.Logger)
	if o.Timer == nil {
		o.Timer = utils.NewTimer("ingest")
	}
	return o
}

func (o Options) pool() parallel.PoolConfig {
	return parallel.DefaultPoolConfig().WithWorkers(o.Workers)
}

// ============================================================================
// Raw class buffers
// ============================================================================

// ReadBytes decodes every buffer into a class description. Buffers that do
// not decode are skipped.
func ReadBytes(ctx context.Context, classes [][]byte, opts Options) ([]index.ClassInfo, error) {
	opts = opts.normalize()
	ctx, span := telemetry.StartSpan(ctx, "ingest.ReadBytes", attribute.Int("classes", len(classes)))

	phase := opts.Timer.Start(index.PhaseClassReading)
	processor := parallel.NewChunkProcessor[[]byte, index.ClassInfo](opts.pool())
	infos, err := processor.ProcessChunks(ctx, classes, func(ctx context.Context, chunk [][]byte, workerID int) ([]index.ClassInfo, error) {
		out := make([]index.ClassInfo, 0, len(chunk))
		for i, data := range chunk {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			info, err := ProcessClass(data, opts.Logger)
			opts.Progress.Increment()
			if err != nil {
				opts.Logger.Debug("Skipping class buffer %d of worker %d: %v", i, workerID, err)
				continue
			}
			out = append(out, info)
		}
		return out, nil
	})
	phase.Stop()

	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// FromBytes builds an index from raw class file buffers.
func FromBytes(ctx context.Context, classes [][]byte, opts Options) (*index.ClassIndex, error) {
	opts = opts.normalize()
	infos, err := ReadBytes(ctx, classes, opts)
	if err != nil {
		return nil, err
	}
	return build(ctx, infos, opts)
}

// ============================================================================
// Archives
// ============================================================================

// archiveTiming is the time one worker spent on archive I/O and on
// decoding classes.
type archiveTiming struct {
	files   time.Duration
	classes time.Duration
}

// ProcessArchive reads every class of the jar or class directory at path.
// Classes that do not decode are logged and skipped; a missing or corrupt
// archive is an error.
func ProcessArchive(path string, logger utils.Logger) ([]index.ClassInfo, error) {
	infos, _, err := processArchive(path, utils.OrNull(logger))
	return infos, err
}

func processArchive(path string, logger utils.Logger) ([]index.ClassInfo, archiveTiming, error) {
	var infos []index.ClassInfo
	var timing archiveTiming

	start := time.Now()
	err := archive.Walk(path, func(name string, data []byte) error {
		classStart := time.Now()
		defer func() { timing.classes += time.Since(classStart) }()

		info, err := ProcessClass(data, logger)
		if err != nil {
			logger.Debug("Skipping %s in %s: %v", name, path, err)
			return nil
		}
		info.Source = path
		infos = append(infos, info)
		return nil
	})
	timing.files = time.Since(start) - timing.classes
	if err != nil {
		return nil, timing, err
	}
	return infos, timing, nil
}

// ReadArchives reads every archive in paths. Any archive failure fails the
// whole read. The file_reading and class_reading phases record the slowest
// worker's share of each.
func ReadArchives(ctx context.Context, paths []string, opts Options) ([]index.ClassInfo, error) {
	opts = opts.normalize()
	ctx, span := telemetry.StartSpan(ctx, "ingest.ReadArchives", attribute.Int("archives", len(paths)))

	timings := make([]archiveTiming, len(paths))
	processor := parallel.NewChunkProcessor[string, index.ClassInfo](opts.pool())
	infos, err := processor.ProcessChunks(ctx, paths, func(ctx context.Context, chunk []string, workerID int) ([]index.ClassInfo, error) {
		var out []index.ClassInfo
		for _, path := range chunk {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			_, archiveSpan := telemetry.StartSpan(ctx, "ingest.archive", attribute.String("path", path))
			classes, timing, err := processArchive(path, opts.Logger)
			telemetry.EndSpan(archiveSpan, err)
			opts.Progress.Increment()
			if err != nil {
				return nil, err
			}
			timings[workerID].files += timing.files
			timings[workerID].classes += timing.classes
			out = append(out, classes...)
		}
		return out, nil
	})

	var slowest archiveTiming
	for _, t := range timings {
		slowest.files = max(slowest.files, t.files)
		slowest.classes = max(slowest.classes, t.classes)
	}
	opts.Timer.Add(index.PhaseFileReading, slowest.files)
	opts.Timer.Add(index.PhaseClassReading, slowest.classes)

	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("Read %d classes from %d archives", len(infos), len(paths))
	return infos, nil
}

// FromArchives builds an index from jar files and class directories.
func FromArchives(ctx context.Context, paths []string, opts Options) (*index.ClassIndex, error) {
	opts = opts.normalize()
	infos, err := ReadArchives(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	return build(ctx, infos, opts)
}

// build runs the index builder and attaches the timings recorded so far.
func build(ctx context.Context, infos []index.ClassInfo, opts Options) (*index.ClassIndex, error) {
	infos = applyFilter(infos, opts)
	_, span := telemetry.StartSpan(ctx, "index.Build", attribute.Int("classes", len(infos)))
	idx, err := index.NewBuilder(index.BuildOptions{
		ExpectedMethodCount: opts.ExpectedMethodCount,
		Logger:              opts.Logger,
		Timer:               opts.Timer,
	}).Build(infos)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	idx.SetTimeInfo(index.TimeInfoFromTimer(opts.Timer))
	return idx, nil
}

func applyFilter(infos []index.ClassInfo, opts Options) []index.ClassInfo {
	if opts.Filter.IsEmpty() {
		return infos
	}
	kept := infos[:0]
	for _, info := range infos {
		if opts.Filter.Allow(info.PackageName) {
			kept = append(kept, info)
		}
	}
	if dropped := len(infos) - len(kept); dropped > 0 {
		opts.Logger.Info("Filtered out %d classes by package", dropped)
	}
	return kept
}
