// Package parallel provides the chunked fan-out used for ingestion.
package parallel

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Pool Configuration
// ============================================================================

// PoolConfig configures how many workers a fan-out uses.
type PoolConfig struct {
	// MaxWorkers is the maximum number of concurrent workers.
	// Default: runtime.NumCPU()
	MaxWorkers int
}

// DefaultPoolConfig returns a configuration with one worker per CPU.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxWorkers: runtime.NumCPU()}
}

// WithWorkers returns a new config with the specified number of workers.
// Non-positive values select the default.
func (c PoolConfig) WithWorkers(n int) PoolConfig {
	c.MaxWorkers = n
	return c
}

// workersFor bounds the worker count by the number of items.
func (c PoolConfig) workersFor(items int) int {
	workers := c.MaxWorkers
	if workers <= 0 {
		workers = DefaultPoolConfig().MaxWorkers
	}
	if workers > items {
		workers = items
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// ============================================================================
// Partitioning
// ============================================================================

// Chunk is a half-open range [Start, End) of an input slice.
type Chunk struct {
	Start int
	End   int
}

// Partition splits n items into parts contiguous chunks whose sizes differ
// by at most one. Earlier chunks take the remainder.
func Partition(n, parts int) []Chunk {
	if n <= 0 || parts <= 0 {
		return nil
	}
	if parts > n {
		parts = n
	}

	size, rem := n/parts, n%parts
	chunks := make([]Chunk, parts)
	start := 0
	for i := range chunks {
		end := start + size
		if i < rem {
			end++
		}
		chunks[i] = Chunk{Start: start, End: end}
		start = end
	}
	return chunks
}

// ============================================================================
// Chunk Processor
// ============================================================================

// ChunkProcessor splits a slice into contiguous chunks, processes each
// chunk on its own goroutine and concatenates the outputs in chunk order.
type ChunkProcessor[T any, R any] struct {
	config PoolConfig
}

// NewChunkProcessor creates a new chunk processor.
func NewChunkProcessor[T any, R any](config PoolConfig) *ChunkProcessor[T, R] {
	return &ChunkProcessor[T, R]{config: config}
}

// ProcessChunks runs processor over every chunk of items. Each worker owns
// its output slice; the outputs are joined in partition order, never in
// completion order. The first worker error cancels ctx for the remaining
// workers and is returned once all of them have stopped.
func (p *ChunkProcessor[T, R]) ProcessChunks(
	ctx context.Context,
	items []T,
	processor func(ctx context.Context, chunk []T, workerID int) ([]R, error),
) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	chunks := Partition(len(items), p.config.workersFor(len(items)))
	outputs := make([][]R, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	for w, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := processor(ctx, items[chunk.Start:chunk.End], w)
			if err != nil {
				return err
			}
			outputs[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, out := range outputs {
		total += len(out)
	}
	result := make([]R, 0, total)
	for _, out := range outputs {
		result = append(result, out...)
	}
	return result, nil
}

// ============================================================================
// Progress Tracking
// ============================================================================

// ProgressTracker tracks progress of parallel operations.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	callback  func(completed, total int64)
	interval  time.Duration
	stopCh    chan struct{}
	stopped   atomic.Bool
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(total int64, callback func(completed, total int64), interval time.Duration) *ProgressTracker {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &ProgressTracker{
		total:    total,
		callback: callback,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start reports progress from a background goroutine until Stop or ctx
// cancellation.
func (pt *ProgressTracker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(pt.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pt.stopCh:
				return
			case <-ticker.C:
				if pt.callback != nil {
					pt.callback(pt.completed.Load(), pt.total)
				}
			}
		}
	}()
}

// Increment increments the completed count. A nil tracker ignores the call.
func (pt *ProgressTracker) Increment() {
	if pt == nil {
		return
	}
	pt.completed.Add(1)
}

// Stop stops progress tracking and reports the final count once.
func (pt *ProgressTracker) Stop() {
	if pt.stopped.CompareAndSwap(false, true) {
		close(pt.stopCh)
		if pt.callback != nil {
			pt.callback(pt.completed.Load(), pt.total)
		}
	}
}

// Completed returns the current completed count.
func (pt *ProgressTracker) Completed() int64 {
	return pt.completed.Load()
}

// Total returns the expected number of items.
func (pt *ProgressTracker) Total() int64 {
	return pt.total
}
