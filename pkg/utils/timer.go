package utils

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one named timing phase. Durations of a phase that is started
// more than once accumulate.
type Phase struct {
	Name     string
	Duration time.Duration
	Runs     int

	started time.Time
	running bool
}

// PhaseTimer stops a single phase; it is meant for defer.
type PhaseTimer struct {
	timer     *Timer
	phaseName string
}

// Stop stops the phase and returns the phase's accumulated duration.
func (pt *PhaseTimer) Stop() time.Duration {
	return pt.timer.StopPhase(pt.phaseName)
}

// Timer records named phases in insertion order.
type Timer struct {
	mu         sync.Mutex
	name       string
	startTime  time.Time
	phases     map[string]*Phase
	phaseOrder []string
	logger     Logger
	enabled    bool
	clock      Clock
}

// TimerOption configures a Timer instance.
type TimerOption func(*Timer)

// WithLogger sets the logger PrintSummary writes to.
func WithLogger(logger Logger) TimerOption {
	return func(t *Timer) {
		t.logger = logger
	}
}

// WithEnabled turns every operation into a no-op when false.
func WithEnabled(enabled bool) TimerOption {
	return func(t *Timer) {
		t.enabled = enabled
	}
}

// WithClock sets a custom clock.
func WithClock(clock Clock) TimerOption {
	return func(t *Timer) {
		t.clock = clock
	}
}

// NewTimer creates a new Timer with the given name and options.
func NewTimer(name string, opts ...TimerOption) *Timer {
	t := &Timer{
		name:    name,
		phases:  make(map[string]*Phase),
		enabled: true,
		clock:   NewRealClock(),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.startTime = t.clock.Now()
	return t
}

// Start starts (or restarts) timing a phase.
func (t *Timer) Start(phaseName string) *PhaseTimer {
	pt := &PhaseTimer{timer: t, phaseName: phaseName}
	if !t.enabled {
		return pt
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.phase(phaseName)
	phase.started = t.clock.Now()
	phase.running = true
	return pt
}

// StopPhase stops a running phase and returns its accumulated duration.
// Stopping a phase that is not running has no effect.
func (t *Timer) StopPhase(phaseName string) time.Duration {
	if !t.enabled {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	phase, ok := t.phases[phaseName]
	if !ok {
		return 0
	}
	if phase.running {
		phase.Duration += t.clock.Now().Sub(phase.started)
		phase.Runs++
		phase.running = false
	}
	return phase.Duration
}

// Add adds an externally measured duration to a phase.
func (t *Timer) Add(phaseName string, d time.Duration) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	phase := t.phase(phaseName)
	phase.Duration += d
	phase.Runs++
}

func (t *Timer) phase(name string) *Phase {
	phase, ok := t.phases[name]
	if !ok {
		phase = &Phase{Name: name}
		t.phases[name] = phase
		t.phaseOrder = append(t.phaseOrder, name)
	}
	return phase
}

// GetDuration returns the accumulated duration of a phase.
func (t *Timer) GetDuration(phaseName string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if phase, ok := t.phases[phaseName]; ok {
		return phase.Duration
	}
	return 0
}

// TotalDuration returns the time elapsed since the timer was created.
func (t *Timer) TotalDuration() time.Duration {
	return t.clock.Since(t.startTime)
}

// GetPhases returns copies of all phases in insertion order.
func (t *Timer) GetPhases() []Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	phases := make([]Phase, 0, len(t.phaseOrder))
	for _, name := range t.phaseOrder {
		phases = append(phases, *t.phases[name])
	}
	return phases
}

// Summary returns a formatted summary of all timing phases.
func (t *Timer) Summary() string {
	if !t.enabled {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s Timing Summary ===\n", t.name)
	for i, phase := range t.GetPhases() {
		fmt.Fprintf(&sb, "Phase %d - %s: %v\n", i+1, phase.Name, phase.Duration)
	}
	fmt.Fprintf(&sb, "Total: %v\n", t.TotalDuration())
	return sb.String()
}

// PrintSummary writes the summary to the configured logger, one line per phase.
func (t *Timer) PrintSummary() {
	if !t.enabled || t.logger == nil {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(t.Summary(), "\n"), "\n") {
		t.logger.Info("%s", line)
	}
}

// TimeFunc times fn as the given phase.
func (t *Timer) TimeFunc(phaseName string, fn func()) time.Duration {
	pt := t.Start(phaseName)
	fn()
	return pt.Stop()
}

// TimeFuncWithError times fn as the given phase and returns its error.
func (t *Timer) TimeFuncWithError(phaseName string, fn func() error) (time.Duration, error) {
	pt := t.Start(phaseName)
	err := fn()
	return pt.Stop(), err
}

// NullTimer is a disabled timer; all methods are safe and do nothing.
var NullTimer = NewTimer("null", WithEnabled(false))
