package pprof

import (
	"fmt"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	rpprof "runtime/pprof"

	"github.com/jindex/pkg/utils"
)

// Collector writes one file per configured profile type covering the time
// between Start and Stop.
type Collector struct {
	cfg    Config
	clock  utils.Clock
	logger utils.Logger

	prefix  string
	cpuFile *os.File
	files   []string
}

// NewCollector creates a collector for an enabled configuration.
func NewCollector(cfg Config, logger utils.Logger) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Collector{
		cfg:    cfg,
		clock:  utils.NewRealClock(),
		logger: utils.OrNull(logger),
	}, nil
}

// WithClock sets the clock used to name profile files.
func (c *Collector) WithClock(clock utils.Clock) *Collector {
	c.clock = clock
	return c
}

// Start starts CPU profiling and enables the block and mutex profiles
// when they are configured.
func (c *Collector) Start() error {
	if err := os.MkdirAll(c.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create pprof directory: %w", err)
	}
	c.prefix = c.clock.Now().Format("20060102-150405")

	if c.cfg.HasProfile(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if c.cfg.HasProfile(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}

	if c.cfg.HasProfile(ProfileCPU) {
		f, err := os.Create(c.path(ProfileCPU))
		if err != nil {
			return fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := rpprof.StartCPUProfile(f); err != nil {
			f.Close()
			os.Remove(f.Name())
			return fmt.Errorf("failed to start cpu profile: %w", err)
		}
		c.cpuFile = f
	}
	return nil
}

// Stop finishes CPU profiling and writes every other configured profile.
// It returns the first error but attempts every profile.
func (c *Collector) Stop() error {
	var firstErr error
	record := func(path string, err error) {
		if err != nil {
			c.logger.Warn("Failed to write profile %s: %v", path, err)
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		c.files = append(c.files, path)
		c.logger.Debug("Wrote profile %s", path)
	}

	if c.cpuFile != nil {
		rpprof.StopCPUProfile()
		record(c.cpuFile.Name(), c.cpuFile.Close())
		c.cpuFile = nil
	}

	for _, pt := range c.cfg.profiles() {
		if pt == ProfileCPU {
			continue
		}
		path := c.path(pt)
		record(path, c.writeProfile(pt, path))
	}

	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
	return firstErr
}

func (c *Collector) writeProfile(pt ProfileType, path string) error {
	profile := rpprof.Lookup(string(pt))
	if profile == nil {
		return fmt.Errorf("unknown runtime profile %q", pt)
	}
	if pt == ProfileHeap || pt == ProfileAllocs {
		runtime.GC()
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := profile.WriteTo(f, 0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Files returns the profile files written by Stop.
func (c *Collector) Files() []string {
	return c.files
}

func (c *Collector) path(pt ProfileType) string {
	return filepath.Join(c.cfg.OutputDir, fmt.Sprintf("%s-%s.pprof", c.prefix, pt))
}

// Run runs fn between Start and Stop of a collector. When profiling is
// disabled fn runs alone. A failure to write profiles is logged, never
// returned in place of the error of fn.
func Run(cfg Config, logger utils.Logger, fn func() error) error {
	if !cfg.Enabled {
		return fn()
	}
	logger = utils.OrNull(logger)

	collector, err := NewCollector(cfg, logger)
	if err != nil {
		return err
	}
	if err := collector.Start(); err != nil {
		return err
	}

	fnErr := fn()
	if err := collector.Stop(); err != nil {
		logger.Warn("Profiling incomplete: %v", err)
	}
	logger.Info("Wrote %d profiles to %s", len(collector.Files()), cfg.OutputDir)
	return fnErr
}

// Handler serves the net/http/pprof endpoints under /debug/pprof/.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)
	return mux
}
