// Package pprof profiles jindex itself. Commands write profiles to files
// around a run; the query server can expose the net/http/pprof endpoints.
package pprof

import (
	"fmt"
	"strings"
)

// ProfileType defines the type of profile to collect. Every type except
// cpu names a runtime/pprof profile.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileAllocs    ProfileType = "allocs"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileAllocs, ProfileGoroutine, ProfileBlock, ProfileMutex}
}

// DefaultProfileTypes returns the profile types collected when none are
// configured.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// ParseProfileTypes parses a comma-separated string into profile types.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	var types []ProfileType
	for _, p := range strings.Split(s, ",") {
		pt := ProfileType(strings.ToLower(strings.TrimSpace(p)))
		if !pt.valid() {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		types = append(types, pt)
	}
	return types, nil
}

func (pt ProfileType) valid() bool {
	for _, known := range AllProfileTypes() {
		if pt == known {
			return true
		}
	}
	return false
}

// Config holds the profiling configuration.
type Config struct {
	// Enabled turns on profile files for commands and the /debug/pprof/
	// endpoints of the query server.
	Enabled bool `mapstructure:"enabled"`

	// Profiles lists the profile types written to OutputDir. Empty means
	// DefaultProfileTypes.
	Profiles []ProfileType `mapstructure:"profiles"`

	// OutputDir is the directory for profile files.
	OutputDir string `mapstructure:"output_dir"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.OutputDir == "" {
		return fmt.Errorf("pprof output directory is required")
	}
	for _, pt := range c.Profiles {
		if !pt.valid() {
			return fmt.Errorf("unknown profile type: %q", pt)
		}
	}
	return nil
}

// profiles returns the configured types or the defaults.
func (c *Config) profiles() []ProfileType {
	if len(c.Profiles) == 0 {
		return DefaultProfileTypes()
	}
	return c.Profiles
}

// HasProfile checks if a profile type is enabled.
func (c *Config) HasProfile(pt ProfileType) bool {
	for _, p := range c.profiles() {
		if p == pt {
			return true
		}
	}
	return false
}
