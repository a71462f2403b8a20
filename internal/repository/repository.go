// Package repository records index builds in a relational database.
package repository

import (
	"context"
	"time"

	"github.com/jindex/internal/index"
)

// BuildStatus is the lifecycle state of a recorded build.
type BuildStatus string

const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// Build is one recorded index build.
type Build struct {
	ID         string              `json:"id" yaml:"id"`
	Name       string              `json:"name" yaml:"name"`
	Status     BuildStatus         `json:"status" yaml:"status"`
	Sources    []string            `json:"sources" yaml:"sources"`
	Stats      index.Stats         `json:"stats" yaml:"stats"`
	TimeInfo   index.BuildTimeInfo `json:"time_info" yaml:"time_info"`
	IndexPath  string              `json:"index_path,omitempty" yaml:"index_path,omitempty"`
	IndexURL   string              `json:"index_url,omitempty" yaml:"index_url,omitempty"`
	Error      string              `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt  time.Time           `json:"created_at" yaml:"created_at"`
	FinishedAt *time.Time          `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// BuildFilter narrows ListBuilds. Zero values match everything.
type BuildFilter struct {
	Name   string
	Status BuildStatus
	Limit  int
}

// DefaultListLimit caps ListBuilds when the filter sets no limit.
const DefaultListLimit = 50

func (f BuildFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// BuildRepository defines the interface for build history operations.
type BuildRepository interface {
	// CreateBuild inserts a running build. An empty ID is replaced by a
	// new UUID and a zero CreatedAt by the current time.
	CreateBuild(ctx context.Context, build *Build) error

	// FinishBuild stores the final status, statistics, timings, index path
	// and error of a build.
	FinishBuild(ctx context.Context, build *Build) error

	// SetPublished records where the index of a build was published.
	SetPublished(ctx context.Context, id string, url string) error

	// GetBuild retrieves a build by its ID.
	GetBuild(ctx context.Context, id string) (*Build, error)

	// ListBuilds returns builds newest first.
	ListBuilds(ctx context.Context, filter BuildFilter) ([]*Build, error)
}
