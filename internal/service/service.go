// Package service ties ingestion, persistence, publishing and build history
// together behind the operations the CLI and the query server use.
package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jindex/internal/index"
	"github.com/jindex/internal/ingest"
	"github.com/jindex/internal/repository"
	"github.com/jindex/internal/storage"
	"github.com/jindex/pkg/compression"
	"github.com/jindex/pkg/config"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/parallel"
	"github.com/jindex/pkg/telemetry"
	"github.com/jindex/pkg/utils"
)

// Service is the main application service.
type Service struct {
	config  *config.Config
	logger  utils.Logger
	clock   utils.Clock
	db      *repository.Repositories
	builds  repository.BuildRepository
	storage storage.Storage
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "config is nil")
	}
	if logger == nil {
		logger = utils.GetGlobalLogger()
	}

	return &Service{
		config: cfg,
		logger: logger,
		clock:  utils.NewRealClock(),
	}, nil
}

// WithBuildRepository records build history in repo.
func (s *Service) WithBuildRepository(repo repository.BuildRepository) *Service {
	s.builds = repo
	return s
}

// WithStorage publishes to store.
func (s *Service) WithStorage(store storage.Storage) *Service {
	s.storage = store
	return s
}

// WithClock replaces the clock used for build timestamps and timers.
func (s *Service) WithClock(clock utils.Clock) *Service {
	s.clock = clock
	return s
}

// Initialize opens the build history database when it is enabled.
// Storage is opened lazily by Publish and Fetch.
func (s *Service) Initialize(ctx context.Context) error {
	if !s.config.Database.Enabled || s.builds != nil {
		return nil
	}

	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)
	gormDB, err := repository.NewGormDB(&s.config.Database)
	if err != nil {
		return err
	}

	s.db = repository.NewRepositories(gormDB)
	if err := s.db.Migrate(ctx); err != nil {
		s.db.Close()
		s.db = nil
		return err
	}
	s.builds = s.db.Builds
	s.logger.Info("Database connection established")
	return nil
}

func (s *Service) store() (storage.Storage, error) {
	if s.storage != nil {
		return s.storage, nil
	}

	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)
	store, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return nil, err
	}
	s.storage = store
	return store, nil
}

// Close releases the database connection.
func (s *Service) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// HealthCheck performs a health check on the service.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return apperrors.Wrap(apperrors.CodeDatabaseError, "database health check failed", err)
		}
	}
	return nil
}

// ============================================================================
// Build
// ============================================================================

// BuildRequest describes one index build.
type BuildRequest struct {
	// Name identifies the index in storage and history. Defaults to the
	// base name of the first source without its extension.
	Name string
	// Sources are jar files and class directories.
	Sources []string
	// Output is the index file path. Defaults to <build.output_dir>/<name>.jidx.
	Output string
	// OnProgress, when set, is called with the number of archives read.
	OnProgress func(completed, total int64)
}

// BuildResult is the outcome of a successful build.
type BuildResult struct {
	Build *repository.Build
	Index *index.ClassIndex
	Path  string
}

// DefaultName derives an index name from a source path.
func DefaultName(source string) string {
	base := filepath.Base(filepath.Clean(source))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Build reads every source, builds the index and saves it. When build
// history is enabled the build is recorded as running and then as
// succeeded or failed.
func (s *Service) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	if len(req.Sources) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "at least one source is required")
	}
	if req.Name == "" {
		req.Name = DefaultName(req.Sources[0])
	}
	if req.Output == "" {
		req.Output = s.config.OutputPath(req.Name + storage.IndexFileExt)
	}

	compressionType, level, err := s.config.Compression()
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "service.Build",
		attribute.String("name", req.Name),
		attribute.Int("sources", len(req.Sources)))

	build := &repository.Build{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Status:    repository.BuildStatusRunning,
		Sources:   req.Sources,
		CreatedAt: s.clock.Now().UTC(),
	}
	if s.builds != nil {
		if err := s.builds.CreateBuild(ctx, build); err != nil {
			telemetry.EndSpan(span, err)
			return nil, err
		}
	}

	log := s.logger.WithFields(map[string]interface{}{"build": build.ID, "name": req.Name})
	log.Info("Building index from %d sources", len(req.Sources))

	idx, err := s.buildIndex(ctx, req, log)
	if err == nil {
		err = save(idx, req.Output, compressionType, level)
	}

	finished := s.clock.Now().UTC()
	build.FinishedAt = &finished
	if err != nil {
		build.Status = repository.BuildStatusFailed
		build.Error = err.Error()
		log.Error("Build failed: %v", err)
	} else {
		build.Status = repository.BuildStatusSucceeded
		build.Stats = idx.Stats()
		build.TimeInfo = idx.TimeInfo()
		build.IndexPath = req.Output
		log.Info("Wrote %s (%d classes, %s)", req.Output, build.Stats.Classes, build.TimeInfo)
	}

	if s.builds != nil {
		// The caller sees the build error first.
		if ferr := s.builds.FinishBuild(ctx, build); ferr != nil {
			log.Error("Failed to record build result: %v", ferr)
			if err == nil {
				err = ferr
			}
		}
	}

	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return &BuildResult{Build: build, Index: idx, Path: req.Output}, nil
}

func (s *Service) buildIndex(ctx context.Context, req BuildRequest, log utils.Logger) (*index.ClassIndex, error) {
	var progress *parallel.ProgressTracker
	if req.OnProgress != nil {
		progress = parallel.NewProgressTracker(int64(len(req.Sources)), req.OnProgress, time.Second)
		progress.Start(ctx)
		defer progress.Stop()
	}

	timer := utils.NewTimer(req.Name, utils.WithClock(s.clock), utils.WithLogger(log))
	return ingest.FromArchives(ctx, req.Sources, ingest.Options{
		Workers:             s.config.Build.Workers,
		ExpectedMethodCount: s.config.Build.ExpectedMethodCount,
		Logger:              log,
		Timer:               timer,
		Progress:            progress,
		Filter:              s.config.PackageFilter(),
	})
}

func save(idx *index.ClassIndex, path string, compressionType compression.Type, level compression.Level) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "failed to create directory for %s", path)
	}
	return idx.SaveToFile(path, compressionType, level)
}

// ============================================================================
// Load
// ============================================================================

// Load reads a saved index file.
func (s *Service) Load(ctx context.Context, path string) (*index.ClassIndex, error) {
	_, span := telemetry.StartSpan(ctx, "service.Load", attribute.String("path", path))
	idx, err := index.LoadFromFile(path)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Loaded %s in %dms", path, idx.TimeInfo().DeserializationMillis)
	return idx, nil
}

// ============================================================================
// Publish / Fetch
// ============================================================================

// PublishRequest describes an index file to publish.
type PublishRequest struct {
	Path string
	Name string
	// BuildID names the published object. A new ID is generated when it
	// is empty; when history is enabled and the ID is known, the build
	// records the published URL.
	BuildID string
}

// PublishResult reports where an index was published.
type PublishResult struct {
	Key       string `json:"key" yaml:"key"`
	LatestKey string `json:"latest_key" yaml:"latest_key"`
	URL       string `json:"url" yaml:"url"`
}

// Publish uploads an index file under its build key and as the latest
// index of its name.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.Path == "" {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "index path is required")
	}
	if _, err := os.Stat(req.Path); err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeInvalidInput, err, "cannot publish %s", req.Path)
	}
	if req.Name == "" {
		req.Name = DefaultName(req.Path)
	}
	if req.BuildID == "" {
		req.BuildID = uuid.NewString()
	}

	store, err := s.store()
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "service.Publish", attribute.String("name", req.Name))
	result, err := s.publish(ctx, store, req)
	telemetry.EndSpan(span, err)
	return result, err
}

func (s *Service) publish(ctx context.Context, store storage.Storage, req PublishRequest) (*PublishResult, error) {
	prefix := s.config.Storage.KeyPrefix
	result := &PublishResult{
		Key:       storage.IndexKey(prefix, req.Name, req.BuildID),
		LatestKey: storage.LatestKey(prefix, req.Name),
	}
	result.URL = store.GetURL(result.Key)

	if err := store.UploadFile(ctx, result.Key, req.Path); err != nil {
		return nil, err
	}
	if err := store.UploadFile(ctx, result.LatestKey, req.Path); err != nil {
		return nil, err
	}
	s.logger.Info("Published %s to %s", req.Path, result.URL)

	if s.builds != nil {
		err := s.builds.SetPublished(ctx, req.BuildID, result.URL)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
	}
	return result, nil
}

// Fetch downloads the latest published index of name to dest.
func (s *Service) Fetch(ctx context.Context, name, dest string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	key := storage.LatestKey(s.config.Storage.KeyPrefix, name)
	if err := store.DownloadFile(ctx, key, dest); err != nil {
		return err
	}
	s.logger.Info("Fetched %s to %s", store.GetURL(key), dest)
	return nil
}

// Published lists the published index keys of name, including the latest
// alias.
func (s *Service) Published(ctx context.Context, name string) ([]string, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	prefix := s.config.Storage.KeyPrefix
	if name != "" {
		prefix = strings.TrimSuffix(prefix, "/") + "/" + name + "/"
	}
	return store.List(ctx, strings.TrimPrefix(prefix, "/"))
}

// ============================================================================
// History
// ============================================================================

func (s *Service) history() (repository.BuildRepository, error) {
	if s.builds == nil {
		return nil, apperrors.New(apperrors.CodeConfigError, "build history requires database.enabled")
	}
	return s.builds, nil
}

// History lists recorded builds, newest first.
func (s *Service) History(ctx context.Context, filter repository.BuildFilter) ([]*repository.Build, error) {
	builds, err := s.history()
	if err != nil {
		return nil, err
	}
	return builds.ListBuilds(ctx, filter)
}

// GetBuild returns one recorded build.
func (s *Service) GetBuild(ctx context.Context, id string) (*repository.Build, error) {
	builds, err := s.history()
	if err != nil {
		return nil, err
	}
	return builds.GetBuild(ctx, id)
}
