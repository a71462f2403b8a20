package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/utils"
)

// GormBuildRepository implements BuildRepository using GORM.
type GormBuildRepository struct {
	db    *gorm.DB
	clock utils.Clock
}

// NewGormBuildRepository creates a new GormBuildRepository.
func NewGormBuildRepository(db *gorm.DB) *GormBuildRepository {
	return &GormBuildRepository{db: db, clock: utils.NewRealClock()}
}

// WithClock replaces the clock used for creation times.
func (r *GormBuildRepository) WithClock(clock utils.Clock) *GormBuildRepository {
	r.clock = clock
	return r
}

// CreateBuild inserts a running build.
func (r *GormBuildRepository) CreateBuild(ctx context.Context, build *Build) error {
	row, err := newIndexBuild(build, r.clock.Now().UTC())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to encode build sources", err)
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to create build %s", build.ID)
	}
	return nil
}

// FinishBuild stores the outcome of a build.
func (r *GormBuildRepository) FinishBuild(ctx context.Context, build *Build) error {
	result := r.db.WithContext(ctx).
		Model(&IndexBuild{}).
		Where("id = ?", build.ID).
		Updates(finishColumns(build))

	if result.Error != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, result.Error, "failed to finish build %s", build.ID)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "build not found: %s", build.ID)
	}
	return nil
}

// SetPublished records the published location of a build's index.
func (r *GormBuildRepository) SetPublished(ctx context.Context, id string, url string) error {
	result := r.db.WithContext(ctx).
		Model(&IndexBuild{}).
		Where("id = ?", id).
		Update("index_url", url)

	if result.Error != nil {
		return apperrors.Wrapf(apperrors.CodeDatabaseError, result.Error, "failed to update build %s", id)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "build not found: %s", id)
	}
	return nil
}

// GetBuild retrieves a build by its ID.
func (r *GormBuildRepository) GetBuild(ctx context.Context, id string) (*Build, error) {
	var row IndexBuild

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "build not found: %s", id)
		}
		return nil, apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to get build %s", id)
	}
	return decodeRow(&row)
}

// ListBuilds returns builds newest first.
func (r *GormBuildRepository) ListBuilds(ctx context.Context, filter BuildFilter) ([]*Build, error) {
	query := r.db.WithContext(ctx).Model(&IndexBuild{})
	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var rows []IndexBuild
	err := query.Order("created_at DESC").Order("id DESC").Limit(filter.limit()).Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list builds", err)
	}

	builds := make([]*Build, 0, len(rows))
	for i := range rows {
		b, err := decodeRow(&rows[i])
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	return builds, nil
}

func decodeRow(row *IndexBuild) (*Build, error) {
	b, err := row.ToModel()
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeDatabaseError, err, "failed to decode build %s", row.ID)
	}
	return b, nil
}
