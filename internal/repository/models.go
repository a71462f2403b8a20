package repository

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jindex/internal/index"
)

// IndexBuild represents the index_builds table.
type IndexBuild struct {
	ID                    string     `gorm:"column:id;type:varchar(36);primaryKey"`
	Name                  string     `gorm:"column:name;type:varchar(255);index"`
	Status                string     `gorm:"column:status;type:varchar(16);index"`
	Sources               JSONField  `gorm:"column:sources;type:json"`
	Classes               int        `gorm:"column:classes"`
	Packages              int        `gorm:"column:packages"`
	Fields                int        `gorm:"column:fields"`
	Methods               int        `gorm:"column:methods"`
	PoolBytes             int        `gorm:"column:pool_bytes"`
	UnresolvedReferences  int        `gorm:"column:unresolved_references"`
	DeserializationMillis int64      `gorm:"column:deserialization_ms"`
	FileReadingMillis     int64      `gorm:"column:file_reading_ms"`
	ClassReadingMillis    int64      `gorm:"column:class_reading_ms"`
	IndexingMillis        int64      `gorm:"column:indexing_ms"`
	IndexPath             string     `gorm:"column:index_path;type:varchar(1024)"`
	IndexURL              string     `gorm:"column:index_url;type:varchar(1024)"`
	Error                 string     `gorm:"column:error;type:text"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	FinishedAt            *time.Time `gorm:"column:finished_at"`
}

// TableName returns the table name for IndexBuild.
func (IndexBuild) TableName() string {
	return "index_builds"
}

// ToModel converts the row to a Build.
func (r *IndexBuild) ToModel() (*Build, error) {
	b := &Build{
		ID:     r.ID,
		Name:   r.Name,
		Status: BuildStatus(r.Status),
		Stats: index.Stats{
			Classes:              r.Classes,
			Packages:             r.Packages,
			Fields:               r.Fields,
			Methods:              r.Methods,
			PoolBytes:            r.PoolBytes,
			UnresolvedReferences: r.UnresolvedReferences,
		},
		TimeInfo: index.BuildTimeInfo{
			DeserializationMillis: r.DeserializationMillis,
			FileReadingMillis:     r.FileReadingMillis,
			ClassReadingMillis:    r.ClassReadingMillis,
			IndexingMillis:        r.IndexingMillis,
		},
		IndexPath:  r.IndexPath,
		IndexURL:   r.IndexURL,
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.Sources != nil {
		if err := json.Unmarshal(r.Sources, &b.Sources); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// newIndexBuild converts a Build to its row, filling in the ID, status and
// creation time when they are unset.
func newIndexBuild(b *Build, now time.Time) (*IndexBuild, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BuildStatusRunning
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}

	sources, err := json.Marshal(b.Sources)
	if err != nil {
		return nil, err
	}

	row := &IndexBuild{
		ID:        b.ID,
		Name:      b.Name,
		Status:    string(b.Status),
		Sources:   sources,
		IndexPath: b.IndexPath,
		IndexURL:  b.IndexURL,
		Error:     b.Error,
		CreatedAt: b.CreatedAt,
	}
	row.setResult(b)
	return row, nil
}

func (r *IndexBuild) setResult(b *Build) {
	r.Classes = b.Stats.Classes
	r.Packages = b.Stats.Packages
	r.Fields = b.Stats.Fields
	r.Methods = b.Stats.Methods
	r.PoolBytes = b.Stats.PoolBytes
	r.UnresolvedReferences = b.Stats.UnresolvedReferences
	r.DeserializationMillis = b.TimeInfo.DeserializationMillis
	r.FileReadingMillis = b.TimeInfo.FileReadingMillis
	r.ClassReadingMillis = b.TimeInfo.ClassReadingMillis
	r.IndexingMillis = b.TimeInfo.IndexingMillis
	r.FinishedAt = b.FinishedAt
}

// finishColumns returns the columns FinishBuild writes, keyed by column
// name.
func finishColumns(b *Build) map[string]interface{} {
	var row IndexBuild
	row.setResult(b)
	return map[string]interface{}{
		"status":                string(b.Status),
		"classes":               row.Classes,
		"packages":              row.Packages,
		"fields":                row.Fields,
		"methods":               row.Methods,
		"pool_bytes":            row.PoolBytes,
		"unresolved_references": row.UnresolvedReferences,
		"deserialization_ms":    row.DeserializationMillis,
		"file_reading_ms":       row.FileReadingMillis,
		"class_reading_ms":      row.ClassReadingMillis,
		"indexing_ms":           row.IndexingMillis,
		"index_path":            b.IndexPath,
		"error":                 b.Error,
		"finished_at":           row.FinishedAt,
	}
}

// JSONField is a custom type for handling JSON fields in GORM.
type JSONField []byte

// Value implements driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return errors.New("unsupported type for JSONField")
	}
}
