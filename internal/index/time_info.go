package index

import (
	"fmt"

	"github.com/jindex/pkg/utils"
)

// Timer phases that feed BuildTimeInfo.
const (
	PhaseDeserialization = "deserialization"
	PhaseFileReading     = "file_reading"
	PhaseClassReading    = "class_reading"
	PhaseIndexing        = "indexing"
)

// BuildTimeInfo records how long each stage of producing an index took, in
// milliseconds.
type BuildTimeInfo struct {
	DeserializationMillis int64 `json:"deserialization_ms" yaml:"deserialization_ms"`
	FileReadingMillis     int64 `json:"file_reading_ms" yaml:"file_reading_ms"`
	ClassReadingMillis    int64 `json:"class_reading_ms" yaml:"class_reading_ms"`
	IndexingMillis        int64 `json:"indexing_ms" yaml:"indexing_ms"`
}

// Total returns the sum of all stages.
func (t BuildTimeInfo) Total() int64 {
	return t.DeserializationMillis + t.FileReadingMillis + t.ClassReadingMillis + t.IndexingMillis
}

// Merge returns the stage-wise sum of t and other.
func (t BuildTimeInfo) Merge(other BuildTimeInfo) BuildTimeInfo {
	return BuildTimeInfo{
		DeserializationMillis: t.DeserializationMillis + other.DeserializationMillis,
		FileReadingMillis:     t.FileReadingMillis + other.FileReadingMillis,
		ClassReadingMillis:    t.ClassReadingMillis + other.ClassReadingMillis,
		IndexingMillis:        t.IndexingMillis + other.IndexingMillis,
	}
}

func (t BuildTimeInfo) String() string {
	return fmt.Sprintf("Deserialization: %dms\nFile reading: %dms\nClass reading: %dms\nIndexing: %dms\nTotal: %dms",
		t.DeserializationMillis, t.FileReadingMillis, t.ClassReadingMillis, t.IndexingMillis, t.Total())
}

// TimeInfoFromTimer reads the build phases recorded on timer.
func TimeInfoFromTimer(timer *utils.Timer) BuildTimeInfo {
	if timer == nil {
		return BuildTimeInfo{}
	}
	return BuildTimeInfo{
		DeserializationMillis: timer.GetDuration(PhaseDeserialization).Milliseconds(),
		FileReadingMillis:     timer.GetDuration(PhaseFileReading).Milliseconds(),
		ClassReadingMillis:    timer.GetDuration(PhaseClassReading).Milliseconds(),
		IndexingMillis:        timer.GetDuration(PhaseIndexing).Milliseconds(),
	}
}
