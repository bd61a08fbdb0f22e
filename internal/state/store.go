package state

import (
	"io"
	"time"

	"github.com/ShayCichocki/devcrew/internal/crew"
)

// RunStore handles run persistence.
type RunStore interface {
	CreateRun(r *Run) error
	FinishRun(id string, status RunStatus, usage crew.Usage, runErr error) error
	GetRun(id string) (*Run, error)
	ListRuns(limit int) ([]Run, error)
	PurgeOldRuns(olderThan time.Duration) (int64, error)
}

// TaskRunStore handles per-task persistence within a run.
type TaskRunStore interface {
	UpsertTaskRun(t *TaskRun) error
	ListTaskRuns(runID string) ([]TaskRun, error)
	PriorOutputs(runID string) ([]crew.TaskOutput, error)
}

// Store is the full history backend used by the CLI.
type Store interface {
	io.Closer
	Migrate() error
	RunStore
	TaskRunStore
	RecoverInterrupted() ([]string, error)
}

var (
	_ Store        = (*DB)(nil)
	_ RunStore     = (*DB)(nil)
	_ TaskRunStore = (*DB)(nil)
)
