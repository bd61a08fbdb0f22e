package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayCichocki/devcrew/internal/crew"
	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

var _ crew.Observer = (*Recorder)(nil)

// Recorder persists the lifecycle events of one run. Storage errors are logged
// and kept so the run itself is never interrupted by history bookkeeping.
type Recorder struct {
	db     *DB
	runID  string
	logger zerolog.Logger

	mu      sync.Mutex
	started map[string]time.Time
	err     error
}

// NewRecorder returns an observer that writes events for runID into db.
func NewRecorder(db *DB, runID string) *Recorder {
	return &Recorder{
		db:      db,
		runID:   runID,
		logger:  xlog.WithComponent("state").With().Str(xlog.FieldRunID, runID).Logger(),
		started: make(map[string]time.Time),
	}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// Err returns the first storage error seen, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// OnEvent implements crew.Observer.
func (r *Recorder) OnEvent(e crew.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch e.Type {
	case crew.EventTaskStarted:
		at := e.Time
		r.started[e.Task] = at
		err = r.db.UpsertTaskRun(&TaskRun{
			RunID:     r.runID,
			Seq:       e.Index,
			Task:      e.Task,
			Agent:     e.Agent,
			Status:    TaskRunning,
			StartedAt: &at,
		})
	case crew.EventTaskCompleted:
		tr := r.taskRun(e, TaskDone)
		if e.Output != nil {
			tr.Raw = e.Output.Raw
			tr.OutputFile = e.Output.OutputFile
			tr.Replayed = e.Output.Replayed
			tr.InputTokens = e.Output.Usage.InputTokens
			tr.OutputTokens = e.Output.Usage.OutputTokens
		}
		err = r.db.UpsertTaskRun(tr)
	case crew.EventTaskFailed:
		tr := r.taskRun(e, TaskFailed)
		if e.Err != nil {
			tr.Error = e.Err.Error()
		}
		err = r.db.UpsertTaskRun(tr)
	case crew.EventCrewCompleted:
		var usage crew.Usage
		if e.Result != nil {
			usage = e.Result.Usage
		}
		err = r.db.FinishRun(r.runID, RunCompleted, usage, nil)
	case crew.EventCrewFailed:
		err = r.db.FinishRun(r.runID, FailureStatus(e.Err), r.usageSoFar(), e.Err)
	}

	if err != nil {
		r.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("failed to record run event")
		if r.err == nil {
			r.err = err
		}
	}
}

func (r *Recorder) taskRun(e crew.Event, status TaskStatus) *TaskRun {
	finished := e.Time
	tr := &TaskRun{
		RunID:      r.runID,
		Seq:        e.Index,
		Task:       e.Task,
		Agent:      e.Agent,
		Status:     status,
		FinishedAt: &finished,
	}
	if at, ok := r.started[e.Task]; ok {
		tr.StartedAt = &at
	}
	return tr
}

// usageSoFar totals the tokens of the run's recorded tasks.
func (r *Recorder) usageSoFar() crew.Usage {
	var usage crew.Usage
	tasks, err := r.db.ListTaskRuns(r.runID)
	if err != nil {
		return usage
	}
	for _, t := range tasks {
		if t.Replayed {
			continue
		}
		usage.InputTokens += t.InputTokens
		usage.OutputTokens += t.OutputTokens
	}
	return usage
}

// FailureStatus maps a kickoff error to the run status it should be recorded with.
func FailureStatus(err error) RunStatus {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return RunCanceled
	}
	return RunFailed
}
