package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/devcrew/internal/crew"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunStatus represents the status of a crew run.
type RunStatus string

const (
	RunRunning     RunStatus = "running"
	RunCompleted   RunStatus = "completed"
	RunFailed      RunStatus = "failed"
	RunCanceled    RunStatus = "canceled"
	RunInterrupted RunStatus = "interrupted"
)

// Finished reports whether the run reached a terminal status.
func (s RunStatus) Finished() bool {
	return s != RunRunning
}

// TaskStatus represents the status of one task within a run.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Run is one crew kickoff.
type Run struct {
	ID           string            `json:"id"`
	Crew         string            `json:"crew"`
	Process      string            `json:"process"`
	Inputs       map[string]string `json:"inputs"`
	Status       RunStatus         `json:"status"`
	PID          int               `json:"pid"`
	ReplayOf     string            `json:"replay_of,omitempty"`
	FromTask     string            `json:"from_task,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   *time.Time        `json:"finished_at,omitempty"`
	InputTokens  int64             `json:"input_tokens"`
	OutputTokens int64             `json:"output_tokens"`
	Error        string            `json:"error,omitempty"`
}

// TaskRun is the recorded state of one task in a run.
type TaskRun struct {
	RunID        string     `json:"run_id"`
	Seq          int        `json:"seq"`
	Task         string     `json:"task"`
	Agent        string     `json:"agent"`
	Status       TaskStatus `json:"status"`
	OutputFile   string     `json:"output_file,omitempty"`
	Raw          string     `json:"raw,omitempty"`
	Replayed     bool       `json:"replayed"`
	InputTokens  int64      `json:"input_tokens"`
	OutputTokens int64      `json:"output_tokens"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// CreateRun inserts r, assigning an ID and start time when unset.
func (db *DB) CreateRun(r *Run) error {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = RunRunning
	}
	inputs, err := json.Marshal(r.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (id, crew, process, inputs, status, pid, replay_of, from_task, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Crew, r.Process, string(inputs), string(r.Status), r.PID,
		nullString(r.ReplayOf), nullString(r.FromTask), formatTime(r.StartedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status, token totals and error of a run.
func (db *DB) FinishRun(id string, status RunStatus, usage crew.Usage, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = nullString(runErr.Error())
	}
	res, err := db.Exec(`
		UPDATE runs SET status = ?, finished_at = ?, input_tokens = ?, output_tokens = ?, error = ?
		WHERE id = ?
	`, string(status), formatTime(time.Now()), usage.InputTokens, usage.OutputTokens, msg, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, crew, process, inputs, status, pid, replay_of, from_task,
	started_at, finished_at, input_tokens, output_tokens, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                           Run
		inputs                      string
		replayOf, fromTask, errText sql.NullString
		startedAt                   string
		finishedAt                  sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Crew, &r.Process, &inputs, &r.Status, &r.PID, &replayOf, &fromTask,
		&startedAt, &finishedAt, &r.InputTokens, &r.OutputTokens, &errText); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(inputs), &r.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs of run %s: %w", r.ID, err)
	}
	r.ReplayOf = replayOf.String
	r.FromTask = fromTask.String
	r.Error = errText.String
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less lists all runs.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return db.queryRuns(query, args...)
}

// ListRunsByStatus returns runs with the given status, most recent first.
func (db *DB) ListRunsByStatus(status RunStatus) ([]Run, error) {
	return db.queryRuns(`SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY started_at DESC, rowid DESC`, string(status))
}

func (db *DB) queryRuns(query string, args ...any) ([]Run, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// UpsertTaskRun inserts or replaces the row for (t.RunID, t.Task).
func (db *DB) UpsertTaskRun(t *TaskRun) error {
	_, err := db.Exec(`
		INSERT INTO task_runs (run_id, seq, task, agent, status, output_file, raw, replayed,
			input_tokens, output_tokens, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, task) DO UPDATE SET
			seq = excluded.seq,
			agent = excluded.agent,
			status = excluded.status,
			output_file = excluded.output_file,
			raw = excluded.raw,
			replayed = excluded.replayed,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			started_at = COALESCE(excluded.started_at, task_runs.started_at),
			finished_at = excluded.finished_at,
			error = excluded.error
	`, t.RunID, t.Seq, t.Task, t.Agent, string(t.Status), nullString(t.OutputFile), nullString(t.Raw),
		t.Replayed, t.InputTokens, t.OutputTokens, nullTime(t.StartedAt), nullTime(t.FinishedAt), nullString(t.Error))
	if err != nil {
		return fmt.Errorf("upsert task run %s/%s: %w", t.RunID, t.Task, err)
	}
	return nil
}

// ListTaskRuns returns a run's task rows in execution order.
func (db *DB) ListTaskRuns(runID string) ([]TaskRun, error) {
	rows, err := db.Query(`
		SELECT run_id, seq, task, agent, status, output_file, raw, replayed,
			input_tokens, output_tokens, started_at, finished_at, error
		FROM task_runs WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list task runs: %w", err)
	}
	defer rows.Close()

	var out []TaskRun
	for rows.Next() {
		var (
			t                        TaskRun
			outputFile, raw, errText sql.NullString
			startedAt, finishedAt    sql.NullString
		)
		if err := rows.Scan(&t.RunID, &t.Seq, &t.Task, &t.Agent, &t.Status, &outputFile, &raw, &t.Replayed,
			&t.InputTokens, &t.OutputTokens, &startedAt, &finishedAt, &errText); err != nil {
			return nil, fmt.Errorf("scan task run: %w", err)
		}
		t.OutputFile = outputFile.String
		t.Raw = raw.String
		t.Error = errText.String
		t.StartedAt = parseNullableTime(startedAt)
		t.FinishedAt = parseNullableTime(finishedAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// PriorOutputs returns the completed task outputs of a run for replay.
func (db *DB) PriorOutputs(runID string) ([]crew.TaskOutput, error) {
	if _, err := db.GetRun(runID); err != nil {
		return nil, err
	}
	tasks, err := db.ListTaskRuns(runID)
	if err != nil {
		return nil, err
	}

	var out []crew.TaskOutput
	for _, t := range tasks {
		if t.Status != TaskDone {
			continue
		}
		out = append(out, crew.TaskOutput{
			Task:       t.Task,
			Agent:      t.Agent,
			Raw:        t.Raw,
			OutputFile: t.OutputFile,
			Usage:      crew.Usage{InputTokens: t.InputTokens, OutputTokens: t.OutputTokens},
		})
	}
	return out, nil
}

// PurgeOldRuns deletes finished runs started before now minus olderThan, with their
// task rows. Running runs are kept.
// Returns the number of runs deleted.
func (db *DB) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM task_runs WHERE run_id IN (SELECT id FROM runs WHERE started_at < ? AND status != ?)`, cutoff, string(RunRunning)); err != nil {
			return err
		}
		res, err := tx.Exec(`DELETE FROM runs WHERE started_at < ? AND status != ?`, cutoff, string(RunRunning))
		if err != nil {
			return err
		}
		count, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge old runs: %w", err)
	}
	return count, nil
}
