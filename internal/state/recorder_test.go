package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/devcrew/internal/crew"
)

func newRecordedCrew(t *testing.T, llm crew.LLM, rec *Recorder) *crew.Crew {
	t.Helper()
	designer := crew.NewAgent("SystemDesigner", crew.AgentConfig{Role: "Architect", Goal: "design", Backstory: "b"})
	coder := crew.NewAgent("Coder", crew.AgentConfig{Role: "Developer", Goal: "code", Backstory: "b", MaxRetryLimit: new(int)})
	c, err := crew.New(crew.Config{
		Name:   "PythonApp",
		Agents: []*crew.Agent{designer, coder},
		Tasks: []*crew.Task{
			crew.NewTask("system_design_task", crew.TaskConfig{Description: "design", ExpectedOutput: "doc"}, designer),
			crew.NewTask("coding_task", crew.TaskConfig{Description: "code", ExpectedOutput: "code"}, coder, crew.WithOutputFile("report.md")),
		},
		LLM: llm,
	}, crew.WithObserver(rec), crew.WithOutputDir(t.TempDir()), crew.WithRetryDelay(0))
	require.NoError(t, err)
	return c
}

func TestRecorderCompletedRun(t *testing.T) {
	db := setupTestDB(t)
	run := &Run{Crew: "PythonApp", Process: "sequential"}
	require.NoError(t, db.CreateRun(run))
	rec := NewRecorder(db, run.ID)

	n := 0
	llm := crew.LLMFunc(func(context.Context, crew.Request) (crew.Response, error) {
		n++
		return crew.Response{Text: fmt.Sprintf("out-%d", n), Usage: crew.Usage{InputTokens: 10, OutputTokens: 2}}, nil
	})

	_, err := newRecordedCrew(t, llm, rec).Kickoff(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, rec.Err())

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, int64(20), got.InputTokens)
	assert.Equal(t, int64(4), got.OutputTokens)

	tasks, err := db.ListTaskRuns(run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "out-1", tasks[0].Raw)
	assert.Equal(t, "SystemDesigner", tasks[0].Agent)
	assert.Equal(t, TaskDone, tasks[1].Status)
	assert.Contains(t, tasks[1].OutputFile, "report.md")
	assert.NotNil(t, tasks[1].StartedAt)
	assert.NotNil(t, tasks[1].FinishedAt)
}

func TestRecorderFailedRunAndReplay(t *testing.T) {
	db := setupTestDB(t)
	first := &Run{Crew: "PythonApp", Process: "sequential"}
	require.NoError(t, db.CreateRun(first))

	failing := crew.LLMFunc(func(_ context.Context, req crew.Request) (crew.Response, error) {
		if strings.HasPrefix(req.Prompt, "Current Task: code") {
			return crew.Response{}, errors.New("rate limited")
		}
		return crew.Response{Text: "design doc"}, nil
	})
	_, err := newRecordedCrew(t, failing, NewRecorder(db, first.ID)).Kickoff(context.Background(), nil)
	require.Error(t, err)

	got, err := db.GetRun(first.ID)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, got.Status)
	assert.Contains(t, got.Error, "rate limited")

	tasks, err := db.ListTaskRuns(first.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, TaskDone, tasks[0].Status)
	assert.Equal(t, TaskFailed, tasks[1].Status)

	prior, err := db.PriorOutputs(first.ID)
	require.NoError(t, err)

	second := &Run{Crew: "PythonApp", Process: "sequential", ReplayOf: first.ID, FromTask: "coding_task"}
	require.NoError(t, db.CreateRun(second))
	var calls int
	ok := crew.LLMFunc(func(context.Context, crew.Request) (crew.Response, error) {
		calls++
		return crew.Response{Text: "code"}, nil
	})
	out, err := newRecordedCrew(t, ok, NewRecorder(db, second.ID)).KickoffWithOptions(context.Background(), crew.KickoffOptions{
		FromTask: "coding_task",
		Prior:    prior,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "code", out.Raw)

	replayed, err := db.ListTaskRuns(second.ID)
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.True(t, replayed[0].Replayed)
	assert.Equal(t, "design doc", replayed[0].Raw)
	assert.False(t, replayed[1].Replayed)
}

func TestRecorderCanceledRun(t *testing.T) {
	db := setupTestDB(t)
	run := &Run{Crew: "PythonApp", Process: "sequential"}
	require.NoError(t, db.CreateRun(run))

	ctx, cancel := context.WithCancel(context.Background())
	llm := crew.LLMFunc(func(ctx context.Context, _ crew.Request) (crew.Response, error) {
		cancel()
		return crew.Response{}, ctx.Err()
	})
	_, err := newRecordedCrew(t, llm, NewRecorder(db, run.ID)).Kickoff(ctx, nil)
	require.Error(t, err)

	got, err := db.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCanceled, got.Status)
}

func TestRecorderKeepsStorageErrors(t *testing.T) {
	db := setupTestDB(t)
	rec := NewRecorder(db, "never-created")

	rec.OnEvent(crew.Event{Type: crew.EventCrewCompleted, Result: &crew.CrewOutput{}})
	assert.True(t, errors.Is(rec.Err(), ErrRunNotFound))
}

func TestFailureStatus(t *testing.T) {
	assert.Equal(t, RunCanceled, FailureStatus(context.Canceled))
	assert.Equal(t, RunCanceled, FailureStatus(fmt.Errorf("task x: %w", context.DeadlineExceeded)))
	assert.Equal(t, RunFailed, FailureStatus(errors.New("boom")))
}
