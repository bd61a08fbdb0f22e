package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	xlog "github.com/ShayCichocki/devcrew/internal/log"
)

// KickoffOptions controls a single run of the crew.
type KickoffOptions struct {
	// Inputs fill {placeholders} in agent and task text.
	Inputs map[string]string
	// FromTask, when set, replays every task before it from Prior instead of
	// calling the LLM, and executes from FromTask onwards.
	FromTask string
	// Prior holds outputs of a previous run, matched by task name.
	Prior []TaskOutput
}

// Kickoff runs every task in declared order and returns the crew output.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*CrewOutput, error) {
	return c.KickoffWithOptions(ctx, KickoffOptions{Inputs: inputs})
}

// KickoffWithOptions runs the crew with replay support. See KickoffOptions.
func (c *Crew) KickoffWithOptions(ctx context.Context, opts KickoffOptions) (*CrewOutput, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	logger := xlog.WithContext(ctx, c.logger).With().Str(xlog.FieldCrew, c.name).Logger()
	total := len(c.tasks)
	c.emit(Event{Type: EventCrewStarted, Total: total})

	fail := func(err error) (*CrewOutput, error) {
		logger.Error().Err(err).Msg("crew failed")
		c.emit(Event{Type: EventCrewFailed, Total: total, Err: err})
		return nil, err
	}

	if c.llm == nil {
		return fail(fmt.Errorf("crew %s has no LLM configured", c.name))
	}

	start := 0
	if opts.FromTask != "" {
		start = c.TaskIndex(opts.FromTask)
		if start < 0 {
			return fail(fmt.Errorf("%w: unknown task %q", ErrInvalidCrew, opts.FromTask))
		}
	}

	inputs := make(map[string]string, len(opts.Inputs))
	for k, v := range opts.Inputs {
		inputs[k] = v
	}
	for _, fn := range c.before {
		next, err := fn(inputs)
		if err != nil {
			return fail(fmt.Errorf("before kickoff: %w", err))
		}
		if next != nil {
			inputs = next
		}
	}

	if missing := missingInputs(c.tasks[start:], inputs); len(missing) > 0 {
		return fail(fmt.Errorf("%w: %s", ErrMissingInput, strings.Join(missing, ", ")))
	}

	prior := make(map[string]TaskOutput, len(opts.Prior))
	for _, p := range opts.Prior {
		prior[p.Task] = p
	}

	out := &CrewOutput{}
	for i, task := range c.tasks {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		if i < start {
			p, ok := prior[task.Name]
			if !ok {
				return fail(fmt.Errorf("%w: %s", ErrMissingPriorOutput, task.Name))
			}
			p.Replayed = true
			out.Tasks = append(out.Tasks, p)
			logger.Debug().Str(xlog.FieldTask, task.Name).Msg("task replayed")
			c.emit(Event{Type: EventTaskCompleted, Task: task.Name, Agent: task.Agent.Name, Index: i, Total: total, Output: &p})
			continue
		}

		to, err := c.runTask(ctx, logger, i, task, inputs, out.Tasks)
		if err != nil {
			err = fmt.Errorf("task %s: %w", task.Name, err)
			c.emit(Event{Type: EventTaskFailed, Task: task.Name, Agent: task.Agent.Name, Index: i, Total: total, Err: err})
			return fail(err)
		}
		out.Tasks = append(out.Tasks, to)
		out.Usage = out.Usage.Add(to.Usage)
		c.emit(Event{Type: EventTaskCompleted, Task: task.Name, Agent: task.Agent.Name, Index: i, Total: total, Output: &to})
	}
	out.Raw = out.Tasks[len(out.Tasks)-1].Raw

	for _, fn := range c.after {
		next, err := fn(out)
		if err != nil {
			return fail(fmt.Errorf("after kickoff: %w", err))
		}
		if next != nil {
			out = next
		}
	}

	c.emit(Event{Type: EventCrewCompleted, Total: total, Result: out})
	return out, nil
}

func (c *Crew) runTask(ctx context.Context, logger zerolog.Logger, index int, task *Task, inputs map[string]string, done []TaskOutput) (TaskOutput, error) {
	c.emit(Event{Type: EventTaskStarted, Task: task.Name, Agent: task.Agent.Name, Index: index, Total: len(c.tasks)})

	agent, err := task.Agent.interpolated(inputs)
	if err != nil {
		return TaskOutput{}, fmt.Errorf("agent %s: %w", task.Agent.Name, err)
	}
	t, err := task.interpolated(inputs)
	if err != nil {
		return TaskOutput{}, err
	}

	tl := logger.With().Str(xlog.FieldTask, t.Name).Str(xlog.FieldAgent, agent.Role).Logger()
	c.progress(tl, agent).Int("index", index+1).Int("total", len(c.tasks)).Msg("task started")

	req := Request{
		Model:  agent.Model,
		System: systemPrompt(agent),
		Prompt: taskPrompt(t, taskContext(t, done)),
	}
	startedAt := time.Now()
	resp, attempts, err := c.call(ctx, tl, agent, req)
	if err != nil {
		return TaskOutput{}, err
	}

	to := TaskOutput{
		Task:           t.Name,
		Agent:          agent.Role,
		Description:    t.Description,
		ExpectedOutput: t.ExpectedOutput,
		Raw:            resp.Text,
		Usage:          resp.Usage,
	}
	to.Usage.Calls = attempts

	if t.OutputFile != "" {
		path := resolveOutputPath(c.outputDir, t.OutputFile)
		if err := writeOutputFile(path, resp.Text); err != nil {
			return TaskOutput{}, err
		}
		to.OutputFile = path
		tl.Debug().Str(xlog.FieldPath, path).Msg("output file written")
	}

	c.progress(tl, agent).
		Dur("elapsed", time.Since(startedAt)).
		Int64("input_tokens", to.Usage.InputTokens).
		Int64("output_tokens", to.Usage.OutputTokens).
		Msg("task completed")
	return to, nil
}

// call invokes the LLM, retrying failed calls up to agent.MaxRetryLimit times.
// Truncated output is not retried since the same request would stop at the
// same limit.
// It returns the response and the number of attempts made.
func (c *Crew) call(ctx context.Context, logger zerolog.Logger, agent *Agent, req Request) (Response, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= agent.MaxRetryLimit; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(attempt)
			logger.Warn().Err(lastErr).Int(xlog.FieldAttempt, attempt+1).Dur("delay", delay).Msg("retrying llm call")
			select {
			case <-ctx.Done():
				return Response{}, attempts, ctx.Err()
			case <-c.sleep(delay):
			}
		}

		attempts++
		resp, err := c.llm.Call(ctx, req)
		if err == nil {
			return resp, attempts, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, attempts, errors.Join(ctxErr, err)
		}
		if errors.Is(err, ErrOutputTruncated) {
			return Response{}, attempts, fmt.Errorf("agent %s: %w", agent.Name, err)
		}
		lastErr = err
	}
	return Response{}, attempts, fmt.Errorf("agent %s failed after %d attempts: %w", agent.Name, attempts, lastErr)
}

// progress returns a log event at info level for verbose crews or agents, debug otherwise.
func (c *Crew) progress(logger zerolog.Logger, agent *Agent) *zerolog.Event {
	if c.verbose || agent.Verbose {
		return logger.Info()
	}
	return logger.Debug()
}

func (c *Crew) emit(e Event) {
	e.Crew = c.name
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for _, o := range c.observers {
		o.OnEvent(e)
	}
}
