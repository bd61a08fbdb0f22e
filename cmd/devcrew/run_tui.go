package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ShayCichocki/devcrew/internal/crew"
	xlog "github.com/ShayCichocki/devcrew/internal/log"
	"github.com/ShayCichocki/devcrew/internal/tui"
)

// progressRun drives a kickoff behind the progress display.
type progressRun struct {
	// obs is set once the program exists, before the kickoff starts.
	obs crew.Observer
}

// newProgressRun silences log output, which would corrupt the alt screen. It
// must be called before any component captures its logger.
func newProgressRun() *progressRun {
	xlog.Reset()
	xlog.Configure(xlog.Config{Level: rootLogLevel, Output: io.Discard})
	return &progressRun{}
}

// observer returns a crew observer that forwards to the program started by run.
func (p *progressRun) observer() crew.Observer {
	return crew.ObserverFunc(func(e crew.Event) {
		if p.obs != nil {
			p.obs.OnEvent(e)
		}
	})
}

// run kicks off c in the background and blocks until the user closes the
// display. Quitting early cancels the run through cancel.
func (p *progressRun) run(ctx context.Context, cancel func(), c *crew.Crew, opts crew.KickoffOptions) (*crew.CrewOutput, error) {
	program, _ := tui.NewProgressProgram(c.Name(), c.TaskNames(), cancel)
	p.obs = tui.Observer(program)

	type result struct {
		out *crew.CrewOutput
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := c.KickoffWithOptions(ctx, opts)
		program.Send(tui.DoneMsg{Output: out, Err: err})
		done <- result{out: out, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		r := <-done
		if r.err != nil {
			return nil, r.err
		}
		return r.out, fmt.Errorf("progress display: %w", err)
	}

	r := <-done
	return r.out, r.err
}
