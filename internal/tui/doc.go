// Package tui renders crew progress for `devcrew run --tui`.
//
// The view is read-only: one row per task with its state, the agent working on
// it, elapsed time and output file, followed by a short activity log. Pressing
// q or Ctrl+C cancels the run and quits.
//
// Usage:
//
//	program, app := tui.NewProgressProgram("PythonApp", c.TaskNames(), cancel)
//	c, _ = app.Crew(llm, crew.WithObserver(tui.Observer(program)))
//	go func() {
//	    out, err := c.Kickoff(ctx, inputs)
//	    program.Send(tui.DoneMsg{Output: out, Err: err})
//	}()
//	program.Run()
package tui
