// Package crew is a small sequential runtime for YAML-declared agents and tasks.
//
// A Crew binds a fixed list of agents and tasks to a Process. Kickoff runs the
// tasks one after another in declared order, feeding each task the raw output of
// earlier tasks as context, and persists task output to files where a task names
// one. Only the sequential process is implemented.
package crew
