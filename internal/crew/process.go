package crew

import "fmt"

// Process is the execution mode of a crew.
type Process string

const (
	// ProcessSequential runs tasks one after another in declared order.
	ProcessSequential Process = "sequential"
	// ProcessHierarchical delegates tasks through a manager agent. Not supported.
	ProcessHierarchical Process = "hierarchical"
)

// Valid returns true if the process is a known value.
func (p Process) Valid() bool {
	switch p {
	case ProcessSequential, ProcessHierarchical:
		return true
	default:
		return false
	}
}

// ParseProcess converts a string into a Process.
func ParseProcess(s string) (Process, error) {
	p := Process(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProcess, s)
	}
	return p, nil
}
