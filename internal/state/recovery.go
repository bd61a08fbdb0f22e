package state

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// RecoverInterrupted marks runs still recorded as running whose process is gone
// as interrupted, so they show up correctly in `devcrew status` and can be replayed.
// Returns the IDs of the runs it changed.
func (db *DB) RecoverInterrupted() ([]string, error) {
	running, err := db.ListRunsByStatus(RunRunning)
	if err != nil {
		return nil, err
	}

	var recovered []string
	for _, r := range running {
		if r.PID == os.Getpid() || isProcessAlive(r.PID) {
			continue
		}
		_, err := db.Exec(`
			UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ? AND status = ?
		`, string(RunInterrupted), formatTime(time.Now()), "process exited before the run finished", r.ID, string(RunRunning))
		if err != nil {
			return recovered, fmt.Errorf("mark run %s interrupted: %w", r.ID, err)
		}
		if _, err := db.Exec(`
			UPDATE task_runs SET status = ?, error = ? WHERE run_id = ? AND status = ?
		`, string(TaskFailed), "interrupted", r.ID, string(TaskRunning)); err != nil {
			return recovered, fmt.Errorf("mark tasks of run %s interrupted: %w", r.ID, err)
		}
		recovered = append(recovered, r.ID)
	}
	return recovered, nil
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without delivering anything.
	return process.Signal(syscall.Signal(0)) == nil
}
