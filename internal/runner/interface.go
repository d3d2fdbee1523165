// Package runner launches search tools outside the request cycle
package runner

import (
	"context"
	"fmt"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// LaunchSpec describes one tool run inside a job directory
type LaunchSpec struct {
	JobID     string
	Kind      types.JobKind
	InputFile string // name of the input artifact in the job directory
	Threshold string
}

// Validate validates the launch spec
func (s LaunchSpec) Validate() error {
	if s.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	if s.InputFile == "" {
		return fmt.Errorf("input file is required")
	}
	if _, err := types.ParseJobKind(s.Kind.String()); err != nil {
		return err
	}
	return nil
}

// Handle identifies a launched run: a process id for the local backend,
// a scheduler job id for the batch backend
type Handle struct {
	Backend string
	Ref     string
}

// Runner launches a tool run and returns without waiting for it
type Runner interface {
	// Name returns the backend name recorded in job metadata
	Name() string

	// Launch starts the tool for the job. The run outlives ctx.
	Launch(ctx context.Context, spec LaunchSpec) (Handle, error)
}

// SchedulerState is the coarse state of a job in the batch scheduler
type SchedulerState int

const (
	// StateQueued means the scheduler has not started the job
	StateQueued SchedulerState = iota
	// StateRunning means the job is executing
	StateRunning
	// StateGone means the scheduler no longer knows the job as active
	StateGone
)

// String returns the string representation of the state
func (s SchedulerState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	default:
		return "gone"
	}
}

// Scheduler answers state queries for jobs submitted to a batch scheduler
type Scheduler interface {
	Query(ctx context.Context, ref string) (SchedulerState, error)
}

// Config defines the interface for runner configuration
type Config interface {
	// Validate validates the configuration
	Validate() error
}
