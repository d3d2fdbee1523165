package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/runner"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// Outcome is what a scripted tool run leaves in the job directory
type Outcome struct {
	// Artifact is written as the kind's result file when non-nil
	Artifact []byte
	// Log is written as the tool log when non-empty
	Log string
	// ExitCode is recorded in the exit marker
	ExitCode int
	// LaunchErr is returned from Launch instead of running anything
	LaunchErr error
}

// ScriptedRunner is a runner that writes canned outcomes synchronously.
// Kinds without an outcome are left running forever.
type ScriptedRunner struct {
	store jobstore.Store

	mu       sync.Mutex
	outcomes map[types.JobKind]Outcome
	launched []runner.LaunchSpec
}

// NewScriptedRunner creates a runner writing into store
func NewScriptedRunner(store jobstore.Store) *ScriptedRunner {
	return &ScriptedRunner{
		store:    store,
		outcomes: make(map[types.JobKind]Outcome),
	}
}

// SetOutcome scripts the result of every later run of kind
func (r *ScriptedRunner) SetOutcome(kind types.JobKind, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[kind] = o
}

// Launched returns the specs launched so far
func (r *ScriptedRunner) Launched() []runner.LaunchSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runner.LaunchSpec(nil), r.launched...)
}

// Name implements runner.Runner
func (r *ScriptedRunner) Name() string {
	return string(runner.RunnerLocal)
}

// Launch implements runner.Runner
func (r *ScriptedRunner) Launch(ctx context.Context, spec runner.LaunchSpec) (runner.Handle, error) {
	r.mu.Lock()
	r.launched = append(r.launched, spec)
	o, ok := r.outcomes[spec.Kind]
	r.mu.Unlock()

	handle := runner.Handle{Backend: r.Name(), Ref: spec.JobID}
	if !ok {
		return handle, nil
	}
	if o.LaunchErr != nil {
		return runner.Handle{}, o.LaunchErr
	}

	if o.Log != "" {
		if err := r.store.WriteFile(ctx, spec.JobID, jobstore.LogFile, []byte(o.Log)); err != nil {
			return runner.Handle{}, err
		}
	}

	result := resultFile(spec.Kind)
	status := &types.ExitStatus{
		ExitCode:   o.ExitCode,
		Success:    o.ExitCode == 0,
		FinishedAt: time.Now().UTC(),
	}
	if o.Artifact != nil {
		if err := r.store.WriteFile(ctx, spec.JobID, result, o.Artifact); err != nil {
			return runner.Handle{}, err
		}
		status.Result = result
	}
	if o.ExitCode != 0 {
		status.Error = fmt.Sprintf("tool exited with code %d", o.ExitCode)
	}
	return handle, r.store.WriteExitStatus(ctx, spec.JobID, status)
}

func resultFile(kind types.JobKind) string {
	if kind == types.JobKindStructure {
		return jobstore.FoldseekResultFile
	}
	return jobstore.BlastResultFile
}
