package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// LocalConfig configures the local process runner
type LocalConfig struct {
	Tools ToolConfig
	Store jobstore.Store
}

// Validate validates the local runner configuration
func (c *LocalConfig) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	return c.Tools.Validate()
}

// LocalRunner spawns tools as detached child processes. A goroutine per
// process waits for it and writes the completion marker.
type LocalRunner struct {
	tools ToolConfig
	store jobstore.Store
	wg    sync.WaitGroup
}

var _ Runner = (*LocalRunner)(nil)

// NewLocalRunner creates a new local runner
func NewLocalRunner(cfg *LocalConfig) *LocalRunner {
	return &LocalRunner{tools: cfg.Tools, store: cfg.Store}
}

// Name returns the backend name
func (r *LocalRunner) Name() string {
	return string(RunnerLocal)
}

// Launch starts the tool and returns as soon as the process is running.
// The tool's diagnostic stream goes to the job log and stdout is discarded.
func (r *LocalRunner) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	if err := spec.Validate(); err != nil {
		return Handle{}, err
	}
	dir, err := r.store.Dir(spec.JobID)
	if err != nil {
		return Handle{}, err
	}
	argv, err := ToolCommand(r.tools, dir, spec)
	if err != nil {
		return Handle{}, err
	}
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}

	logFile, err := os.OpenFile(filepath.Join(dir, jobstore.LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to open tool log: %w", err)
	}

	// Not bound to ctx: the run must outlive the submitting request
	cmd := exec.Command(argv[0], argv[1:]...) //nolint:gosec // argv is built from validated input only
	cmd.Dir = dir
	cmd.Stdout = nil
	cmd.Stderr = logFile
	detach(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return Handle{}, fmt.Errorf("%w: failed to start %s: %v", types.ErrToolExecution, filepath.Base(argv[0]), err)
	}

	pid := cmd.Process.Pid
	logger.InfoWithFields("Tool started", map[string]interface{}{
		"job_id": spec.JobID,
		"kind":   spec.Kind,
		"pid":    pid,
	})

	r.wg.Add(1)
	go r.wait(spec, cmd, logFile)

	return Handle{Backend: r.Name(), Ref: strconv.Itoa(pid)}, nil
}

// Wait blocks until every launched process has exited and its marker
// has been written
func (r *LocalRunner) Wait() {
	r.wg.Wait()
}

func (r *LocalRunner) wait(spec LaunchSpec, cmd *exec.Cmd, logFile *os.File) {
	defer r.wg.Done()

	err := cmd.Wait()
	if cerr := logFile.Close(); cerr != nil {
		logger.Warnf("Failed to close tool log of job %s: %v", spec.JobID, cerr)
	}

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	status := &types.ExitStatus{
		ExitCode:   exitCode,
		Success:    exitCode == 0,
		FinishedAt: time.Now().UTC(),
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		status.Error = err.Error()
	}

	ctx := context.Background()
	resultFile := ResultFile(spec.Kind)
	if _, statErr := r.store.Stat(ctx, spec.JobID, resultFile); statErr == nil {
		status.Result = resultFile
	}

	if err := r.store.WriteExitStatus(ctx, spec.JobID, status); err != nil {
		logger.ErrorWithFields("Failed to write completion marker", map[string]interface{}{
			"job_id": spec.JobID,
			"error":  err.Error(),
		})
		return
	}

	logger.InfoWithFields("Tool finished", map[string]interface{}{
		"job_id":    spec.JobID,
		"exit_code": exitCode,
		"result":    status.Result,
	})
}
