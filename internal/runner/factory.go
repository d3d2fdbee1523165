package runner

import (
	"fmt"
)

// Type represents the type of runner
type Type string

const (
	// RunnerLocal spawns the tool as a detached child process
	RunnerLocal Type = "local"
	// RunnerSlurm submits the tool as a batch scheduler job
	RunnerSlurm Type = "slurm"
)

// NewRunner creates a new runner of the specified type
func NewRunner(typ Type, cfg Config) (Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s runner config: %w", typ, err)
	}

	switch typ {
	case RunnerLocal:
		localConfig, ok := cfg.(*LocalConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for local runner: expected *LocalConfig")
		}
		return NewLocalRunner(localConfig), nil
	case RunnerSlurm:
		slurmConfig, ok := cfg.(*SlurmConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for slurm runner: expected *SlurmConfig")
		}
		return NewSlurmRunner(slurmConfig), nil
	default:
		return nil, fmt.Errorf("unknown runner type: %s", typ)
	}
}
