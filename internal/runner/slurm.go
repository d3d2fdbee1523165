package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// SlurmConfig configures the batch scheduler runner
type SlurmConfig struct {
	Tools         ToolConfig
	Store         jobstore.Store
	Sbatch        string
	Squeue        string
	Partition     string
	TimeLimit     string
	JobNamePrefix string
}

var (
	schedulerIDRx = regexp.MustCompile(`^[0-9]+(_[0-9]+)?$`)
	slurmOptionRx = regexp.MustCompile(`^[A-Za-z0-9_:.,-]*$`)
)

// Validate validates the slurm runner configuration
func (c *SlurmConfig) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Sbatch == "" || c.Squeue == "" {
		return fmt.Errorf("sbatch and squeue commands are required")
	}
	// #SBATCH directives cannot be quoted
	if rooted, ok := c.Store.(interface{ Root() string }); ok {
		if strings.ContainsAny(rooted.Root(), " \t\n\r") {
			return fmt.Errorf("job root %q must not contain whitespace for the slurm backend", rooted.Root())
		}
	}
	for name, v := range map[string]string{"partition": c.Partition, "time limit": c.TimeLimit, "job name prefix": c.JobNamePrefix} {
		if !slurmOptionRx.MatchString(v) {
			return fmt.Errorf("invalid %s %q", name, v)
		}
	}
	return c.Tools.Validate()
}

// SlurmRunner writes a job script into the job directory and submits it
// to the batch scheduler. It also answers scheduler state queries.
type SlurmRunner struct {
	cfg SlurmConfig
}

var (
	_ Runner    = (*SlurmRunner)(nil)
	_ Scheduler = (*SlurmRunner)(nil)
)

// NewSlurmRunner creates a new slurm runner
func NewSlurmRunner(cfg *SlurmConfig) *SlurmRunner {
	c := *cfg
	if c.JobNamePrefix == "" {
		c.JobNamePrefix = "searchjobs"
	}
	return &SlurmRunner{cfg: c}
}

// Name returns the backend name
func (r *SlurmRunner) Name() string {
	return string(RunnerSlurm)
}

var jobScript = template.Must(template.New("job.sh").Parse(`#!/bin/bash
#SBATCH --job-name={{.JobName}}
#SBATCH --output=/dev/null
#SBATCH --error={{.LogPath}}
#SBATCH --chdir={{.Dir}}
{{- if .Partition}}
#SBATCH --partition={{.Partition}}
{{- end}}
{{- if .TimeLimit}}
#SBATCH --time={{.TimeLimit}}
{{- end}}
set -u

{{.Command}}
code=$?

result=""
if [ -f {{.ResultPath}} ]; then
  result={{.ResultName}}
fi
success=false
if [ "$code" -eq 0 ]; then
  success=true
fi
finished=$(date -u +%Y-%m-%dT%H:%M:%SZ)
tmp={{.MarkerPath}}.tmp.$$
printf '{"exit_code":%d,"success":%s,"result":"%s","finished_at":"%s"}\n' "$code" "$success" "$result" "$finished" > "$tmp" && mv "$tmp" {{.MarkerPath}}
exit "$code"
`))

type scriptData struct {
	JobName    string
	LogPath    string
	Dir        string
	Partition  string
	TimeLimit  string
	Command    string
	ResultPath string
	ResultName string
	MarkerPath string
}

// RenderScript renders the batch script of a job
func (r *SlurmRunner) RenderScript(spec LaunchSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	dir, err := r.cfg.Store.Dir(spec.JobID)
	if err != nil {
		return nil, err
	}
	argv, err := ToolCommand(r.cfg.Tools, dir, spec)
	if err != nil {
		return nil, err
	}

	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	resultName := ResultFile(spec.Kind)

	var buf bytes.Buffer
	err = jobScript.Execute(&buf, scriptData{
		JobName:    r.cfg.JobNamePrefix + "-" + spec.JobID,
		LogPath:    filepath.Join(dir, jobstore.LogFile),
		Dir:        dir,
		Partition:  r.cfg.Partition,
		TimeLimit:  r.cfg.TimeLimit,
		Command:    strings.Join(quoted, " "),
		ResultPath: shellQuote(filepath.Join(dir, resultName)),
		ResultName: resultName,
		MarkerPath: shellQuote(filepath.Join(dir, jobstore.ExitStatusFile)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render job script: %w", err)
	}
	return buf.Bytes(), nil
}

// Launch writes job.sh, submits it and records the scheduler job id
func (r *SlurmRunner) Launch(ctx context.Context, spec LaunchSpec) (Handle, error) {
	script, err := r.RenderScript(spec)
	if err != nil {
		return Handle{}, err
	}
	if err := r.cfg.Store.WriteFile(ctx, spec.JobID, jobstore.SchedulerScript, script); err != nil {
		return Handle{}, fmt.Errorf("failed to write job script: %w", err)
	}
	scriptPath, err := r.cfg.Store.Path(spec.JobID, jobstore.SchedulerScript)
	if err != nil {
		return Handle{}, err
	}

	stdout, stderr, err := run(ctx, r.cfg.Sbatch, "--parsable", scriptPath)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: sbatch failed: %v: %s", types.ErrToolExecution, err, strings.TrimSpace(stderr))
	}

	// --parsable prints "jobid" or "jobid;cluster"
	ref := strings.TrimSpace(strings.SplitN(strings.TrimSpace(stdout), ";", 2)[0])
	if !schedulerIDRx.MatchString(ref) {
		return Handle{}, fmt.Errorf("%w: unexpected sbatch output %q", types.ErrToolExecution, stdout)
	}

	if err := r.cfg.Store.WriteFile(ctx, spec.JobID, jobstore.SchedulerIDFile, []byte(ref+"\n")); err != nil {
		return Handle{}, fmt.Errorf("failed to record scheduler job id: %w", err)
	}

	logger.InfoWithFields("Job submitted to scheduler", map[string]interface{}{
		"job_id":           spec.JobID,
		"scheduler_job_id": ref,
	})
	return Handle{Backend: r.Name(), Ref: ref}, nil
}

// Query asks the scheduler for the state of a job
func (r *SlurmRunner) Query(ctx context.Context, ref string) (SchedulerState, error) {
	ref = strings.TrimSpace(ref)
	if !schedulerIDRx.MatchString(ref) {
		return StateGone, fmt.Errorf("invalid scheduler job id %q", ref)
	}

	stdout, stderr, err := run(ctx, r.cfg.Squeue, "-h", "-j", ref, "-o", "%T")
	if err != nil {
		// squeue rejects ids it has already purged
		if strings.Contains(stderr, "Invalid job id") {
			return StateGone, nil
		}
		return StateGone, fmt.Errorf("squeue failed: %w: %s", err, strings.TrimSpace(stderr))
	}
	return ParseSchedulerState(stdout), nil
}

// ParseSchedulerState maps squeue state codes to a scheduler state
func ParseSchedulerState(out string) SchedulerState {
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return StateGone
	}
	switch strings.ToUpper(fields[0]) {
	case "PENDING", "CONFIGURING", "REQUEUED", "REQUEUE_HOLD", "REQUEUE_FED", "SUSPENDED", "RESV_DEL_HOLD":
		return StateQueued
	case "RUNNING", "COMPLETING", "STAGE_OUT", "SIGNALING", "RESIZING":
		return StateRunning
	default:
		return StateGone
	}
}

func run(ctx context.Context, name string, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s timed out: %w", filepath.Base(name), err)
	}
	return stdout.String(), stderr.String(), err
}

// shellQuote quotes a word for bash
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./,:=+%@", r))
	}) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
