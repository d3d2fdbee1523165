package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/metrics"
	"github.com/domainbrowser/searchjobs/internal/parser"
	"github.com/domainbrowser/searchjobs/internal/runner"
	"github.com/domainbrowser/searchjobs/internal/types"
)

const (
	// LogExcerptSize is the number of trailing log bytes reported for a failed job
	LogExcerptSize = 2048
	// DefaultStaleAfter is how long a job may stay pending with an
	// unreachable scheduler before it is flagged as stale
	DefaultStaleAfter = 24 * time.Hour
)

// StatusOptions configures the status service
type StatusOptions struct {
	Store      jobstore.Store
	Scheduler  runner.Scheduler // nil unless the batch scheduler backend is in use
	Correlator *Correlator
	Metrics    *metrics.Collector
	StaleAfter time.Duration
}

// Status derives job state from the job directory on every read. It never
// writes to the directory.
type Status struct {
	store      jobstore.Store
	scheduler  runner.Scheduler
	correlator *Correlator
	metrics    *metrics.Collector
	staleAfter time.Duration
	now        func() time.Time
}

// NewStatusService creates a new status service instance
func NewStatusService(opts StatusOptions) *Status {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &Status{
		store:      opts.Store,
		scheduler:  opts.Scheduler,
		correlator: opts.Correlator,
		metrics:    opts.Metrics,
		staleAfter: opts.StaleAfter,
		now:        time.Now,
	}
}

// Resolve returns the current state of a job, with parsed and correlated
// hits once it has completed. Result parsing failures wrap types.ErrParse.
func (s *Status) Resolve(ctx context.Context, jobID string) (*types.StatusResponse, error) {
	if err := jobstore.ValidateJobID(jobID); err != nil {
		return nil, err
	}
	start := time.Now()

	resp, err := s.resolve(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordStatus(resp.Status, time.Since(start))
	return resp, nil
}

func (s *Status) resolve(ctx context.Context, jobID string) (*types.StatusResponse, error) {
	resp := &types.StatusResponse{JobID: jobID}

	exists, err := s.store.Exists(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !exists {
		resp.Status = types.JobStatusNotFound
		return resp, nil
	}

	meta, err := s.store.ReadMetadata(ctx, jobID)
	if errors.Is(err, fs.ErrNotExist) {
		// directory created, metadata not yet renamed into place
		resp.Status = types.JobStatusPending
		return resp, nil
	}
	if err != nil {
		return nil, err
	}

	marker, err := s.store.ReadExitStatus(ctx, jobID)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if marker != nil && marker.ExitCode != 0 {
		resp.Status = types.JobStatusFailed
		resp.Error = s.failureExcerpt(ctx, jobID, marker)
		return resp, nil
	}

	resultFile := runner.ResultFile(meta.Kind)
	artifact, err := s.store.ReadFile(ctx, jobID, resultFile)
	artifactExists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read result of job %s: %w", jobID, err)
	}

	// Local runs always write the marker; only batch jobs killed by the
	// scheduler can finish without one.
	if artifactExists && meta.Backend != string(runner.RunnerLocal) && terminated(meta.Kind, artifact) {
		return s.completed(ctx, resp, meta, artifact)
	}

	if marker != nil {
		if artifactExists {
			return s.completed(ctx, resp, meta, artifact)
		}
		resp.Status = types.JobStatusFailed
		resp.Error = "tool produced no output"
		return resp, nil
	}

	if s.scheduler != nil && meta.Backend == string(runner.RunnerSlurm) {
		return s.fromScheduler(ctx, resp, meta)
	}

	resp.Status = types.JobStatusPending
	return resp, nil
}

func (s *Status) fromScheduler(ctx context.Context, resp *types.StatusResponse, meta *types.JobMetadata) (*types.StatusResponse, error) {
	resp.Status = types.JobStatusPending

	ref, err := s.store.ReadFile(ctx, resp.JobID, jobstore.SchedulerIDFile)
	if err != nil {
		// not submitted yet
		return resp, nil
	}

	state, err := s.scheduler.Query(ctx, strings.TrimSpace(string(ref)))
	if err != nil {
		s.metrics.RecordSchedulerFailure()
		fields := map[string]interface{}{
			"job_id":           resp.JobID,
			"scheduler_job_id": strings.TrimSpace(string(ref)),
			"error":            err.Error(),
		}
		if s.now().Sub(meta.SubmittedAt) > s.staleAfter {
			resp.Stale = true
			logger.WarnWithFields("Scheduler unreachable for a stale pending job", fields)
		} else {
			logger.DebugWithFields("Scheduler query failed, reporting pending", fields)
		}
		return resp, nil
	}

	switch state {
	case runner.StateRunning:
		resp.Status = types.JobStatusRunning
	case runner.StateGone:
		excerpt := s.logExcerpt(ctx, resp.JobID)
		if excerpt != "" {
			resp.Status = types.JobStatusFailed
			resp.Error = excerpt
		}
	}
	return resp, nil
}

func (s *Status) completed(ctx context.Context, resp *types.StatusResponse, meta *types.JobMetadata, artifact []byte) (*types.StatusResponse, error) {
	var hits []types.Hit

	switch meta.Kind {
	case types.JobKindSequence:
		result, err := parser.ParseBlastXML(bytes.NewReader(artifact))
		if err != nil {
			logger.ErrorWithFields("Failed to parse sequence search results", map[string]interface{}{
				"job_id": resp.JobID,
				"error":  err.Error(),
			})
			return nil, err
		}
		hits = result.Hits
		resp.QueryLength = result.QueryLength
		if resp.QueryLength == 0 {
			resp.QueryLength = meta.QueryLength
		}
	case types.JobKindStructure:
		parsed, err := parser.ParseFoldseekTSV(bytes.NewReader(artifact))
		if err != nil {
			logger.ErrorWithFields("Failed to parse structure search results", map[string]interface{}{
				"job_id": resp.JobID,
				"error":  err.Error(),
			})
			return nil, err
		}
		hits = parsed
		resp.Metadata = meta
	default:
		return nil, fmt.Errorf("%w: unknown job kind %q", types.ErrParse, meta.Kind)
	}

	if s.correlator != nil {
		hits = s.correlator.Correlate(ctx, hits)
	}
	resp.Status = types.JobStatusCompleted
	resp.Hits = hits
	resp.HitCount = len(hits)
	return resp, nil
}

func (s *Status) failureExcerpt(ctx context.Context, jobID string, marker *types.ExitStatus) string {
	if excerpt := s.logExcerpt(ctx, jobID); excerpt != "" {
		return excerpt
	}
	if marker.Error != "" {
		return marker.Error
	}
	return fmt.Sprintf("tool exited with code %d", marker.ExitCode)
}

func (s *Status) logExcerpt(ctx context.Context, jobID string) string {
	tail, err := s.store.ReadTail(ctx, jobID, jobstore.LogFile, LogExcerptSize)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(tail), ""))
}

func terminated(kind types.JobKind, artifact []byte) bool {
	if kind == types.JobKindStructure {
		return parser.FoldseekTerminated(artifact)
	}
	return parser.BlastTerminated(artifact)
}
