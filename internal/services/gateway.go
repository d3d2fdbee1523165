package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/domainbrowser/searchjobs/internal/events"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/logger"
	"github.com/domainbrowser/searchjobs/internal/runner"
	"github.com/domainbrowser/searchjobs/internal/structure"
	"github.com/domainbrowser/searchjobs/internal/types"
)

const (
	// DefaultLaunchTimeout bounds the runner's launch step, not the tool run
	DefaultLaunchTimeout = 2 * time.Minute
	// maxIDAttempts is the number of fresh ids tried when one collides
	maxIDAttempts = 5
)

// GatewayOptions configures the submission gateway
type GatewayOptions struct {
	Store         jobstore.Store
	Runner        runner.Runner
	Fetcher       structure.Fetcher
	Bus           *events.Bus
	LaunchTimeout time.Duration
}

// Gateway validates submissions, creates job directories and hands jobs
// to the runner
type Gateway struct {
	store         jobstore.Store
	runner        runner.Runner
	fetcher       structure.Fetcher
	bus           *events.Bus
	launchTimeout time.Duration
	launches      sync.WaitGroup
}

// NewGatewayService creates a new gateway service instance
func NewGatewayService(opts GatewayOptions) *Gateway {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	return &Gateway{
		store:         opts.Store,
		runner:        opts.Runner,
		fetcher:       opts.Fetcher,
		bus:           opts.Bus,
		launchTimeout: opts.LaunchTimeout,
	}
}

// SubmitSequence accepts a sequence search and returns the new job id.
// Invalid requests fail with types.ErrInvalidInput before anything is
// written.
func (s *Gateway) SubmitSequence(ctx context.Context, req *types.SequenceRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", s.reject(types.JobKindSequence, err)
	}
	seq, err := types.NormalizeSequence(req.Sequence)
	if err != nil {
		return "", s.reject(types.JobKindSequence, err)
	}

	meta := &types.JobMetadata{
		Kind:        types.JobKindSequence,
		Source:      "sequence",
		InputType:   types.InputTypeSequence,
		InputFile:   jobstore.SequenceInputFile,
		Threshold:   req.Threshold,
		QueryLength: len(seq),
	}
	fasta := []byte(">query\n" + seq + "\n")
	return s.accept(ctx, meta, fasta)
}

// SubmitStructure accepts a structure search and returns the new job id.
// Referenced structures are fetched and checked before the job is
// created: an absent structure or chain fails with types.ErrNotFound and
// an unreachable repository with types.ErrUpstreamFetch.
func (s *Gateway) SubmitStructure(ctx context.Context, req *types.StructureRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", s.reject(types.JobKindStructure, err)
	}

	data, format, atoms, err := s.loadStructure(ctx, req)
	if err != nil {
		return "", s.reject(types.JobKindStructure, err)
	}
	if err := structure.ValidateAtomCount(atoms); err != nil {
		return "", s.reject(types.JobKindStructure, err)
	}

	inputFile := jobstore.PDBInputFile
	if format == structure.FormatMMCIF {
		inputFile = jobstore.MMCIFInputFile
	}
	meta := &types.JobMetadata{
		Kind:      types.JobKindStructure,
		Source:    req.Source(),
		InputType: req.InputType,
		InputFile: inputFile,
		PDBID:     req.PDBID,
		Chain:     req.Chain,
		Accession: req.Accession,
		Threshold: req.Threshold,
		AtomCount: atoms,
	}
	return s.accept(ctx, meta, data)
}

// Wait blocks until every launch started by the gateway has returned
func (s *Gateway) Wait() {
	s.launches.Wait()
}

func (s *Gateway) loadStructure(ctx context.Context, req *types.StructureRequest) ([]byte, structure.Format, int, error) {
	switch req.InputType {
	case types.InputTypeIDChain:
		if s.fetcher == nil {
			return nil, "", 0, fmt.Errorf("%w: no structure repository configured", types.ErrUpstreamFetch)
		}
		data, err := s.fetcher.FetchByID(ctx, req.PDBID)
		if err != nil {
			return nil, "", 0, err
		}
		format := structure.DetectFormat(data)
		chain, atoms, err := structure.ExtractChain(data, format, req.Chain)
		if err != nil {
			return nil, "", 0, fmt.Errorf("%s: %w", req.PDBID, err)
		}
		return chain, format, atoms, nil
	case types.InputTypeAccession:
		if s.fetcher == nil {
			return nil, "", 0, fmt.Errorf("%w: no structure repository configured", types.ErrUpstreamFetch)
		}
		data, err := s.fetcher.FetchByAccession(ctx, req.Accession)
		if err != nil {
			return nil, "", 0, err
		}
		format := structure.DetectFormat(data)
		return data, format, structure.CountAtoms(data, format), nil
	default:
		data := []byte(req.Structure)
		format := structure.DetectFormat(data)
		return data, format, structure.CountAtoms(data, format), nil
	}
}

// accept creates the job directory, writes the metadata and then the
// input artifact, and launches the runner in the background
func (s *Gateway) accept(ctx context.Context, meta *types.JobMetadata, input []byte) (string, error) {
	meta.Backend = s.runner.Name()
	meta.SubmittedAt = time.Now().UTC()

	jobID, err := s.create(ctx, meta)
	if err != nil {
		return "", err
	}

	if err := s.store.WriteFile(ctx, jobID, meta.InputFile, input); err != nil {
		s.markFailed(jobID, fmt.Sprintf("failed to write input: %v", err))
		return "", fmt.Errorf("failed to write input of job %s: %w", jobID, err)
	}

	s.bus.Publish(events.Event{
		Type:    events.EventJobSubmitted,
		JobID:   jobID,
		Kind:    meta.Kind,
		Backend: meta.Backend,
	})
	logger.InfoWithFields("Job accepted", map[string]interface{}{
		"job_id":  jobID,
		"kind":    meta.Kind,
		"source":  meta.Source,
		"backend": meta.Backend,
	})

	spec := runner.LaunchSpec{
		JobID:     jobID,
		Kind:      meta.Kind,
		InputFile: meta.InputFile,
		Threshold: meta.Threshold,
	}
	s.launches.Add(1)
	go s.launch(spec, meta.Backend)

	return jobID, nil
}

func (s *Gateway) create(ctx context.Context, meta *types.JobMetadata) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		jobID, err := jobstore.NewJobID()
		if err != nil {
			return "", err
		}
		err = s.store.Create(ctx, jobID, meta)
		if errors.Is(err, jobstore.ErrJobExists) {
			logger.Debugf("Job id %s already in use, retrying", jobID)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create job: %w", err)
		}
		return jobID, nil
	}
	return "", fmt.Errorf("failed to allocate a job id after %d attempts", maxIDAttempts)
}

// launch runs detached from the request so that a client disconnect
// cannot cancel it
func (s *Gateway) launch(spec runner.LaunchSpec, backend string) {
	defer s.launches.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.launchTimeout)
	defer cancel()

	handle, err := s.runner.Launch(ctx, spec)
	if err != nil {
		logger.ErrorWithFields("Failed to launch job", map[string]interface{}{
			"job_id":  spec.JobID,
			"backend": backend,
			"error":   err.Error(),
		})
		s.markFailed(spec.JobID, fmt.Sprintf("failed to launch %s search: %v", spec.Kind, err))
		s.bus.Publish(events.Event{
			Type:    events.EventJobLaunchFailed,
			JobID:   spec.JobID,
			Kind:    spec.Kind,
			Backend: backend,
			Error:   err.Error(),
		})
		return
	}
	logger.DebugWithFields("Job launched", map[string]interface{}{
		"job_id":  spec.JobID,
		"backend": handle.Backend,
		"ref":     handle.Ref,
	})
}

// markFailed records a failure marker so the next status read reports it
func (s *Gateway) markFailed(jobID, msg string) {
	err := s.store.WriteExitStatus(context.Background(), jobID, &types.ExitStatus{
		ExitCode:   -1,
		Error:      msg,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.ErrorWithFields("Failed to record job failure", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
}

func (s *Gateway) reject(kind types.JobKind, err error) error {
	s.bus.Publish(events.Event{
		Type:  events.EventJobRejected,
		Kind:  kind,
		Error: err.Error(),
	})
	logger.DebugWithFields("Submission rejected", map[string]interface{}{
		"kind":  kind,
		"error": err.Error(),
	})
	return err
}
