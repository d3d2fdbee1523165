// Package jobstore persists job directories. The directory of a job is
// the source of truth for its state: no other record of the job exists.
package jobstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"time"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// Well-known file names inside a job directory
const (
	MetadataFile       = "metadata.json"
	SequenceInputFile  = "query.fasta"
	PDBInputFile       = "query.pdb"
	MMCIFInputFile     = "query.cif"
	BlastResultFile    = "results.xml"
	FoldseekResultFile = "results.tsv"
	LogFile            = "tool.log"
	ExitStatusFile     = "exit_status.json"
	SchedulerIDFile    = "scheduler_job_id"
	SchedulerScript    = "job.sh"
)

const (
	jobIDLength   = 10
	jobIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

var (
	// ErrJobExists is returned by Create when the job directory already exists
	ErrJobExists = errors.New("job already exists")
	// ErrOutsideRoot is returned when an entry does not resolve strictly under the root
	ErrOutsideRoot = errors.New("path outside job root")

	jobIDRx = regexp.MustCompile(`^[A-Za-z0-9_-]{8,32}$`)
)

// Entry is one top level entry of the job root
type Entry struct {
	Name    string
	IsDir   bool
	ModTime time.Time
	// Err is set when the entry could not be inspected
	Err error
}

// Store is the persistence seam of the job subsystem, keyed by job id
type Store interface {
	// Create makes the job directory exclusively and writes its metadata
	Create(ctx context.Context, id string, meta *types.JobMetadata) error
	Exists(ctx context.Context, id string) (bool, error)
	ReadMetadata(ctx context.Context, id string) (*types.JobMetadata, error)
	// WriteFile atomically replaces a file in the job directory
	WriteFile(ctx context.Context, id, name string, data []byte) error
	ReadFile(ctx context.Context, id, name string) ([]byte, error)
	// ReadTail returns at most n trailing bytes of a file
	ReadTail(ctx context.Context, id, name string, n int64) ([]byte, error)
	Stat(ctx context.Context, id, name string) (fs.FileInfo, error)
	WriteExitStatus(ctx context.Context, id string, status *types.ExitStatus) error
	ReadExitStatus(ctx context.Context, id string) (*types.ExitStatus, error)
	// Path returns the absolute path of a file in the job directory
	Path(id, name string) (string, error)
	Dir(id string) (string, error)
	Entries(ctx context.Context) ([]Entry, error)
	// Remove deletes a top level entry of the root after a containment check
	Remove(ctx context.Context, name string) error
}

// ValidateJobID checks the job id grammar. Every store method validates
// ids before touching the filesystem.
func ValidateJobID(id string) error {
	if !jobIDRx.MatchString(id) {
		return fmt.Errorf("%w: invalid job id %q", types.ErrInvalidInput, id)
	}
	return nil
}

// NewJobID returns a random job id from the URL-safe alphabet
func NewJobID() (string, error) {
	buf := make([]byte, jobIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate job id: %w", err)
	}
	// 64 symbols, so the low six bits index the alphabet without bias
	for i, b := range buf {
		buf[i] = jobIDAlphabet[b&63]
	}
	return string(buf), nil
}
