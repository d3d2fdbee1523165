package types

import (
	"encoding/json"
	"fmt"
)

// JobKind identifies which external search tool a job runs
type JobKind string

const (
	// JobKindSequence runs a protein sequence search against the domain sequence library
	JobKindSequence JobKind = "sequence"
	// JobKindStructure runs a structural search against the domain structure library
	JobKindStructure JobKind = "structure"
)

// String returns the string representation of the job kind
func (k JobKind) String() string {
	return string(k)
}

// ParseJobKind converts a string to a JobKind
func ParseJobKind(str string) (JobKind, error) {
	switch str {
	case string(JobKindSequence):
		return JobKindSequence, nil
	case string(JobKindStructure):
		return JobKindStructure, nil
	default:
		return "", fmt.Errorf("invalid job kind: %s", str)
	}
}

// UnmarshalJSON implements json.Unmarshaler for JobKind
func (k *JobKind) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	kind, err := ParseJobKind(str)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// InputType describes how a structure search query was supplied
type InputType string

const (
	// InputTypeUpload is a structure file uploaded by the client
	InputTypeUpload InputType = "upload"
	// InputTypeIDChain is a reference to one chain of an experimental structure
	InputTypeIDChain InputType = "idChain"
	// InputTypeAccession is a reference to a predicted structure by sequence accession
	InputTypeAccession InputType = "accession"
	// InputTypeSequence is raw sequence text, used for sequence jobs
	InputTypeSequence InputType = "sequence"
)

// JobStatus represents the derived state of a job. It is never stored,
// it is computed from the job directory on each read.
type JobStatus string

// Job status constants
const (
	// JobStatusNotFound means no directory exists for the job id
	JobStatusNotFound JobStatus = "not_found"
	// JobStatusPending means the job was accepted but has not started running
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning means the scheduler reports the tool as running
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted means a complete result artifact is available
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed means the tool exited non-zero or produced no output
	JobStatusFailed JobStatus = "failed"
)

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status can no longer change
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusNotFound
}

// ParseJobStatus converts a string to a JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	switch str {
	case string(JobStatusNotFound):
		return JobStatusNotFound, nil
	case string(JobStatusPending):
		return JobStatusPending, nil
	case string(JobStatusRunning):
		return JobStatusRunning, nil
	case string(JobStatusCompleted):
		return JobStatusCompleted, nil
	case string(JobStatusFailed):
		return JobStatusFailed, nil
	default:
		return "", fmt.Errorf("invalid job status: %s", str)
	}
}
