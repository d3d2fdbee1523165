package types

import "errors"

// Error taxonomy of the job subsystem. Callers wrap these with context
// and the API layer maps them to status codes with errors.Is.
var (
	// ErrInvalidInput is a malformed or out-of-bounds sequence, structure, id or threshold
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is an unknown job id, or an absent external chain or accession
	ErrNotFound = errors.New("not found")
	// ErrUpstreamFetch is a failed fetch of a referenced external structure
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	// ErrToolExecution is a tool that exited non-zero or produced no output
	ErrToolExecution = errors.New("tool execution failed")
	// ErrParse is a result artifact that could not be parsed
	ErrParse = errors.New("failed to parse results")
	// ErrCorrelation is a failed domain store lookup
	ErrCorrelation = errors.New("domain correlation failed")
)
