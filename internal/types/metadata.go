package types

import "time"

// JobMetadata is written once when a job is accepted and read back
// unchanged for the life of the job directory.
type JobMetadata struct {
	Kind        JobKind   `json:"kind"`
	Source      string    `json:"source"` // Human readable description of the query
	InputType   InputType `json:"input_type"`
	InputFile   string    `json:"input_file"` // Name of the input artifact in the job directory
	PDBID       string    `json:"pdb_id,omitempty"`
	Chain       string    `json:"chain,omitempty"`
	Accession   string    `json:"accession,omitempty"`
	Threshold   string    `json:"threshold"`
	QueryLength int       `json:"query_length,omitempty"` // Residues, sequence jobs only
	AtomCount   int       `json:"atom_count,omitempty"`   // Atoms, structure jobs only
	Backend     string    `json:"backend"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ExitStatus is the completion marker written when the tool process ends
type ExitStatus struct {
	ExitCode   int       `json:"exit_code"`
	Success    bool      `json:"success"`
	Result     string    `json:"result,omitempty"` // Name of the result artifact, if it exists
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
