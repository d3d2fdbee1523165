package types

import (
	"fmt"
	"strings"
)

// DefaultThreshold is the e-value cutoff used when a request omits one
const DefaultThreshold = "0.001"

// SequenceRequest is the payload of a sequence search submission
type SequenceRequest struct {
	Sequence  string `json:"sequence"`            // FASTA or raw residues
	Threshold string `json:"threshold,omitempty"` // E-value cutoff
}

// Validate validates the sequence request and normalizes the threshold.
// The sequence itself is normalized by NormalizeSequence.
func (r *SequenceRequest) Validate() error {
	if strings.TrimSpace(r.Sequence) == "" {
		return fmt.Errorf("%w: sequence is required", ErrInvalidInput)
	}
	threshold, err := ValidateThreshold(r.Threshold)
	if err != nil {
		return err
	}
	r.Threshold = threshold
	return nil
}

// StructureRequest is the payload of a structure search submission
type StructureRequest struct {
	InputType InputType `json:"input_type"`
	Structure string    `json:"structure,omitempty"`  // Uploaded PDB or mmCIF text
	PDBID     string    `json:"pdb_id,omitempty"`     // 4 character structure id
	Chain     string    `json:"chain,omitempty"`      // Chain of PDBID
	Accession string    `json:"accession,omitempty"`  // Sequence accession of a predicted model
	Threshold string    `json:"threshold,omitempty"`
}

// Validate validates the fields required by the request's input type.
// Structure content is checked by the gateway after any upstream fetch.
func (r *StructureRequest) Validate() error {
	switch r.InputType {
	case InputTypeUpload:
		if strings.TrimSpace(r.Structure) == "" {
			return fmt.Errorf("%w: structure is required for input type %s", ErrInvalidInput, r.InputType)
		}
	case InputTypeIDChain:
		if err := ValidatePDBID(r.PDBID); err != nil {
			return err
		}
		if err := ValidateChain(r.Chain); err != nil {
			return err
		}
		r.PDBID = strings.ToUpper(r.PDBID)
	case InputTypeAccession:
		r.Accession = strings.ToUpper(strings.TrimSpace(r.Accession))
		if err := ValidateAccession(r.Accession); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("%w: input_type is required", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown input_type %q", ErrInvalidInput, r.InputType)
	}

	threshold, err := ValidateThreshold(r.Threshold)
	if err != nil {
		return err
	}
	r.Threshold = threshold
	return nil
}

// Source describes where the query of the request came from
func (r *StructureRequest) Source() string {
	switch r.InputType {
	case InputTypeIDChain:
		return fmt.Sprintf("%s chain %s", r.PDBID, r.Chain)
	case InputTypeAccession:
		return r.Accession
	default:
		return "uploaded structure"
	}
}
