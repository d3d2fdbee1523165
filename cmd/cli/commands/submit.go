package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// Submit flag names
const (
	flagFile      = "file"
	flagSequence  = "sequence"
	flagThreshold = "threshold"
	flagPDBID     = "pdb-id"
	flagChain     = "chain"
	flagAccession = "accession"
)

// submitOutput is printed after a job has been accepted
type submitOutput struct {
	JobID string `json:"job_id"`
}

func getSubmitCmd() *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a search job",
	}
	submitCmd.AddCommand(newSubmitSequenceCmd())
	submitCmd.AddCommand(newSubmitStructureCmd())
	return submitCmd
}

func newSubmitSequenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sequence",
		Short: "Submit a protein sequence search",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString(flagFile)
			sequence, _ := cmd.Flags().GetString(flagSequence)
			threshold, _ := cmd.Flags().GetString(flagThreshold)

			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("error reading sequence file: %w", err)
				}
				sequence = string(data)
			}

			jobID, err := apiClient.SubmitSequence(cmd.Context(), types.SequenceRequest{
				Sequence:  sequence,
				Threshold: threshold,
			})
			if err != nil {
				return fmt.Errorf("error submitting sequence search: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), submitOutput{JobID: jobID})
		},
	}

	cmd.Flags().StringP(flagFile, "f", "", "FASTA file with the query sequence")
	cmd.Flags().String(flagSequence, "", "Query sequence given inline")
	cmd.Flags().StringP(flagThreshold, "t", "", "E-value threshold (default "+types.DefaultThreshold+")")
	cmd.MarkFlagsMutuallyExclusive(flagFile, flagSequence)
	cmd.MarkFlagsOneRequired(flagFile, flagSequence)
	return cmd
}

func newSubmitStructureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "structure",
		Short: "Submit a protein structure search",
		Long: `Submit a structure search from an uploaded PDB or mmCIF file, a chain of an
experimental structure (--pdb-id with --chain) or a predicted model (--accession).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := structureRequestFromFlags(cmd)
			if err != nil {
				return err
			}

			jobID, err := apiClient.SubmitStructure(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("error submitting structure search: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), submitOutput{JobID: jobID})
		},
	}

	cmd.Flags().StringP(flagFile, "f", "", "PDB or mmCIF file to upload")
	cmd.Flags().String(flagPDBID, "", "Experimental structure id")
	cmd.Flags().String(flagChain, "", "Chain of the experimental structure")
	cmd.Flags().String(flagAccession, "", "Sequence accession of a predicted model")
	cmd.Flags().StringP(flagThreshold, "t", "", "E-value threshold (default "+types.DefaultThreshold+")")
	cmd.MarkFlagsMutuallyExclusive(flagFile, flagPDBID, flagAccession)
	cmd.MarkFlagsOneRequired(flagFile, flagPDBID, flagAccession)
	cmd.MarkFlagsRequiredTogether(flagPDBID, flagChain)
	return cmd
}

func structureRequestFromFlags(cmd *cobra.Command) (types.StructureRequest, error) {
	file, _ := cmd.Flags().GetString(flagFile)
	pdbID, _ := cmd.Flags().GetString(flagPDBID)
	chain, _ := cmd.Flags().GetString(flagChain)
	accession, _ := cmd.Flags().GetString(flagAccession)
	threshold, _ := cmd.Flags().GetString(flagThreshold)

	req := types.StructureRequest{Threshold: threshold}
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return req, fmt.Errorf("error reading structure file: %w", err)
		}
		req.InputType = types.InputTypeUpload
		req.Structure = string(data)
	case pdbID != "":
		req.InputType = types.InputTypeIDChain
		req.PDBID = pdbID
		req.Chain = chain
	default:
		req.InputType = types.InputTypeAccession
		req.Accession = accession
	}
	return req, nil
}
