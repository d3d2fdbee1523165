package runner

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/parser"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// ToolConfig locates the search tools and their target libraries
type ToolConfig struct {
	BlastBinary     string
	BlastDB         string
	BlastMaxTargets int
	FoldseekBinary  string
	FoldseekDB      string
}

// Validate validates the tool configuration
func (c *ToolConfig) Validate() error {
	if c.BlastBinary == "" || c.FoldseekBinary == "" {
		return fmt.Errorf("tool binaries are required")
	}
	if c.BlastMaxTargets <= 0 {
		return fmt.Errorf("max targets must be positive")
	}
	return nil
}

// ResultFile returns the name of the raw output artifact of a job kind
func ResultFile(kind types.JobKind) string {
	if kind == types.JobKindStructure {
		return jobstore.FoldseekResultFile
	}
	return jobstore.BlastResultFile
}

// ToolCommand builds the argv of the tool run for a job directory.
// The threshold is validated again here since it ends up on a command line.
func ToolCommand(tools ToolConfig, dir string, spec LaunchSpec) ([]string, error) {
	threshold, err := types.ValidateThreshold(spec.Threshold)
	if err != nil {
		return nil, err
	}
	if spec.InputFile != filepath.Base(spec.InputFile) {
		return nil, fmt.Errorf("%w: invalid input file %q", types.ErrInvalidInput, spec.InputFile)
	}
	input := filepath.Join(dir, spec.InputFile)

	switch spec.Kind {
	case types.JobKindSequence:
		return []string{
			tools.BlastBinary,
			"-query", input,
			"-db", tools.BlastDB,
			"-outfmt", "5",
			"-evalue", threshold,
			"-out", filepath.Join(dir, jobstore.BlastResultFile),
			"-max_target_seqs", strconv.Itoa(tools.BlastMaxTargets),
		}, nil
	case types.JobKindStructure:
		return []string{
			tools.FoldseekBinary,
			"easy-search",
			input,
			tools.FoldseekDB,
			filepath.Join(dir, jobstore.FoldseekResultFile),
			filepath.Join(dir, "tmp"),
			"--format-output", strings.Join(parser.FoldseekColumns, ","),
			"-e", threshold,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported job kind %q", spec.Kind)
	}
}
