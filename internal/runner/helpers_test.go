package runner

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/types"
)

// writeScript writes an executable shell script and returns its path
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh is not available")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func newJob(t *testing.T, store *jobstore.FileStore, id string, kind types.JobKind, input string) LaunchSpec {
	t.Helper()
	ctx := context.Background()
	inputFile := jobstore.SequenceInputFile
	if kind == types.JobKindStructure {
		inputFile = jobstore.PDBInputFile
	}
	require.NoError(t, store.Create(ctx, id, &types.JobMetadata{
		Kind:        kind,
		InputFile:   inputFile,
		Threshold:   "0.001",
		SubmittedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.WriteFile(ctx, id, inputFile, []byte(input)))
	return LaunchSpec{JobID: id, Kind: kind, InputFile: inputFile, Threshold: "0.001"}
}

func testTools(bin string) ToolConfig {
	return ToolConfig{
		BlastBinary:     bin,
		BlastDB:         "/data/blast/domains",
		BlastMaxTargets: 250,
		FoldseekBinary:  bin,
		FoldseekDB:      "/data/foldseek/domains",
	}
}
