package test_test

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/db/models"
	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/types"
	"github.com/domainbrowser/searchjobs/test"
)

const hemoglobin = ">sp|P69905|HBA_HUMAN\nMVLSPADKTNVKAAWGKVGAHAGEYGAEALERMFLSFPTTKTYFPHF\nDLSHGSAQVKGHGKKVADALTNAVAHV\n"

var seededDomains = []models.Domain{
	{ID: 123, DomainID: "1abcA01", FamilyID: "3.40.50.300", FamilyName: "P-loop NTPases"},
	{ID: 456, DomainID: "2xyzB02", FamilyID: "2.60.40.10", FamilyName: "Immunoglobulins"},
}

func readFixture(t *testing.T, path ...string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{".."}, path...)...))
	require.NoError(t, err)
	return data
}

func statusCode(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return 0
}

func TestSequenceSearchLifecycle(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer(), test.WithDomains(seededDomains...))
	defer env.Cleanup()

	env.Runner.SetOutcome(types.JobKindSequence, test.Outcome{
		Artifact: readFixture(t, "internal", "parser", "testdata", "blast_two_hits.xml"),
	})

	jobID, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err)
	require.NoError(t, jobstore.ValidateJobID(jobID))

	resp, err := env.WaitForStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, jobID, resp.JobID)
	assert.Equal(t, types.JobStatusCompleted, resp.Status)
	assert.Equal(t, 2, resp.HitCount)
	require.Len(t, resp.Hits, 2)
	require.NotNil(t, resp.Hits[0].Domain)
	assert.Equal(t, "P-loop NTPases", resp.Hits[0].Domain.FamilyName)
	require.NotNil(t, resp.Hits[1].Domain)
	assert.Equal(t, "2xyzB02", resp.Hits[1].Domain.DomainID)

	launched := env.Runner.Launched()
	require.Len(t, launched, 1)
	assert.Equal(t, jobID, launched[0].JobID)
	assert.Equal(t, jobstore.SequenceInputFile, launched[0].InputFile)
}

func TestSequenceSearch_PendingUntilToolFinishes(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	jobID, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(env.Runner.Launched()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := env.APIClient.GetJob(env.Context(), jobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusPending, resp.Status)
	assert.Empty(t, resp.Hits)
}

func TestSequenceSearch_ToolFailure(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	env.Runner.SetOutcome(types.JobKindSequence, test.Outcome{
		ExitCode: 2,
		Log:      "BLAST Database error: No alias or index file found\n",
	})

	jobID, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err)

	resp, err := env.WaitForStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "No alias or index file found")
}

func TestSequenceSearch_LaunchFailure(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	env.Runner.SetOutcome(types.JobKindSequence, test.Outcome{LaunchErr: errors.New("blastp: not found")})

	jobID, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err, "launch failures are reported through the job status")

	resp, err := env.WaitForStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusFailed, resp.Status)
	assert.Contains(t, resp.Error, "blastp: not found")
}

func TestSequenceSearch_InvalidInput(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	_, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: "MKV"})
	require.Error(t, err)
	assert.Equal(t, fiber.StatusBadRequest, statusCode(err))

	entries, err := env.Store.Entries(env.Context())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected submissions leave no job directory")
	assert.Empty(t, env.Runner.Launched())
}

func TestStructureSearchLifecycle(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer(), test.WithDomains(seededDomains...))
	defer env.Cleanup()

	env.Fetcher.AddStructure("1ABC", readFixture(t, "internal", "structure", "testdata", "two_chains.cif"))
	env.Runner.SetOutcome(types.JobKindStructure, test.Outcome{
		Artifact: []byte("query.cif\t000123.pdb\t0.412\t118\t60\t3\t2\t119\t5\t121\t1.2e-10\t210\t0.8123\n"),
	})

	jobID, err := env.APIClient.SubmitStructure(env.Context(), types.StructureRequest{
		InputType: types.InputTypeIDChain,
		PDBID:     "1abc",
		Chain:     "A",
	})
	require.NoError(t, err)

	resp, err := env.WaitForStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, resp.Status)
	require.Len(t, resp.Hits, 1)
	require.NotNil(t, resp.Hits[0].Domain)
	assert.Equal(t, "1abcA01", resp.Hits[0].Domain.DomainID)
	require.NotNil(t, resp.Metadata)
	assert.Equal(t, types.JobKindStructure, resp.Metadata.Kind)

	launched := env.Runner.Launched()
	require.Len(t, launched, 1)
	assert.Equal(t, jobstore.MMCIFInputFile, launched[0].InputFile)
}

func TestStructureSearch_UnknownStructure(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	_, err := env.APIClient.SubmitStructure(env.Context(), types.StructureRequest{
		InputType: types.InputTypeIDChain,
		PDBID:     "9zzz",
		Chain:     "A",
	})
	require.Error(t, err)
	assert.Equal(t, fiber.StatusNotFound, statusCode(err))
}

func TestGetJob_UnknownAndMalformedIDs(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	_, err := env.APIClient.GetJob(env.Context(), "AbCdEfGhIj")
	require.Error(t, err)
	assert.Equal(t, fiber.StatusNotFound, statusCode(err))

	_, err = env.APIClient.GetJob(env.Context(), "short")
	require.Error(t, err)
	assert.Equal(t, fiber.StatusBadRequest, statusCode(err))
}

func TestCleanup(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer(), test.WithAdminToken("s3cret"))
	defer env.Cleanup()

	jobID, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err)

	_, err = env.APIClient.Cleanup(env.Context(), "wrong")
	require.Error(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, statusCode(err))

	report, err := env.APIClient.Cleanup(env.Context(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, 1, report.JobsScanned)
	assert.Equal(t, 0, report.JobsRemoved, "fresh jobs are within the retention horizon")

	ok, err := env.Store.Exists(env.Context(), jobID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCleanup_DisabledWithoutToken(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	_, err := env.APIClient.Cleanup(env.Context(), "anything")
	require.Error(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, statusCode(err))
}

func TestCleanup_RemovesExpiredJobs(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer(),
		test.WithAdminToken("s3cret"), test.WithRetention(time.Hour))
	defer env.Cleanup()

	jobID, err := env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(env.Runner.Launched()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	dir, err := env.Store.Dir(jobID)
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(dir, old, old))

	report, err := env.APIClient.Cleanup(env.Context(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, []string{jobID}, report.Removed)

	_, err = env.APIClient.GetJob(env.Context(), jobID)
	assert.Equal(t, fiber.StatusNotFound, statusCode(err))
}

func TestHealthAndMetrics(t *testing.T) {
	env := test.NewTestEnvironment(t, test.WithServer())
	defer env.Cleanup()

	health, err := env.APIClient.HealthCheck(env.Context())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])

	_, err = env.APIClient.SubmitSequence(env.Context(), types.SequenceRequest{Sequence: hemoglobin})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		res, err := http.Get(env.Server.URL + "/metrics")
		if err != nil {
			return false
		}
		defer res.Body.Close()
		body, err := io.ReadAll(res.Body)
		if err != nil {
			return false
		}
		return res.StatusCode == http.StatusOK &&
			strings.Contains(string(body), `searchjobs_jobs_submitted_total{kind="sequence"} 1`)
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStructureSearch_PredictedModel(t *testing.T) {
	cleaned := false
	env := test.NewTestEnvironment(t, test.WithServer(),
		test.WithCleanupFunc(func() { cleaned = true }))

	env.Fetcher.AddModel("P69905", readFixture(t, "internal", "structure", "testdata", "two_chains.pdb"))
	env.Runner.SetOutcome(types.JobKindStructure, test.Outcome{Artifact: []byte{}})

	jobID, err := env.APIClient.SubmitStructure(env.Context(), types.StructureRequest{
		InputType: types.InputTypeAccession,
		Accession: "p69905",
	})
	require.NoError(t, err)

	resp, err := env.WaitForStatus(jobID)
	require.NoError(t, err)
	assert.Equal(t, types.JobStatusCompleted, resp.Status)
	assert.Equal(t, 0, resp.HitCount)

	launched := env.Runner.Launched()
	require.Len(t, launched, 1)
	assert.Equal(t, jobstore.PDBInputFile, launched[0].InputFile)

	env.Cleanup()
	assert.True(t, cleaned)
}
