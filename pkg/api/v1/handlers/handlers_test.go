package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/jobstore"
	"github.com/domainbrowser/searchjobs/internal/runner"
	"github.com/domainbrowser/searchjobs/internal/services"
	"github.com/domainbrowser/searchjobs/internal/types"
)

const testSequence = "MVLSPADKTNVKAAWGKVGAHAGEYGAEALERMFLSFPTTKTYFPHF"

type stubRunner struct {
	mu    sync.Mutex
	specs []runner.LaunchSpec
}

func (r *stubRunner) Name() string { return string(runner.RunnerLocal) }

func (r *stubRunner) Launch(_ context.Context, spec runner.LaunchSpec) (runner.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, spec)
	return runner.Handle{Backend: r.Name(), Ref: "1"}, nil
}

type stubFetcher struct {
	err error
}

func (f stubFetcher) FetchByID(context.Context, string) ([]byte, error) { return nil, f.err }

func (f stubFetcher) FetchByAccession(context.Context, string) ([]byte, error) { return nil, f.err }

type testServer struct {
	app     *fiber.App
	store   *jobstore.FileStore
	gateway *services.Gateway
}

func newTestServer(t *testing.T, fetchErr error) *testServer {
	t.Helper()
	store, err := jobstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	gateway := services.NewGatewayService(services.GatewayOptions{
		Store:   store,
		Runner:  &stubRunner{},
		Fetcher: stubFetcher{err: fetchErr},
	})
	status := services.NewStatusService(services.StatusOptions{Store: store})
	jobs := NewJobHandler(gateway, status)

	app := fiber.New()
	app.Post("/jobs/sequence", jobs.SubmitSequence)
	app.Post("/jobs/structure", jobs.SubmitStructure)
	app.Get("/jobs/:id", jobs.GetJob)

	return &testServer{app: app, store: store, gateway: gateway}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, types.SlugResponse, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var slug types.SlugResponse
	require.NoError(t, json.Unmarshal(raw, &slug), string(raw))
	return resp.StatusCode, slug, raw
}

func TestSubmitSequence_Accepted(t *testing.T) {
	s := newTestServer(t, nil)
	defer s.gateway.Wait()

	code, slug, raw := s.do(t, http.MethodPost, "/jobs/sequence", `{"sequence":">q\n`+testSequence+`"}`)
	assert.Equal(t, fiber.StatusAccepted, code)
	assert.Equal(t, types.SuccessSlug, slug.Slug)

	var body struct {
		Data types.SubmitResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.NoError(t, jobstore.ValidateJobID(body.Data.JobID))
}

func TestSubmitSequence_Invalid(t *testing.T) {
	s := newTestServer(t, nil)

	code, slug, _ := s.do(t, http.MethodPost, "/jobs/sequence", `{"sequence":"MKV"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, types.InvalidInputSlug, slug.Slug)
	assert.Contains(t, slug.Error, "at least 10 residues")

	code, slug, _ = s.do(t, http.MethodPost, "/jobs/sequence", `{"sequence":`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, ErrMsgInvalidReqBody, slug.Error)
}

func TestSubmitStructure_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		fetchErr error
		body     string
		code     int
		slug     types.Slug
	}{
		{
			name: "unknown input type",
			body: `{"input_type":"url"}`,
			code: fiber.StatusBadRequest,
			slug: types.InvalidInputSlug,
		},
		{
			name:     "structure not found",
			fetchErr: types.ErrNotFound,
			body:     `{"input_type":"idChain","pdb_id":"9XYZ","chain":"A"}`,
			code:     fiber.StatusNotFound,
			slug:     types.NotFoundSlug,
		},
		{
			name:     "upstream failure",
			fetchErr: types.ErrUpstreamFetch,
			body:     `{"input_type":"accession","accession":"P69905"}`,
			code:     fiber.StatusBadGateway,
			slug:     types.UpstreamErrorSlug,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.fetchErr)
			code, slug, _ := s.do(t, http.MethodPost, "/jobs/structure", tc.body)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.slug, slug.Slug)
		})
	}
}

func TestGetJob(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	t.Run("bad id", func(t *testing.T) {
		code, slug, _ := s.do(t, http.MethodGet, "/jobs/abc", "")
		assert.Equal(t, fiber.StatusBadRequest, code)
		assert.Equal(t, types.InvalidInputSlug, slug.Slug)
	})

	t.Run("not found", func(t *testing.T) {
		code, slug, _ := s.do(t, http.MethodGet, "/jobs/AbCdEfGhIj", "")
		assert.Equal(t, fiber.StatusNotFound, code)
		assert.Equal(t, ErrMsgJobNotFound, slug.Error)
	})

	t.Run("pending", func(t *testing.T) {
		require.NoError(t, s.store.Create(ctx, "pending001", &types.JobMetadata{Kind: types.JobKindSequence}))
		code, _, raw := s.do(t, http.MethodGet, "/jobs/pending001", "")
		assert.Equal(t, fiber.StatusOK, code)

		var body struct {
			Data types.StatusResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, types.JobStatusPending, body.Data.Status)
	})

	t.Run("unparseable result", func(t *testing.T) {
		require.NoError(t, s.store.Create(ctx, "broken0001", &types.JobMetadata{Kind: types.JobKindSequence}))
		require.NoError(t, s.store.WriteFile(ctx, "broken0001", jobstore.BlastResultFile, []byte("<BlastOutput><oops")))
		require.NoError(t, s.store.WriteExitStatus(ctx, "broken0001", &types.ExitStatus{Success: true}))

		code, slug, raw := s.do(t, http.MethodGet, "/jobs/broken0001", "")
		assert.Equal(t, fiber.StatusInternalServerError, code)
		assert.Equal(t, ErrMsgParseFailed, slug.Error)
		assert.NotContains(t, string(raw), "oops")
	})
}
