package structure

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/domainbrowser/searchjobs/internal/types"
)

// DefaultFetchTimeout bounds one upstream download
const DefaultFetchTimeout = 30 * time.Second

// Fetcher downloads reference structures from external repositories
type Fetcher interface {
	// FetchByID downloads an experimental structure in mmCIF format
	FetchByID(ctx context.Context, pdbID string) ([]byte, error)
	// FetchByAccession downloads a predicted structure in PDB format
	FetchByAccession(ctx context.Context, accession string) ([]byte, error)
}

// FetcherOptions configures the HTTP fetcher. The templates contain an
// {id} or {acc} placeholder.
type FetcherOptions struct {
	PDBURLTemplate       string
	AlphaFoldURLTemplate string
	Timeout              time.Duration
}

// HTTPFetcher fetches structures over HTTP
type HTTPFetcher struct {
	pdbTemplate       string
	alphaFoldTemplate string
	timeout           time.Duration
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher returns a fetcher for the given URL templates
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		pdbTemplate:       opts.PDBURLTemplate,
		alphaFoldTemplate: opts.AlphaFoldURLTemplate,
		timeout:           opts.Timeout,
	}
}

// FetchByID downloads the structure with the given 4 character id
func (f *HTTPFetcher) FetchByID(ctx context.Context, pdbID string) ([]byte, error) {
	if err := types.ValidatePDBID(pdbID); err != nil {
		return nil, err
	}
	url := strings.ReplaceAll(f.pdbTemplate, "{id}", strings.ToUpper(pdbID))
	return f.get(ctx, url, "structure "+pdbID)
}

// FetchByAccession downloads the predicted model of an accession
func (f *HTTPFetcher) FetchByAccession(ctx context.Context, accession string) ([]byte, error) {
	if err := types.ValidateAccession(accession); err != nil {
		return nil, err
	}
	url := strings.ReplaceAll(f.alphaFoldTemplate, "{acc}", accession)
	return f.get(ctx, url, "accession "+accession)
}

func (f *HTTPFetcher) get(ctx context.Context, url, what string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrUpstreamFetch, what, err)
	}

	agent := fiber.Get(url)
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < f.timeout {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(f.timeout)
	}
	agent.MaxRedirectsCount(3)

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrUpstreamFetch, what, errs[0])
	}
	switch {
	case statusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, what)
	case statusCode < 200 || statusCode >= 300:
		return nil, fmt.Errorf("%w: %s: upstream returned %d", types.ErrUpstreamFetch, what, statusCode)
	case len(body) == 0:
		return nil, fmt.Errorf("%w: %s: empty response", types.ErrUpstreamFetch, what)
	}
	return body, nil
}
