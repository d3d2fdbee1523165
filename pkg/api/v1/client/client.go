// Package client provides the API client for interacting with the search job API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/domainbrowser/searchjobs/internal/types"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Admin Endpoints
	Cleanup(ctx context.Context, token string) (types.CleanupReport, error)

	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Job Endpoints
	SubmitSequence(ctx context.Context, req types.SequenceRequest) (string, error)
	SubmitStructure(ctx context.Context, req types.StructureRequest) (string, error)
	GetJob(ctx context.Context, id string) (types.StatusResponse, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	// Resolve the endpoint URL
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	// Set common headers
	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	// Add body if provided
	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// doRequest sends the HTTP request and unwraps the data of the slug
// response into v
func (c *APIClient) doRequest(ctx context.Context, agent *fiber.Agent, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Execute the request
	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	var slug struct {
		Slug  types.Slug      `json:"slug"`
		Error string          `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	decodeErr := json.Unmarshal(body, &slug)

	// Check for non-success status codes
	if statusCode < 200 || statusCode >= 300 {
		msg := string(body)
		if decodeErr == nil && slug.Error != "" {
			msg = slug.Error
		}
		return &fiber.Error{
			Code:    statusCode,
			Message: msg,
		}
	}

	if v == nil {
		return nil
	}
	if decodeErr != nil {
		return fmt.Errorf("error decoding response: %w", decodeErr)
	}

	// Endpoints outside the slug envelope, such as the health check
	if slug.Slug == "" {
		return json.Unmarshal(body, v)
	}
	if len(slug.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(slug.Data, v); err != nil {
		return fmt.Errorf("error decoding response data: %w", err)
	}
	return nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	return c.doRequest(ctx, agent, response)
}

// Admin methods implementation

// Cleanup triggers a retention sweep on the server
func (c *APIClient) Cleanup(ctx context.Context, token string) (types.CleanupReport, error) {
	agent, err := c.createAgent(ctx, http.MethodPost, routes.AdminCleanupURL(), nil)
	if err != nil {
		return types.CleanupReport{}, err
	}
	agent.Set(fiber.HeaderAuthorization, "Bearer "+token)

	var report types.CleanupReport
	if err := c.doRequest(ctx, agent, &report); err != nil {
		return types.CleanupReport{}, err
	}
	return report, nil
}

// Health check implementation

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	endpoint := routes.HealthCheckURL()
	var response map[string]string
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// Job methods implementation

// SubmitSequence submits a sequence search and returns the job id
func (c *APIClient) SubmitSequence(ctx context.Context, req types.SequenceRequest) (string, error) {
	var response types.SubmitResponse
	if err := c.executeRequest(ctx, http.MethodPost, routes.SubmitSequenceURL(), req, &response); err != nil {
		return "", err
	}
	return response.JobID, nil
}

// SubmitStructure submits a structure search and returns the job id
func (c *APIClient) SubmitStructure(ctx context.Context, req types.StructureRequest) (string, error) {
	var response types.SubmitResponse
	if err := c.executeRequest(ctx, http.MethodPost, routes.SubmitStructureURL(), req, &response); err != nil {
		return "", err
	}
	return response.JobID, nil
}

// GetJob retrieves the status of a job, with its hits once completed
func (c *APIClient) GetJob(ctx context.Context, id string) (types.StatusResponse, error) {
	var response types.StatusResponse
	if err := c.executeRequest(ctx, http.MethodGet, routes.GetJobURL(id), nil, &response); err != nil {
		return types.StatusResponse{}, err
	}
	return response, nil
}
