package types

import "time"

// Slug is a type for the slug field in the response
// It is mainly used for the client to understand the type of the response
type Slug string

// nolint:gochecknoglobals
const (
	SuccessSlug       Slug = "success"
	ErrorSlug         Slug = "error"
	InvalidInputSlug  Slug = "invalid-input"
	NotFoundSlug      Slug = "not-found"
	UpstreamErrorSlug Slug = "upstream-error"
	UnavailableSlug   Slug = "unavailable"
	UnauthorizedSlug  Slug = "unauthorized"
	ServerErrorSlug   Slug = "server-error"
)

// SlugResponse is the response envelope of every API endpoint
type SlugResponse struct {
	Slug  Slug        `json:"slug"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// InvalidInputResponse returns a SlugResponse with the InvalidInputSlug and the error message
func InvalidInputResponse(msg string) SlugResponse {
	return SlugResponse{Slug: InvalidInputSlug, Error: msg}
}

// NotFoundResponse returns a SlugResponse with the NotFoundSlug and the error message
func NotFoundResponse(msg string) SlugResponse {
	return SlugResponse{Slug: NotFoundSlug, Error: msg}
}

// UpstreamErrorResponse returns a SlugResponse with the UpstreamErrorSlug and the error message
func UpstreamErrorResponse(msg string) SlugResponse {
	return SlugResponse{Slug: UpstreamErrorSlug, Error: msg}
}

// UnavailableResponse returns a SlugResponse with the UnavailableSlug and the error message
func UnavailableResponse(msg string) SlugResponse {
	return SlugResponse{Slug: UnavailableSlug, Error: msg}
}

// UnauthorizedResponse returns a SlugResponse with the UnauthorizedSlug and the error message
func UnauthorizedResponse(msg string) SlugResponse {
	return SlugResponse{Slug: UnauthorizedSlug, Error: msg}
}

// ServerErrorResponse returns a SlugResponse with the ServerErrorSlug and the error message
func ServerErrorResponse(msg string) SlugResponse {
	return SlugResponse{Slug: ServerErrorSlug, Error: msg}
}

// Success returns a SlugResponse with the SuccessSlug and the data
func Success(data interface{}) SlugResponse {
	return SlugResponse{Slug: SuccessSlug, Data: data}
}

// SubmitResponse is returned when a job has been accepted
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// StatusResponse is the derived state of a job, with its hits once completed
type StatusResponse struct {
	JobID       string       `json:"job_id"`
	Status      JobStatus    `json:"status"`
	HitCount    int          `json:"hit_count"`
	Hits        []Hit        `json:"hits,omitempty"`
	QueryLength int          `json:"query_length,omitempty"`
	Metadata    *JobMetadata `json:"metadata,omitempty"`
	Error       string       `json:"error,omitempty"`
	// Stale is set when the scheduler could not be asked about a job
	// that has been pending for longer than the stale horizon.
	Stale bool `json:"stale,omitempty"`
}

// CleanupReport summarizes one retention sweep
type CleanupReport struct {
	JobsScanned int       `json:"jobs_scanned"`
	JobsRemoved int       `json:"jobs_removed"`
	Removed     []string  `json:"removed"`
	Skipped     []string  `json:"skipped"`
	Errors      []string  `json:"errors"`
	StartedAt   time.Time `json:"started_at"`
	Duration    string    `json:"duration"`
}
