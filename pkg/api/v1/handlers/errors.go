// Package handlers provides HTTP request handling
package handlers

// Common error messages
const (
	ErrMsgInvalidReqBody = "Invalid request body"
	ErrMsgServerError    = "Internal server error"
)

// Job error messages
const (
	ErrMsgJobNotFound     = "Job not found"
	ErrMsgSubmitFailed    = "Failed to submit job"
	ErrMsgStatusFailed    = "Failed to get job status"
	ErrMsgParseFailed     = "failed to parse results"
	ErrMsgUpstreamFailure = "Failed to fetch the referenced structure"
)

// Admin error messages
const (
	ErrMsgCleanupDisabled = "Cleanup endpoint is disabled"
	ErrMsgUnauthorized    = "Missing or invalid bearer token"
)
