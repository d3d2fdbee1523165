package routes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteURLs(t *testing.T) {
	assert.Equal(t, "/health", HealthCheckURL())
	assert.Equal(t, "/api/v1/admin/cleanup", AdminCleanupURL())
	assert.Equal(t, "/api/v1/jobs/sequence", SubmitSequenceURL())
	assert.Equal(t, "/api/v1/jobs/structure", SubmitStructureURL())
	assert.Equal(t, "/api/v1/jobs/AbCdEfGhIj", GetJobURL("AbCdEfGhIj"))
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "", BuildURL("NoSuchRoute", nil, nil))
	assert.Equal(t, "/api/v1/jobs/a%2Fb", GetJobURL("a/b"))
	assert.Equal(t, "/api/v1/jobs/x-1?wait=true", BuildURL(GetJob, map[string]string{"id": "x-1"}, url.Values{"wait": {"true"}}))
}
