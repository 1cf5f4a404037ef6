package probe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

func TestFailureMessageStructuredError(t *testing.T) {
	res := types.ProbeResult{
		StatusCode: 403,
		Body:       `{"error":{"message":"API key not valid","errors":[{"reason":"forbidden"},{"reason":"keyInvalid"}]}}`,
	}
	assert.Equal(t, "HTTP 403 - API key not valid (forbidden, keyInvalid)", FailureMessage(res))
}

func TestFailureMessageRawFallback(t *testing.T) {
	res := types.ProbeResult{StatusCode: 400, Body: "Bad request: missing parameter"}
	assert.Equal(t, "HTTP 400 - Bad request: missing parameter", FailureMessage(res))
}

func TestFailureMessageLongBodyOmitted(t *testing.T) {
	res := types.ProbeResult{StatusCode: 500, Body: strings.Repeat("x", 500)}
	assert.Equal(t, "HTTP 500", FailureMessage(res))
}

func TestFailureMessageNetworkError(t *testing.T) {
	res := types.ProbeResult{StatusCode: 0, Error: "connection refused"}
	assert.Equal(t, "Network error: connection refused", FailureMessage(res))
}

func TestFailureMessageEmptyBody(t *testing.T) {
	res := types.ProbeResult{StatusCode: 404}
	assert.Equal(t, "HTTP 404", FailureMessage(res))
}

func TestServiceError(t *testing.T) {
	assert.Equal(t, "This service is disabled",
		ServiceError(`{"error":{"message":"This service is disabled"}}`))
	assert.Empty(t, ServiceError("not json at all"))
	assert.Empty(t, ServiceError(`{"status":"OK"}`))
}
