package probe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CodeMonkeyCybersecurity/gmapper/pkg/types"
)

// apiErrorBody is the structured error shape Google APIs return:
// {"error":{"message":"...","errors":[{"reason":"..."}]}}
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// maxRawErrorLen bounds how much non-JSON body text is carried into an
// error message. Longer bodies are omitted entirely.
const maxRawErrorLen = 200

// FailureMessage builds a human-readable explanation from a failed probe.
// It parses the structured error body best-effort; a malformed body falls
// back to the raw text if it is short, and the plain HTTP status
// otherwise. It never fails.
func FailureMessage(res types.ProbeResult) string {
	if res.StatusCode == 0 {
		if res.Error != "" {
			return "Network error: " + res.Error
		}
		return "Network error"
	}

	msg := fmt.Sprintf("HTTP %d", res.StatusCode)
	if res.Body == "" {
		return msg
	}

	var parsed apiErrorBody
	if err := json.Unmarshal([]byte(res.Body), &parsed); err != nil || parsed.Error.Message == "" {
		if len(res.Body) < maxRawErrorLen {
			return msg + " - " + res.Body
		}
		return msg
	}

	msg += " - " + parsed.Error.Message

	var reasons []string
	for _, e := range parsed.Error.Errors {
		if e.Reason != "" {
			reasons = append(reasons, e.Reason)
		}
	}
	if len(reasons) > 0 {
		msg += " (" + strings.Join(reasons, ", ") + ")"
	}
	return msg
}

// ServiceError extracts the API error message from a response body, or
// returns empty when the body has no parseable error. Parse failures are
// swallowed.
func ServiceError(body string) string {
	var parsed apiErrorBody
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return ""
	}
	return parsed.Error.Message
}
