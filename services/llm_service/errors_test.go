package llm_service

import (
	"io"
	"net/http"
	"strings"
	"testing"
)

func errorResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewAPIErrorParsesProviderEnvelopes(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		status      int
		body        string
		wantMessage string
		wantKind    string
	}{
		{
			name:        "openai envelope",
			provider:    "OpenAI",
			status:      401,
			body:        `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`,
			wantMessage: "Incorrect API key provided",
			wantKind:    "invalid_request_error",
		},
		{
			name:        "gemini envelope",
			provider:    "Gemini",
			status:      400,
			body:        `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`,
			wantMessage: "API key not valid",
			wantKind:    "INVALID_ARGUMENT",
		},
		{
			name:        "unstructured body",
			provider:    "OpenAI",
			status:      502,
			body:        "bad gateway",
			wantMessage: "unknown error",
			wantKind:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := newAPIError(tt.provider, errorResponse(tt.status, tt.body))

			if apiErr.Provider != tt.provider || apiErr.StatusCode != tt.status {
				t.Errorf("Provider/status = %s/%d", apiErr.Provider, apiErr.StatusCode)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", apiErr.Kind, tt.wantKind)
			}
			if apiErr.RawBody != tt.body {
				t.Errorf("RawBody = %q", apiErr.RawBody)
			}
			if !strings.Contains(apiErr.Error(), tt.provider) {
				t.Errorf("Error() = %q, missing provider", apiErr.Error())
			}
		})
	}
}

func TestAPIErrorQuotaIsNotRetryable(t *testing.T) {
	quota := newAPIError("OpenAI", errorResponse(http.StatusTooManyRequests,
		`{"error": {"message": "Rate limit reached", "type": "requests"}}`))
	if quota.Retryable() {
		t.Error("429 must not be retried")
	}

	transient := newAPIError("Gemini", errorResponse(http.StatusServiceUnavailable, ""))
	if !transient.Retryable() {
		t.Error("503 should be retried")
	}
}
