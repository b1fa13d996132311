package llm_service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is a non-200 response from a completion backend.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Kind       string
	RawBody    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s API error (HTTP %d): %s (%s)", e.Provider, e.StatusCode, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Retryable reports whether another attempt can help. Quota exhaustion is
// terminal for the whole request.
func (e *APIError) Retryable() bool {
	return e.StatusCode != http.StatusTooManyRequests
}

// newAPIError reads a failed response body and pulls the message out of the
// provider's error envelope. OpenAI nests message and type under "error";
// Gemini nests message and status. One shape covers both.
func newAPIError(provider string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    "unknown error",
		RawBody:    string(body),
	}

	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Kind = envelope.Error.Type
		if apiErr.Kind == "" {
			apiErr.Kind = envelope.Error.Status
		}
	}
	return apiErr
}
