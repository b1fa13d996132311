package llm_service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type OpenAIService struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string
	apiKey     string
	model      string
}

func NewOpenAIService(logger *slog.Logger, apiURL, apiKey, model string) *OpenAIService {
	return &OpenAIService{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
	}
}

func (s *OpenAIService) Complete(ctx context.Context, prompt string) (string, error) {
	maxRetries := 3
	retryDelay := 5 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		response, err := s.callOpenAI(ctx, prompt)
		if err == nil {
			return response, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if !apiErr.Retryable() {
				s.logger.Error("OpenAI API quota exceeded",
					slog.String("error_kind", apiErr.Kind),
					slog.String("error_message", apiErr.Message),
					slog.String("model", s.model),
					slog.Int("status_code", apiErr.StatusCode))
				return "", fmt.Errorf("OpenAI quota exceeded: %w", apiErr)
			}

			s.logger.Error("OpenAI API error",
				slog.Int("attempt", attempt),
				slog.Int("status_code", apiErr.StatusCode),
				slog.String("error_kind", apiErr.Kind),
				slog.String("error_message", apiErr.Message),
				slog.String("raw_body", apiErr.RawBody))
		}

		if attempt == maxRetries {
			s.logger.Error("Error calling OpenAI API after multiple attempts",
				slog.Int("attempts", maxRetries),
				slog.String("error", err.Error()),
				slog.String("model", s.model))
			return "", fmt.Errorf("failed to call OpenAI API after %d attempts: %w", maxRetries, err)
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", retryDelay),
			slog.String("error", err.Error()))

		time.Sleep(retryDelay)
	}

	return "", fmt.Errorf("failed to call OpenAI API after exhausting all retry attempts")
}

func (s *OpenAIService) callOpenAI(ctx context.Context, prompt string) (string, error) {
	messages := []map[string]string{
		{"role": "system", "content": "You are a helpful assistant."},
		{"role": "user", "content": prompt},
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":    s.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newAPIError("OpenAI", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no completion choices in response")
	}

	return result.Choices[0].Message.Content, nil
}
