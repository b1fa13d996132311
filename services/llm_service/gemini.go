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

type GeminiService struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiURL     string
	apiKey     string
}

func NewGeminiService(logger *slog.Logger, apiURL, apiKey string) *GeminiService {
	return &GeminiService{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	maxRetries := 3
	retryDelay := 5 * time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		response, err := s.callGemini(ctx, prompt)
		if err == nil {
			return response, nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			s.logger.Error("Gemini API quota exceeded",
				slog.String("error_kind", apiErr.Kind),
				slog.String("error_message", apiErr.Message),
				slog.Int("status_code", apiErr.StatusCode))
			return "", fmt.Errorf("Gemini quota exceeded: %w", apiErr)
		}

		if attempt == maxRetries {
			s.logger.Error("Error calling Gemini API after multiple attempts",
				slog.Int("attempts", maxRetries),
				slog.String("error", err.Error()))
			return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", maxRetries, err)
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retryDelay", retryDelay),
			slog.String("error", err.Error()))
		time.Sleep(retryDelay)
	}

	return "", fmt.Errorf("failed to call Gemini API after exhausting all retry attempts")
}

func (s *GeminiService) callGemini(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s?key=%s", s.apiURL, s.apiKey)

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role": "user",
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":      0.7,
			"topK":             40,
			"topP":             0.95,
			"maxOutputTokens":  2048,
			"responseMimeType": "text/plain",
		},
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newAPIError("Gemini", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in Gemini response")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
