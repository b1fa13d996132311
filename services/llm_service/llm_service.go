package llm_service

import "context"

// LLMService is the generative-text backend used for captioning, localization
// and detail extraction.
type LLMService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
