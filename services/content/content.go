package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"eventreel/services/llm_service"
)

// DefaultCaption is used when the text backend cannot produce anything
// better. The pipeline has no further fallback after this stage, so a
// degenerate caption beats a hard failure.
const DefaultCaption = "Event Highlights"

const maxPromptTextLength = 4000

// Intelligence produces captions, keywords and overlay details from raw text.
type Intelligence interface {
	GenerateCaption(ctx context.Context, text, language string) (ContentAnalysis, error)
	ExtractEventDetails(ctx context.Context, caption, language string) (ContentDetails, error)
}

type Service struct {
	llm    llm_service.LLMService
	logger *slog.Logger
}

func NewService(llm llm_service.LLMService, logger *slog.Logger) *Service {
	return &Service{llm: llm, logger: logger}
}

// GenerateCaption asks the text backend for a short caption, search keywords,
// a content classification and a tone. When language is a specific code the
// caption is requested in that language, non-Latin scripts included. Backend
// failures degrade to a default caption rather than erroring out.
func (s *Service) GenerateCaption(ctx context.Context, text, language string) (ContentAnalysis, error) {
	text = truncate(text, maxPromptTextLength)

	prompt := buildCaptionPrompt(text, language)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("Caption generation failed, degrading to default caption",
			slog.String("language", language),
			slog.String("error", err.Error()))
		return degradedAnalysis(text), nil
	}

	var analysis ContentAnalysis
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &analysis); err != nil {
		s.logger.Warn("Caption response was not valid JSON, using raw text",
			slog.String("error", err.Error()))
		analysis = ContentAnalysis{Caption: firstLine(raw)}
	}

	analysis.Caption = strings.TrimSpace(analysis.Caption)
	if analysis.Caption == "" {
		analysis.Caption = DefaultCaption
	}
	for i, kw := range analysis.VideoKeywords {
		analysis.VideoKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}

	s.logger.Info("Generated caption",
		slog.String("language", language),
		slog.String("content_type", analysis.ContentType),
		slog.Int("keyword_count", len(analysis.VideoKeywords)))

	return analysis, nil
}

// ExtractEventDetails pulls up to five ordered short phrases out of a caption
// for overlay rendering. It works for any content type, not just events. An
// entirely empty result is valid; callers render an empty overlay.
func (s *Service) ExtractEventDetails(ctx context.Context, caption, language string) (ContentDetails, error) {
	prompt := buildDetailsPrompt(truncate(caption, maxPromptTextLength), language)

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("Detail extraction failed, proceeding with empty details",
			slog.String("language", language),
			slog.String("error", err.Error()))
		return ContentDetails{}, nil
	}

	var details ContentDetails
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &details); err != nil {
		s.logger.Warn("Details response was not valid JSON, proceeding with empty details",
			slog.String("error", err.Error()))
		return ContentDetails{}, nil
	}

	return details, nil
}

func buildCaptionPrompt(text, language string) string {
	var b strings.Builder
	b.WriteString("You are writing a short social-media caption for a vertical video reel.\n")
	b.WriteString("Given the source text below, respond with ONLY a JSON object with these keys:\n")
	b.WriteString(`  "caption": one catchy sentence summarizing the content`)
	b.WriteString("\n")
	if language != "" && language != "auto" {
		fmt.Fprintf(&b, "  (the caption MUST be written in the language with code %q, in its native script)\n", language)
	} else {
		b.WriteString("  (keep the caption in the same language as the source text)\n")
	}
	b.WriteString(`  "keywords": up to 5 short English search terms describing matching background video footage` + "\n")
	b.WriteString(`  "content_type": one word classifying the content (event, promotion, announcement, ...)` + "\n")
	b.WriteString(`  "tone": one word describing the tone (festive, formal, energetic, ...)` + "\n\n")
	b.WriteString("Source text:\n")
	b.WriteString(text)
	return b.String()
}

func buildDetailsPrompt(caption, language string) string {
	var b strings.Builder
	b.WriteString("Extract the most salient short phrases from the text below for on-video display.\n")
	b.WriteString("Respond with ONLY a JSON object with keys line1 through line5.\n")
	b.WriteString("Each line is a short phrase (a title, a date, a time, a place, a call to action).\n")
	b.WriteString("Use as few lines as the content supports; leave unused lines as empty strings.\n")
	if language != "" && language != "auto" {
		fmt.Fprintf(&b, "Write the lines in the language with code %q, in its native script.\n", language)
	}
	b.WriteString("\nText:\n")
	b.WriteString(caption)
	return b.String()
}

// degradedAnalysis builds the fallback result used when the backend is
// unreachable: the caption falls back to the input itself when it is short
// enough to display, otherwise to the default caption.
func degradedAnalysis(text string) ContentAnalysis {
	caption := firstLine(text)
	if caption == "" || len(caption) > 120 {
		caption = DefaultCaption
	}
	return ContentAnalysis{Caption: caption}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// stripCodeFences removes a surrounding markdown code fence, which chat
// backends add around JSON despite instructions.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
