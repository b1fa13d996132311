package pipeline

import (
	"strings"

	"golang.org/x/text/language"
)

// GenerationRequest is the ephemeral per-invocation input. FlyerPath points
// at a temp file the handler already saved; the orchestrator owns deleting
// it once the pipeline finishes either way.
type GenerationRequest struct {
	FlyerPath     string
	FlyerFilename string
	FreeText      string
	ShowFlyerOnly bool
	Language      string
	AccessCode    string
}

// Validate enforces the request invariant before any side effect: at least
// one of flyer or text, a parseable language, and a matching access code
// when the service has one configured.
func (r *GenerationRequest) Validate(configuredAccessCode string, maxTextLength int) error {
	if r.FlyerPath == "" && strings.TrimSpace(r.FreeText) == "" {
		return ErrMissingInput
	}

	if maxTextLength > 0 && len(r.FreeText) > maxTextLength {
		return ErrTextTooLong
	}

	if configuredAccessCode != "" && r.AccessCode != configuredAccessCode {
		return ErrAccessCodeMismatch
	}

	if r.Language == "" {
		r.Language = "auto"
	}
	if r.Language != "auto" {
		if _, err := language.Parse(r.Language); err != nil {
			return &UnsupportedLanguageError{Code: r.Language}
		}
	}

	return nil
}

type UnsupportedLanguageError struct {
	Code string
}

func (e *UnsupportedLanguageError) Error() string {
	return "unsupported language code: " + e.Code
}
