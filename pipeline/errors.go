package pipeline

import (
	"errors"
	"fmt"
)

// Stage identifies where in the pipeline an error occurred. Every stage
// error reaches the caller as a StageError so the handler can map them to a
// single user-facing message while logs keep the detail.
type Stage string

const (
	StageValidating        Stage = "validating"
	StageExtractingText    Stage = "extracting_text"
	StageGeneratingCaption Stage = "generating_caption"
	StageExtractingDetails Stage = "extracting_details"
	StageLocatingFootage   Stage = "locating_footage"
	StageRendering         Stage = "rendering"
)

type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// IsUserError reports whether the failure was caused by bad input rather
// than a backend, i.e. whether the handler should answer 4xx.
func (e *StageError) IsUserError() bool {
	return e.Stage == StageValidating
}

var (
	ErrMissingInput       = errors.New("either a flyer image or event text is required")
	ErrAccessCodeMismatch = errors.New("access code does not match")
	ErrTextTooLong        = errors.New("event text exceeds the permitted length")
	ErrWaitTimeout        = errors.New("timed out waiting for queued download")
)
