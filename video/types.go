package video

import "context"

// RenderSpec is the composer input. Exactly one display mode applies:
// flyer without caption, caption (with or without flyer background), or
// plain stock conformed to the output geometry. The orchestrator decides
// the mode before constructing a RenderSpec.
type RenderSpec struct {
	StockVideoPath string
	FlyerPath      string
	CaptionText    string
	Language       string
}

// Renderer produces the final fixed-format vertical video.
type Renderer interface {
	Render(ctx context.Context, spec RenderSpec) (string, error)
}

// OutputSpec is the fixed geometry every rendered reel conforms to.
type OutputSpec struct {
	Width    int
	Height   int
	FPS      int
	Duration float64
	Format   string
}

// RenderError tags encoder failures with the stage they occurred in.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
