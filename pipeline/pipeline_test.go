package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"eventreel/services/content"
	"eventreel/services/footage"
	"eventreel/video"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeIntelligence struct {
	analysis    content.ContentAnalysis
	analysisErr error
	details     content.ContentDetails
	detailsErr  error

	captionCalls int
	detailCalls  int
}

func (f *fakeIntelligence) GenerateCaption(ctx context.Context, text, language string) (content.ContentAnalysis, error) {
	f.captionCalls++
	return f.analysis, f.analysisErr
}

func (f *fakeIntelligence) ExtractEventDetails(ctx context.Context, caption, language string) (content.ContentDetails, error) {
	f.detailCalls++
	return f.details, f.detailsErr
}

type fakeLocator struct {
	queuedErr error
	statuses  []*footage.DownloadJob
	syncPath  string
	syncErr   error

	queuedCalls int
	pollCalls   int
	syncCalls   int
}

func (f *fakeLocator) DownloadVideoQueued(ctx context.Context, searchTerm string, metadata map[string]string) (string, error) {
	f.queuedCalls++
	if f.queuedErr != nil {
		return "", f.queuedErr
	}
	return "job-1", nil
}

func (f *fakeLocator) GetDownloadStatus(ctx context.Context, jobID string) (*footage.DownloadJob, error) {
	i := f.pollCalls
	f.pollCalls++
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeLocator) DownloadVideo(ctx context.Context, searchTerm string) (string, error) {
	f.syncCalls++
	if f.syncErr != nil {
		return "", f.syncErr
	}
	return f.syncPath, nil
}

type fakeRenderer struct {
	outputPath string
	err        error
	specs      []video.RenderSpec
}

func (f *fakeRenderer) Render(ctx context.Context, spec video.RenderSpec) (string, error) {
	f.specs = append(f.specs, spec)
	if f.err != nil {
		return "", f.err
	}
	return f.outputPath, nil
}

type fixture struct {
	orch      *Orchestrator
	extractor *fakeExtractor
	intel     *fakeIntelligence
	locator   *fakeLocator
	renderer  *fakeRenderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	f := &fixture{
		extractor: &fakeExtractor{text: "Summer rooftop party, Nov 21, 7pm, DJ set"},
		intel: &fakeIntelligence{
			analysis: content.ContentAnalysis{
				Caption:       "Rooftop party under the stars",
				VideoKeywords: []string{"rooftop", "party", "night"},
			},
			details: content.ContentDetails{Line1: "Rooftop Party", Line2: "Nov 21", Line3: "7pm"},
		},
		locator:  &fakeLocator{},
		renderer: &fakeRenderer{outputPath: "out/reel.mp4"},
	}
	f.orch = NewOrchestrator(logger, f.extractor, f.intel, f.locator, f.renderer, OrchestratorConfig{})
	f.orch.sleepFunc = func(context.Context, time.Duration) error { return nil }
	return f
}

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return path
}

func completedJob(path string) *footage.DownloadJob {
	return &footage.DownloadJob{ID: "job-1", Status: footage.StatusCompleted, VideoPath: path}
}

func TestRunValidatesBeforeAnyExternalCall(t *testing.T) {
	tests := []struct {
		name string
		req  GenerationRequest
		want error
	}{
		{
			name: "missing both inputs",
			req:  GenerationRequest{},
			want: ErrMissingInput,
		},
		{
			name: "access code mismatch",
			req:  GenerationRequest{FreeText: "party", AccessCode: "wrong"},
			want: ErrAccessCodeMismatch,
		},
		{
			name: "text too long",
			req:  GenerationRequest{FreeText: string(make([]byte, 200)), AccessCode: "secret"},
			want: ErrTextTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.orch.accessCode = "secret"
			f.orch.maxTextLength = 100

			_, err := f.orch.Run(context.Background(), tt.req)

			var stageErr *StageError
			if !errors.As(err, &stageErr) || stageErr.Stage != StageValidating {
				t.Fatalf("Expected validating stage error, got %v", err)
			}
			if !stageErr.IsUserError() {
				t.Error("Validation failures are user errors")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Error = %v, want %v", err, tt.want)
			}
			if f.extractor.calls+f.intel.captionCalls+f.locator.queuedCalls+f.locator.syncCalls+len(f.renderer.specs) != 0 {
				t.Error("Validation failure must not touch any external service")
			}
		})
	}
}

func TestRunValidationFailureCleansUpFlyer(t *testing.T) {
	f := newFixture(t)
	f.orch.accessCode = "secret"
	flyer := tempFile(t, "flyer.png")

	_, err := f.orch.Run(context.Background(), GenerationRequest{
		FlyerPath:  flyer,
		FreeText:   "party",
		AccessCode: "wrong",
	})

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageValidating {
		t.Fatalf("Expected validating stage error, got %v", err)
	}

	// The handler saved the flyer before the request was rejected.
	if _, err := os.Stat(flyer); !os.IsNotExist(err) {
		t.Errorf("Temp flyer %s not cleaned up on rejected request", flyer)
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Run(context.Background(), GenerationRequest{FreeText: "party", Language: "not a language"})

	var langErr *UnsupportedLanguageError
	if !errors.As(err, &langErr) {
		t.Fatalf("Expected UnsupportedLanguageError, got %v", err)
	}
}

func TestRunHappyPathQueued(t *testing.T) {
	f := newFixture(t)
	flyer := tempFile(t, "flyer.png")
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{
		{ID: "job-1", Status: footage.StatusInProgress},
		completedJob(stock),
	}

	out, err := f.orch.Run(context.Background(), GenerationRequest{
		FlyerPath: flyer,
		FreeText:  "Summer rooftop party, Nov 21, 7pm, DJ set",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "out/reel.mp4" {
		t.Errorf("Output = %q", out)
	}

	if f.locator.queuedCalls != 1 {
		t.Errorf("Queued calls = %d, want 1", f.locator.queuedCalls)
	}
	if f.locator.syncCalls != 0 {
		t.Errorf("Sync fallback used on healthy queued path: %d calls", f.locator.syncCalls)
	}

	if len(f.renderer.specs) != 1 {
		t.Fatalf("Renderer called %d times", len(f.renderer.specs))
	}
	spec := f.renderer.specs[0]
	if spec.CaptionText != "Rooftop Party\nNov 21\n7pm" {
		t.Errorf("CaptionText = %q", spec.CaptionText)
	}
	if spec.FlyerPath != flyer {
		t.Errorf("FlyerPath = %q, flyer must ride along as background", spec.FlyerPath)
	}
	if spec.StockVideoPath != stock {
		t.Errorf("StockVideoPath = %q", spec.StockVideoPath)
	}

	// Temporary inputs are gone after success.
	for _, p := range []string{flyer, stock} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Temp file %s not cleaned up", p)
		}
	}
}

func TestRunTypedTextSkipsOCR(t *testing.T) {
	f := newFixture(t)
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{completedJob(stock)}

	_, err := f.orch.Run(context.Background(), GenerationRequest{FreeText: "typed text wins"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.extractor.calls != 0 {
		t.Errorf("OCR called %d times despite typed text", f.extractor.calls)
	}
}

func TestRunFlyerOnlySuppressesCaptionOnly(t *testing.T) {
	f := newFixture(t)
	flyer := tempFile(t, "flyer.png")
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{completedJob(stock)}

	_, err := f.orch.Run(context.Background(), GenerationRequest{
		FlyerPath:     flyer,
		FreeText:      "party details",
		ShowFlyerOnly: true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	spec := f.renderer.specs[0]
	if spec.CaptionText != "" {
		t.Errorf("CaptionText = %q, flyer-only must suppress the caption", spec.CaptionText)
	}
	if spec.FlyerPath != flyer {
		t.Errorf("FlyerPath = %q, the flyer itself stays", spec.FlyerPath)
	}
}

func TestRunDetailExtractionFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{completedJob(stock)}
	f.intel.detailsErr = errors.New("backend exploded")

	out, err := f.orch.Run(context.Background(), GenerationRequest{FreeText: "party"})
	if err != nil {
		t.Fatalf("Detail extraction failure must not sink the pipeline: %v", err)
	}
	if out == "" {
		t.Error("Expected an output path")
	}
	if spec := f.renderer.specs[0]; spec.CaptionText != "" {
		t.Errorf("CaptionText = %q, want empty overlay", spec.CaptionText)
	}
}

func TestRunQueuedTimeoutFallsBackToSync(t *testing.T) {
	f := newFixture(t)
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{
		{ID: "job-1", Status: footage.StatusInProgress},
	}
	f.locator.syncPath = stock

	// The clock jumps past the wait deadline after the first poll.
	t0 := time.Now()
	calls := 0
	f.orch.nowFunc = func() time.Time {
		calls++
		if calls == 1 {
			return t0
		}
		return t0.Add(2 * time.Minute)
	}

	out, err := f.orch.Run(context.Background(), GenerationRequest{FreeText: "party"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "out/reel.mp4" {
		t.Errorf("Output = %q", out)
	}
	if f.locator.syncCalls != 1 {
		t.Errorf("Sync calls = %d, want exactly one fallback", f.locator.syncCalls)
	}
}

func TestRunQueuedPermanentFailureFallsBackToSync(t *testing.T) {
	f := newFixture(t)
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{
		{ID: "job-1", Status: footage.StatusPermanentlyFailed, Error: "all download attempts exhausted"},
	}
	f.locator.syncPath = stock

	_, err := f.orch.Run(context.Background(), GenerationRequest{FreeText: "party"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if f.locator.syncCalls != 1 {
		t.Errorf("Sync calls = %d, want 1", f.locator.syncCalls)
	}
}

func TestRunCancelledWhilePolling(t *testing.T) {
	f := newFixture(t)
	f.orch.sleepFunc = sleepContext
	f.orch.pollInterval = time.Hour
	f.locator.statuses = []*footage.DownloadJob{
		{ID: "job-1", Status: footage.StatusInProgress},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Run(ctx, GenerationRequest{FreeText: "party"})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after cancellation")
	}
	if f.locator.syncCalls != 0 {
		t.Error("Cancelled request must not fall back to synchronous download")
	}
}

func TestRunBothFootagePathsFail(t *testing.T) {
	f := newFixture(t)
	flyer := tempFile(t, "flyer.png")
	f.locator.statuses = []*footage.DownloadJob{
		{ID: "job-1", Status: footage.StatusPermanentlyFailed, Error: "no results"},
	}
	f.locator.syncErr = errors.New("no results")

	_, err := f.orch.Run(context.Background(), GenerationRequest{FlyerPath: flyer, FreeText: "party"})

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageLocatingFootage {
		t.Fatalf("Expected locating_footage stage error, got %v", err)
	}
	if stageErr.IsUserError() {
		t.Error("Footage failure is not a user error")
	}
	if len(f.renderer.specs) != 0 {
		t.Error("Renderer must not run without footage")
	}

	// The temp flyer is cleaned up on failure too.
	if _, err := os.Stat(flyer); !os.IsNotExist(err) {
		t.Errorf("Temp flyer %s not cleaned up on failure", flyer)
	}
}

func TestRunRenderFailureCleansUp(t *testing.T) {
	f := newFixture(t)
	flyer := tempFile(t, "flyer.png")
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{completedJob(stock)}
	f.renderer.err = errors.New("encoder crashed")

	_, err := f.orch.Run(context.Background(), GenerationRequest{FlyerPath: flyer, FreeText: "party"})

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageRendering {
		t.Fatalf("Expected rendering stage error, got %v", err)
	}

	for _, p := range []string{flyer, stock} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("Temp file %s not cleaned up on render failure", p)
		}
	}
}

func TestRunPDFFlyerIsNotComposited(t *testing.T) {
	f := newFixture(t)
	flyer := tempFile(t, "flyer.pdf")
	stock := tempFile(t, "stock.mp4")
	f.locator.statuses = []*footage.DownloadJob{completedJob(stock)}

	_, err := f.orch.Run(context.Background(), GenerationRequest{FlyerPath: flyer, FreeText: "party"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if spec := f.renderer.specs[0]; spec.FlyerPath != "" {
		t.Errorf("FlyerPath = %q, PDF flyers must not reach the encoder", spec.FlyerPath)
	}
}
