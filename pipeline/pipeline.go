package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"eventreel/services/content"
	"eventreel/services/footage"
	"eventreel/services/ocr"
	"eventreel/video"
)

// Orchestrator sequences the reel pipeline: validate → extract text →
// generate caption → extract details → locate footage → render. It is the
// only component holding cross-stage state, and it owns the two temporary
// inputs (flyer, stock clip) until the pipeline finishes either way.
type Orchestrator struct {
	logger   *slog.Logger
	ocr      ocr.Extractor
	content  content.Intelligence
	footage  footage.Locator
	renderer video.Renderer

	accessCode    string
	maxTextLength int
	pollInterval  time.Duration
	waitTimeout   time.Duration

	nowFunc   func() time.Time
	sleepFunc func(context.Context, time.Duration) error
}

type OrchestratorConfig struct {
	AccessCode    string
	MaxTextLength int
	PollInterval  time.Duration
	WaitTimeout   time.Duration
}

func NewOrchestrator(
	logger *slog.Logger,
	extractor ocr.Extractor,
	intelligence content.Intelligence,
	locator footage.Locator,
	renderer video.Renderer,
	cfg OrchestratorConfig,
) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 60 * time.Second
	}
	return &Orchestrator{
		logger:        logger,
		ocr:           extractor,
		content:       intelligence,
		footage:       locator,
		renderer:      renderer,
		accessCode:    cfg.AccessCode,
		maxTextLength: cfg.MaxTextLength,
		pollInterval:  cfg.PollInterval,
		waitTimeout:   cfg.WaitTimeout,
		nowFunc:       time.Now,
		sleepFunc:     sleepContext,
	}
}

// sleepContext sleeps for d but wakes up immediately when the request is
// cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run executes the whole pipeline and returns the rendered output path.
// Temporary inputs are deleted on every exit path; the rendered file is the
// caller's to stream and is never deleted here.
func (o *Orchestrator) Run(ctx context.Context, req GenerationRequest) (string, error) {
	// Validation happens before any external call or side effect. The flyer
	// was saved by the handler before we ran, so a rejected request still has
	// a temp file to delete.
	if err := req.Validate(o.accessCode, o.maxTextLength); err != nil {
		o.removeTemp(req.FlyerPath)
		return "", &StageError{Stage: StageValidating, Err: err}
	}

	var stockPath string
	cleanup := func() {
		o.removeTemp(req.FlyerPath)
		o.removeTemp(stockPath)
	}

	text, err := o.extractText(ctx, req)
	if err != nil {
		cleanup()
		return "", &StageError{Stage: StageExtractingText, Err: err}
	}

	o.logger.Info("Pipeline stage done",
		slog.String("stage", string(StageExtractingText)),
		slog.Int("text_length", len(text)))

	analysis, err := o.content.GenerateCaption(ctx, text, req.Language)
	if err != nil {
		cleanup()
		return "", &StageError{Stage: StageGeneratingCaption, Err: err}
	}

	details, err := o.content.ExtractEventDetails(ctx, analysis.Caption, req.Language)
	if err != nil {
		// An empty overlay is always acceptable; detail extraction never
		// sinks the pipeline.
		o.logger.Warn("Detail extraction failed, continuing with empty overlay",
			slog.String("stage", string(StageExtractingDetails)),
			slog.String("error", err.Error()))
		details = content.ContentDetails{}
	}

	searchTerm := BuildSearchTerm(analysis)
	o.logger.Info("Pipeline stage done",
		slog.String("stage", string(StageExtractingDetails)),
		slog.String("search_term", searchTerm),
		slog.Bool("details_empty", details.IsEmpty()))

	stockPath, err = o.locateFootage(ctx, searchTerm, req)
	if err != nil {
		cleanup()
		return "", &StageError{Stage: StageLocatingFootage, Err: err}
	}

	spec := o.buildRenderSpec(req, details, stockPath)

	outputPath, err := o.renderer.Render(ctx, spec)
	if err != nil {
		cleanup()
		return "", &StageError{Stage: StageRendering, Err: err}
	}

	// Success: temporary inputs go, the rendered file stays for the caller.
	cleanup()

	o.logger.Info("Pipeline succeeded",
		slog.String("output_path", outputPath),
		slog.String("language", req.Language))

	return outputPath, nil
}

// extractText prefers typed text over OCR; the flyer is only OCR'd when no
// typed text was supplied.
func (o *Orchestrator) extractText(ctx context.Context, req GenerationRequest) (string, error) {
	if typed := strings.TrimSpace(req.FreeText); typed != "" {
		return typed, nil
	}
	return o.ocr.ExtractText(ctx, req.FlyerPath)
}

// locateFootage always attempts the queued path first and falls back to the
// synchronous path exactly once. Timeouts are not a distinct user-facing
// failure but are logged distinguishably.
func (o *Orchestrator) locateFootage(ctx context.Context, searchTerm string, req GenerationRequest) (string, error) {
	metadata := map[string]string{
		"language": req.Language,
	}
	if req.FlyerFilename != "" {
		metadata["flyer"] = req.FlyerFilename
	}

	jobID, err := o.footage.DownloadVideoQueued(ctx, searchTerm, metadata)
	if err == nil {
		path, waitErr := o.waitForDownload(ctx, jobID)
		if waitErr == nil {
			return path, nil
		}
		err = waitErr
	}

	// A cancelled request gets no fallback.
	if ctx.Err() != nil {
		return "", err
	}

	o.logger.Warn("Queued footage download failed, falling back to synchronous download",
		slog.String("search_term", searchTerm),
		slog.Bool("timeout", errors.Is(err, ErrWaitTimeout)),
		slog.String("error", err.Error()))

	path, syncErr := o.footage.DownloadVideo(ctx, searchTerm)
	if syncErr != nil {
		return "", fmt.Errorf("queued download failed (%v) and synchronous fallback failed: %w", err, syncErr)
	}
	return path, nil
}

// waitForDownload sleep-polls the job at a fixed interval until a terminal
// status or the overall deadline. On timeout the job is abandoned, not
// cancelled; if it completes later the store reclaims the orphaned clip.
func (o *Orchestrator) waitForDownload(ctx context.Context, jobID string) (string, error) {
	deadline := o.nowFunc().Add(o.waitTimeout)

	for {
		job, err := o.footage.GetDownloadStatus(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("failed to poll download job %s: %w", jobID, err)
		}

		switch job.Status {
		case footage.StatusCompleted:
			return job.VideoPath, nil
		case footage.StatusPermanentlyFailed:
			return "", fmt.Errorf("download job %s permanently failed: %s", jobID, job.Error)
		}

		if o.nowFunc().After(deadline) {
			o.logger.Warn("Abandoning queued download job",
				slog.String("job_id", jobID),
				slog.Bool("timeout", true),
				slog.Duration("waited", o.waitTimeout))
			return "", ErrWaitTimeout
		}

		if err := o.sleepFunc(ctx, o.pollInterval); err != nil {
			return "", err
		}
	}
}

// buildRenderSpec decides the display mode. ShowFlyerOnly suppresses the
// caption and nothing else: the flyer rides along as background whenever one
// was uploaded.
func (o *Orchestrator) buildRenderSpec(req GenerationRequest, details content.ContentDetails, stockPath string) video.RenderSpec {
	spec := video.RenderSpec{
		StockVideoPath: stockPath,
		FlyerPath:      req.FlyerPath,
		Language:       req.Language,
	}
	// PDF flyers feed OCR but cannot be composited by the encoder.
	if strings.HasSuffix(strings.ToLower(req.FlyerPath), ".pdf") {
		spec.FlyerPath = ""
	}
	if !req.ShowFlyerOnly {
		spec.CaptionText = details.FormatOverlay()
	}
	return spec
}

func (o *Orchestrator) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("Failed to remove temporary file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}
