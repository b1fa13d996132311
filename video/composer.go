package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	captionFontSize     = 60
	captionLineHeight   = 90
	captionBottomMargin = 160
)

// Composer renders the final vertical reel with ffmpeg: the stock clip
// conformed to the output spec, an optional flyer overlay, and optional
// burned-in caption lines.
type Composer struct {
	logger    *slog.Logger
	outputDir string
	spec      OutputSpec
	fonts     *FontResolver
}

func NewComposer(logger *slog.Logger, outputDir string, spec OutputSpec, fonts *FontResolver) *Composer {
	return &Composer{
		logger:    logger,
		outputDir: outputDir,
		spec:      spec,
		fonts:     fonts,
	}
}

func (c *Composer) Render(ctx context.Context, spec RenderSpec) (string, error) {
	if _, err := os.Stat(spec.StockVideoPath); err != nil {
		return "", &RenderError{Stage: "input", Err: fmt.Errorf("stock video not found: %w", err)}
	}
	if spec.FlyerPath != "" {
		if _, err := os.Stat(spec.FlyerPath); err != nil {
			return "", &RenderError{Stage: "input", Err: fmt.Errorf("flyer not found: %w", err)}
		}
	}

	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return "", &RenderError{Stage: "output", Err: fmt.Errorf("failed to create output directory: %w", err)}
	}

	stockDuration, err := c.GetVideoDuration(spec.StockVideoPath)
	if err != nil {
		c.logger.Warn("Could not probe stock clip duration, assuming it is long enough",
			slog.String("path", spec.StockVideoPath),
			slog.String("error", err.Error()))
		stockDuration = c.spec.Duration
	}

	filename := fmt.Sprintf("reel_%s_%s.%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
		c.spec.Format)
	outputPath := filepath.Join(c.outputDir, filename)

	args := c.buildArgs(spec, stockDuration, outputPath)

	c.logger.Debug("Executing FFmpeg command", slog.Any("args", args))

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", &RenderError{Stage: "encode", Err: fmt.Errorf("failed to get stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return "", &RenderError{Stage: "encode", Err: fmt.Errorf("failed to start FFmpeg: %w", err)}
	}

	stderrOutput, _ := io.ReadAll(stderr)

	if err := cmd.Wait(); err != nil {
		os.Remove(outputPath)
		c.logger.Error("FFmpeg execution failed",
			slog.String("error", err.Error()),
			slog.String("stderr", string(stderrOutput)))
		return "", &RenderError{Stage: "encode", Err: fmt.Errorf("FFmpeg execution failed: %w", err)}
	}

	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		return "", &RenderError{Stage: "encode", Err: fmt.Errorf("FFmpeg did not create an output file")}
	}

	c.logger.Info("Rendered reel",
		slog.String("output_path", outputPath),
		slog.Bool("flyer", spec.FlyerPath != ""),
		slog.Int("caption_lines", len(SplitCaptionLines(spec.CaptionText))))

	return outputPath, nil
}

// buildArgs assembles the full ffmpeg argument list for one render.
func (c *Composer) buildArgs(spec RenderSpec, stockDuration float64, outputPath string) []string {
	args := []string{}

	// Short clips loop to cover the fixed output duration.
	if stockDuration > 0 && stockDuration < c.spec.Duration {
		args = append(args, "-stream_loop", "-1")
	}
	args = append(args, "-i", spec.StockVideoPath)

	hasFlyer := spec.FlyerPath != ""
	if hasFlyer {
		args = append(args, "-i", spec.FlyerPath)
	}

	filterComplex := c.buildFilterComplex(spec, hasFlyer)

	args = append(args, "-filter_complex", filterComplex, "-map", "[vout]")

	args = append(args,
		"-t", strconv.FormatFloat(c.spec.Duration, 'f', -1, 64),
		"-r", strconv.Itoa(c.spec.FPS),
		"-an",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-y", outputPath)

	return args
}

func (c *Composer) buildFilterComplex(spec RenderSpec, hasFlyer bool) string {
	w, h := c.spec.Width, c.spec.Height

	// Conform the stock clip: cover-scale, center-crop, fixed fps. Blur it
	// down when it only serves as backdrop for the flyer.
	base := fmt.Sprintf("[0:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d,format=yuv420p",
		w, h, w, h, c.spec.FPS)
	if hasFlyer {
		base += ",boxblur=20:2"
	}

	filterComplex := base + "[bg]"
	lastLabel := "bg"

	if hasFlyer {
		flyerWidth := w * 17 / 20
		filterComplex += fmt.Sprintf(";[1:v]scale=%d:-2[flyer]", flyerWidth)
		filterComplex += ";[bg][flyer]overlay=(W-w)/2:(H-h)/2[withflyer]"
		lastLabel = "withflyer"
	}

	lines := SplitCaptionLines(spec.CaptionText)
	if len(lines) > 0 {
		fontFile := c.fonts.FontFor(spec.Language)
		chain := ""
		for i, line := range lines {
			if chain != "" {
				chain += ","
			}
			// Lines stack upward from a fixed bottom margin, one drawtext
			// per caller-supplied line.
			y := h - captionBottomMargin - (len(lines)-i)*captionLineHeight
			chain += fmt.Sprintf(
				"drawtext=fontfile='%s':text='%s':fontsize=%d:fontcolor=white:borderw=2:bordercolor=black@0.6:x=(w-text_w)/2:y=%d",
				EscapeDrawtext(fontFile), EscapeDrawtext(line), captionFontSize, y)
		}
		filterComplex += fmt.Sprintf(";[%s]%s[vout]", lastLabel, chain)
	} else {
		filterComplex += fmt.Sprintf(";[%s]null[vout]", lastLabel)
	}

	return filterComplex
}

// GetVideoDuration probes a clip's duration in seconds with ffprobe.
func (c *Composer) GetVideoDuration(filePath string) (float64, error) {
	cmd := exec.Command("ffprobe", "-i", filePath, "-show_entries", "format=duration", "-v", "quiet", "-of", "csv=p=0")
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return duration, nil
}
