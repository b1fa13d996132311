package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"eventreel/pipeline"
	"eventreel/services/footage"
)

// ReelGenerator is the slice of the orchestrator the handler needs; tests
// substitute a fake.
type ReelGenerator interface {
	Run(ctx context.Context, req pipeline.GenerationRequest) (string, error)
}

var allowedFlyerExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
}

type ReelHandler struct {
	generator      ReelGenerator
	jobs           footage.JobStore
	logger         *slog.Logger
	tempDir        string
	maxUploadBytes int64
}

func NewReelHandler(generator ReelGenerator, jobs footage.JobStore, tempDir string, maxUploadBytes int64, logger *slog.Logger) *ReelHandler {
	return &ReelHandler{
		generator:      generator,
		jobs:           jobs,
		logger:         logger,
		tempDir:        tempDir,
		maxUploadBytes: maxUploadBytes,
	}
}

// GenerateReel accepts a multipart form with an optional "flyer" file and
// optional "text" field, runs the pipeline, and streams the finished video
// back as an attachment.
func (h *ReelHandler) GenerateReel(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received reel generation request")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	req := pipeline.GenerationRequest{
		FreeText:      r.FormValue("event_text"),
		ShowFlyerOnly: r.FormValue("show_flyer") == "1" || strings.EqualFold(r.FormValue("show_flyer"), "true"),
		Language:      r.FormValue("language"),
		AccessCode:    r.FormValue("access_code"),
	}

	file, header, err := r.FormFile("flyer_image")
	if err == nil {
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedFlyerExts[ext] {
			writeJSONError(w, "Unsupported flyer file type", http.StatusBadRequest)
			return
		}

		flyerPath, saveErr := h.saveFlyer(file, ext)
		if saveErr != nil {
			h.logger.Error("Failed to save uploaded flyer",
				slog.String("filename", header.Filename),
				slog.String("error", saveErr.Error()))
			writeJSONError(w, "Failed to store uploaded file", http.StatusInternalServerError)
			return
		}
		req.FlyerPath = flyerPath
		req.FlyerFilename = header.Filename
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeJSONError(w, "Failed to read flyer from form", http.StatusBadRequest)
		return
	}

	outputPath, err := h.generator.Run(r.Context(), req)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.IsUserError() {
			h.logger.Info("Rejected reel request",
				slog.String("error", err.Error()))
			writeJSONError(w, stageErr.Err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Reel generation failed",
			slog.String("error", err.Error()))
		writeJSONError(w, "Reel generation failed, please try again later", http.StatusInternalServerError)
		return
	}

	h.streamVideo(w, outputPath)
}

func (h *ReelHandler) saveFlyer(src io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	path := filepath.Join(h.tempDir, fmt.Sprintf("flyer_%s%s", uuid.New().String(), ext))
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

func (h *ReelHandler) streamVideo(w http.ResponseWriter, outputPath string) {
	f, err := os.Open(outputPath)
	if err != nil {
		h.logger.Error("Finished video is missing",
			slog.String("path", outputPath),
			slog.String("error", err.Error()))
		writeJSONError(w, "Reel generation failed, please try again later", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	downloadName := fmt.Sprintf("event-reel-%s%s",
		time.Now().Format("20060102-150405"), filepath.Ext(outputPath))

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	}

	if _, err := io.Copy(w, f); err != nil {
		h.logger.Error("Failed to stream video response",
			slog.String("path", outputPath),
			slog.String("error", err.Error()))
	}
}

// GetDownloadJob exposes the footage job registry for polling clients.
func (h *ReelHandler) GetDownloadJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := vars["id"]

	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, footage.ErrJobNotFound) {
			writeJSONError(w, "Download job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to read download job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		writeJSONError(w, "Failed to read download job", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"id":       job.ID,
		"status":   string(job.Status),
		"attempts": job.Attempts,
	}
	if job.Error != "" {
		response["error"] = job.Error
	}
	if job.Status == footage.StatusCompleted {
		response["video_path"] = job.VideoPath
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to write job response",
			slog.String("error", err.Error()))
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
