package video

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// OutputCleanupService removes rendered reels after the retention window.
// The pipeline hands output files to callers and never deletes them itself,
// so disk reclamation happens here.
type OutputCleanupService struct {
	logger    *slog.Logger
	outputDir string
	retention time.Duration
}

func NewOutputCleanupService(logger *slog.Logger, outputDir string, retention time.Duration) *OutputCleanupService {
	return &OutputCleanupService{
		logger:    logger,
		outputDir: outputDir,
		retention: retention,
	}
}

// StartCleanupSchedule begins regular cleanup of old rendered files.
func (s *OutputCleanupService) StartCleanupSchedule(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		for range ticker.C {
			s.PerformCleanup()
		}
	}()

	s.logger.Info("Output cleanup service started",
		slog.Duration("retention", s.retention),
		slog.Duration("interval", interval))
}

// PerformCleanup removes rendered files older than the retention window.
func (s *OutputCleanupService) PerformCleanup() {
	cutoffTime := time.Now().Add(-s.retention)

	err := filepath.Walk(s.outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".mp4" && ext != ".mov" && ext != ".webm" {
			return nil
		}

		if info.ModTime().Before(cutoffTime) {
			s.logger.Info("Removing old rendered file",
				slog.String("path", path),
				slog.Time("modified_time", info.ModTime()),
				slog.Time("cutoff_time", cutoffTime))

			if err := os.Remove(path); err != nil {
				s.logger.Error("Failed to remove rendered file",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}

		return nil
	})

	if err != nil && !os.IsNotExist(err) {
		s.logger.Error("Error during output cleanup",
			slog.String("error", err.Error()))
	}
}
