package footage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// FailureNotifier is told about jobs that exhausted every retry. Wired to an
// SMS alert in production; nil disables it.
type FailureNotifier interface {
	NotifyJobFailure(jobID, searchTerm, reason string)
}

// Locator is the footage contract the orchestrator consumes: a synchronous
// path plus a queued path with status polling.
type Locator interface {
	Downloader
	DownloadVideoQueued(ctx context.Context, searchTerm string, metadata map[string]string) (string, error)
	GetDownloadStatus(ctx context.Context, jobID string) (*DownloadJob, error)
}

type ServiceConfig struct {
	Tries          int
	Backoff        time.Duration
	RetryUntil     time.Duration
	AttemptTimeout time.Duration
}

// Service runs queued downloads on background goroutines and exposes both
// modes of the Locator contract.
type Service struct {
	downloader Downloader
	store      JobStore
	logger     *slog.Logger
	notifier   FailureNotifier
	cfg        ServiceConfig

	nowFunc   func() time.Time
	sleepFunc func(time.Duration)
}

func NewService(downloader Downloader, store JobStore, logger *slog.Logger, notifier FailureNotifier, cfg ServiceConfig) *Service {
	if cfg.Tries <= 0 {
		cfg.Tries = 3
	}
	if cfg.RetryUntil <= 0 {
		cfg.RetryUntil = 30 * time.Minute
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 2 * time.Minute
	}
	return &Service{
		downloader: downloader,
		store:      store,
		logger:     logger,
		notifier:   notifier,
		cfg:        cfg,
		nowFunc:    time.Now,
		sleepFunc:  time.Sleep,
	}
}

// DownloadVideo is the synchronous fallback path.
func (s *Service) DownloadVideo(ctx context.Context, searchTerm string) (string, error) {
	return s.downloader.DownloadVideo(ctx, searchTerm)
}

// DownloadVideoQueued registers a Pending job and returns immediately; the
// worker goroutine drives it to a terminal status.
func (s *Service) DownloadVideoQueued(ctx context.Context, searchTerm string, metadata map[string]string) (string, error) {
	job := &DownloadJob{
		ID:         uuid.NewString(),
		SearchTerm: searchTerm,
		Metadata:   metadata,
		Status:     StatusPending,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return "", fmt.Errorf("failed to enqueue download job: %w", err)
	}

	s.logger.Info("Enqueued footage download",
		slog.String("job_id", job.ID),
		slog.String("search_term", searchTerm))

	go s.runJob(job.ID, searchTerm)

	return job.ID, nil
}

// GetDownloadStatus returns a copy of the job. Reads are idempotent: polling
// a completed job repeatedly returns the same path and mutates nothing but
// the retrieval mark used by the store's own GC.
func (s *Service) GetDownloadStatus(ctx context.Context, jobID string) (*DownloadJob, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		if err := s.store.MarkRetrieved(ctx, jobID); err != nil {
			s.logger.Warn("Failed to mark job retrieved",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
		}
	}
	return job, nil
}

// runJob attempts search+download up to Tries times with fixed backoff. A
// transient failure leaves the job in Failed but still retryable; exhausting
// the attempts, or the retry-until window elapsing, forces PermanentlyFailed.
func (s *Service) runJob(jobID, searchTerm string) {
	deadline := s.nowFunc().Add(s.cfg.RetryUntil)

	for attempt := 1; attempt <= s.cfg.Tries; attempt++ {
		if s.nowFunc().After(deadline) {
			s.finishPermanent(jobID, searchTerm, attempt-1, "retry window elapsed")
			return
		}

		s.updateJob(jobID, func(job *DownloadJob) {
			job.Status = StatusInProgress
			job.Attempts = attempt
		})

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AttemptTimeout)
		path, err := s.downloader.DownloadVideo(ctx, searchTerm)
		cancel()

		if err == nil {
			s.updateJob(jobID, func(job *DownloadJob) {
				job.Status = StatusCompleted
				job.VideoPath = path
				job.Error = ""
			})
			s.logger.Info("Footage download job completed",
				slog.String("job_id", jobID),
				slog.Int("attempts", attempt),
				slog.String("path", path))
			return
		}

		s.logger.Warn("Footage download attempt failed",
			slog.String("job_id", jobID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.cfg.Tries),
			slog.Bool("timeout", ctx.Err() != nil),
			slog.String("error", err.Error()))

		s.updateJob(jobID, func(job *DownloadJob) {
			job.Status = StatusFailed
			job.Attempts = attempt
			job.Error = err.Error()
		})

		if attempt < s.cfg.Tries {
			if s.nowFunc().Add(s.cfg.Backoff).After(deadline) {
				s.finishPermanent(jobID, searchTerm, attempt, "retry window elapsed")
				return
			}
			s.sleepFunc(s.cfg.Backoff)
		}
	}

	s.finishPermanent(jobID, searchTerm, s.cfg.Tries, "all download attempts exhausted")
}

func (s *Service) finishPermanent(jobID, searchTerm string, attempts int, reason string) {
	s.updateJob(jobID, func(job *DownloadJob) {
		job.Status = StatusPermanentlyFailed
		if attempts > job.Attempts {
			job.Attempts = attempts
		}
		if job.Error == "" {
			job.Error = reason
		} else {
			job.Error = fmt.Sprintf("%s: %s", reason, job.Error)
		}
	})

	s.logger.Error("Footage download job permanently failed",
		slog.String("job_id", jobID),
		slog.String("search_term", searchTerm),
		slog.Int("attempts", attempts),
		slog.String("reason", reason))

	if s.notifier != nil {
		s.notifier.NotifyJobFailure(jobID, searchTerm, reason)
	}
}

func (s *Service) updateJob(jobID string, mutate func(*DownloadJob)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		s.logger.Error("Failed to load download job for update",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		return
	}

	mutate(job)

	if err := s.store.Update(ctx, job); err != nil {
		s.logger.Error("Failed to update download job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}
