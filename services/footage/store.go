package footage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

var ErrJobNotFound = errors.New("download job not found")

// JobStore is the download-job registry. It must support concurrent reads
// from polling requests and concurrent writes from the worker. Whether it
// survives process restarts is an implementation choice; the pipeline only
// depends on this interface.
type JobStore interface {
	Create(ctx context.Context, job *DownloadJob) error
	Get(ctx context.Context, id string) (*DownloadJob, error)
	Update(ctx context.Context, job *DownloadJob) error
	MarkRetrieved(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, retention time.Duration) (int, error)
}

// MemoryJobStore keeps jobs in a mutex-guarded map. Jobs are removed once a
// caller has retrieved a terminal status, or after the retention window when
// nobody ever asked. Removing an unretrieved completed job also reclaims its
// orphaned video file.
type MemoryJobStore struct {
	mu     sync.RWMutex
	jobs   map[string]*DownloadJob
	logger *slog.Logger

	stopCleanup chan struct{}
	nowFunc     func() time.Time
}

func NewMemoryJobStore(logger *slog.Logger) *MemoryJobStore {
	return &MemoryJobStore{
		jobs:    make(map[string]*DownloadJob),
		logger:  logger,
		nowFunc: time.Now,
	}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *DownloadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id string) (*DownloadJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *MemoryJobStore) Update(ctx context.Context, job *DownloadJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[job.ID]
	if !ok {
		return ErrJobNotFound
	}

	// No regression from a terminal state.
	if existing.Status.Terminal() && existing.Status != job.Status {
		s.logger.Warn("Ignoring status regression on terminal job",
			slog.String("job_id", job.ID),
			slog.String("current", string(existing.Status)),
			slog.String("attempted", string(job.Status)))
		return nil
	}

	updated := job.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.RetrievedAt = existing.RetrievedAt
	updated.UpdatedAt = s.nowFunc()
	s.jobs[job.ID] = updated
	return nil
}

func (s *MemoryJobStore) MarkRetrieved(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if job.RetrievedAt.IsZero() {
		job.RetrievedAt = s.nowFunc()
	}
	return nil
}

// DeleteExpired removes jobs whose terminal status was retrieved, and jobs
// older than the retention window regardless. An unretrieved completed job
// leaves an orphaned clip behind; its file is deleted along with the job.
func (s *MemoryJobStore) DeleteExpired(ctx context.Context, retention time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFunc()
	removed := 0
	for id, job := range s.jobs {
		retrieved := !job.RetrievedAt.IsZero() && now.Sub(job.RetrievedAt) > time.Minute
		expired := now.Sub(job.CreatedAt) > retention

		if !retrieved && !expired {
			continue
		}
		if !job.Status.Terminal() && !expired {
			continue
		}

		if job.Status == StatusCompleted && job.RetrievedAt.IsZero() && job.VideoPath != "" {
			reclaimOrphanedClip(s.logger, id, job.VideoPath)
		}

		delete(s.jobs, id)
		removed++
	}
	return removed, nil
}

// StartCleanup runs DeleteExpired on a fixed interval until StopCleanup.
func (s *MemoryJobStore) StartCleanup(retention, interval time.Duration) {
	s.stopCleanup = make(chan struct{})
	ticker := time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				if n, err := s.DeleteExpired(context.Background(), retention); err == nil && n > 0 {
					s.logger.Info("Expired download jobs removed", slog.Int("count", n))
				}
			case <-s.stopCleanup:
				ticker.Stop()
				return
			}
		}
	}()
}

func (s *MemoryJobStore) StopCleanup() {
	if s.stopCleanup != nil {
		close(s.stopCleanup)
	}
}

// reclaimOrphanedClip deletes the clip file of a completed job that nobody
// ever retrieved. Both stores call this when they drop such a job.
func reclaimOrphanedClip(logger *slog.Logger, jobID, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to reclaim orphaned clip",
			slog.String("job_id", jobID),
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	logger.Info("Reclaimed orphaned clip",
		slog.String("job_id", jobID),
		slog.String("path", path))
}
