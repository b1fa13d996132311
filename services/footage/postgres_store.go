package footage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresJobStore is the restart-surviving JobStore. It is selected by
// configuring DATABASE_URL; the pipeline code is identical either way.
type PostgresJobStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresJobStore(pool *pgxpool.Pool, logger *slog.Logger) *PostgresJobStore {
	return &PostgresJobStore{pool: pool, logger: logger}
}

func (s *PostgresJobStore) Create(ctx context.Context, job *DownloadJob) error {
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal job metadata: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO download_jobs
			(id, search_term, metadata, status, video_path, error, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`,
		job.ID, job.SearchTerm, metadata, string(job.Status), job.VideoPath, job.Error, job.Attempts)
	if err != nil {
		return fmt.Errorf("failed to insert download job: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (*DownloadJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, search_term, metadata, status, video_path, error, attempts,
		       created_at, updated_at, retrieved_at
		FROM download_jobs WHERE id = $1`, id)

	var job DownloadJob
	var metadata []byte
	var status string
	var retrievedAt *time.Time
	err := row.Scan(&job.ID, &job.SearchTerm, &metadata, &status, &job.VideoPath,
		&job.Error, &job.Attempts, &job.CreatedAt, &job.UpdatedAt, &retrievedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read download job: %w", err)
	}

	job.Status = JobStatus(status)
	if retrievedAt != nil {
		job.RetrievedAt = *retrievedAt
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &job.Metadata); err != nil {
			s.logger.Warn("Discarding unreadable job metadata",
				slog.String("job_id", id),
				slog.String("error", err.Error()))
		}
	}
	return &job, nil
}

func (s *PostgresJobStore) Update(ctx context.Context, job *DownloadJob) error {
	// The status guard makes terminal states sticky without a read-modify-write
	// race between the worker and concurrent pollers.
	tag, err := s.pool.Exec(ctx, `
		UPDATE download_jobs
		SET status = $2, video_path = $3, error = $4, attempts = $5, updated_at = now()
		WHERE id = $1
		  AND (status NOT IN ('completed', 'permanently_failed') OR status = $2)`,
		job.ID, string(job.Status), job.VideoPath, job.Error, job.Attempts)
	if err != nil {
		return fmt.Errorf("failed to update download job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, getErr := s.Get(ctx, job.ID)
		if getErr != nil {
			return ErrJobNotFound
		}
		s.logger.Warn("Ignoring status regression on terminal job",
			slog.String("job_id", job.ID),
			slog.String("current", string(existing.Status)),
			slog.String("attempted", string(job.Status)))
	}
	return nil
}

func (s *PostgresJobStore) MarkRetrieved(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE download_jobs SET retrieved_at = now()
		WHERE id = $1 AND retrieved_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark download job retrieved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either already marked or missing; only the latter is an error.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
	}
	return nil
}

// DeleteExpired drops expired rows and, like the in-memory store, reclaims
// the clip file of any completed job that was never retrieved.
func (s *PostgresJobStore) DeleteExpired(ctx context.Context, retention time.Duration) (int, error) {
	rows, err := s.pool.Query(ctx, `
		DELETE FROM download_jobs
		WHERE (retrieved_at IS NOT NULL AND retrieved_at < now() - interval '1 minute')
		   OR created_at < now() - $1::interval
		RETURNING id, status, video_path, retrieved_at`,
		fmt.Sprintf("%d seconds", int(retention.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired download jobs: %w", err)
	}
	defer rows.Close()

	removed := 0
	for rows.Next() {
		var id, status, videoPath string
		var retrievedAt *time.Time
		if err := rows.Scan(&id, &status, &videoPath, &retrievedAt); err != nil {
			return removed, fmt.Errorf("failed to scan deleted download job: %w", err)
		}
		removed++
		if JobStatus(status) == StatusCompleted && retrievedAt == nil && videoPath != "" {
			reclaimOrphanedClip(s.logger, id, videoPath)
		}
	}
	if err := rows.Err(); err != nil {
		return removed, fmt.Errorf("failed to delete expired download jobs: %w", err)
	}
	return removed, nil
}

// StartCleanup mirrors the in-memory store's ticker-driven GC.
func (s *PostgresJobStore) StartCleanup(retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if n, err := s.DeleteExpired(context.Background(), retention); err != nil {
				s.logger.Error("Download job cleanup failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.logger.Info("Expired download jobs removed", slog.Int("count", n))
			}
		}
	}()
}
