package footage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore() *MemoryJobStore {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewMemoryJobStore(logger)
}

func TestStoreGetReturnsCopies(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	job := &DownloadJob{ID: "j1", SearchTerm: "party", Status: StatusPending}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got.Status = StatusCompleted

	again, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if again.Status != StatusPending {
		t.Errorf("Mutating a returned job leaked into the store: %s", again.Status)
	}
}

func TestStoreGetUnknownJob(t *testing.T) {
	store := newTestStore()
	if _, err := store.Get(context.Background(), "missing"); err != ErrJobNotFound {
		t.Errorf("Get(missing) = %v, want ErrJobNotFound", err)
	}
}

func TestStoreRefusesTerminalRegression(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	tests := []struct {
		name     string
		terminal JobStatus
	}{
		{"completed", StatusCompleted},
		{"permanently failed", StatusPermanentlyFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &DownloadJob{ID: "j_" + tt.name, SearchTerm: "party", Status: StatusPending}
			if err := store.Create(ctx, job); err != nil {
				t.Fatalf("Create failed: %v", err)
			}

			job.Status = tt.terminal
			job.VideoPath = "clip.mp4"
			if err := store.Update(ctx, job); err != nil {
				t.Fatalf("Update to terminal failed: %v", err)
			}

			job.Status = StatusInProgress
			if err := store.Update(ctx, job); err != nil {
				t.Fatalf("Regressing update should be ignored, not error: %v", err)
			}

			got, err := store.Get(ctx, job.ID)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got.Status != tt.terminal {
				t.Errorf("Status regressed from %s to %s", tt.terminal, got.Status)
			}
		})
	}
}

func TestStorePollingIsIdempotent(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	job := &DownloadJob{ID: "j1", SearchTerm: "party", Status: StatusPending}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Status = StatusCompleted
	job.VideoPath = "clip.mp4"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		got, err := store.Get(ctx, "j1")
		if err != nil {
			t.Fatalf("Poll %d failed: %v", i, err)
		}
		if got.Status != StatusCompleted || got.VideoPath != "clip.mp4" {
			t.Errorf("Poll %d returned %s/%s", i, got.Status, got.VideoPath)
		}
		if err := store.MarkRetrieved(ctx, "j1"); err != nil {
			t.Fatalf("MarkRetrieved %d failed: %v", i, err)
		}
	}
}

func TestDeleteExpiredRemovesRetrievedTerminalJobs(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	job := &DownloadJob{ID: "j1", SearchTerm: "party", Status: StatusPending}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Status = StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.MarkRetrieved(ctx, "j1"); err != nil {
		t.Fatalf("MarkRetrieved failed: %v", err)
	}

	// Still inside the grace period after retrieval.
	if n, _ := store.DeleteExpired(ctx, time.Hour); n != 0 {
		t.Errorf("DeleteExpired removed %d jobs inside the grace period", n)
	}

	now = now.Add(2 * time.Minute)
	if n, _ := store.DeleteExpired(ctx, time.Hour); n != 1 {
		t.Errorf("DeleteExpired removed %d jobs, want 1", n)
	}
	if _, err := store.Get(ctx, "j1"); err != ErrJobNotFound {
		t.Errorf("Job should be gone after cleanup, got %v", err)
	}
}

func TestDeleteExpiredKeepsActiveJobs(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	job := &DownloadJob{ID: "j1", SearchTerm: "party", Status: StatusInProgress}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	now = now.Add(30 * time.Minute)
	if n, _ := store.DeleteExpired(ctx, time.Hour); n != 0 {
		t.Errorf("DeleteExpired removed %d active jobs before retention", n)
	}

	now = now.Add(time.Hour)
	if n, _ := store.DeleteExpired(ctx, time.Hour); n != 1 {
		t.Errorf("DeleteExpired removed %d jobs past retention, want 1", n)
	}
}

func TestReclaimOrphanedClip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	clip := filepath.Join(t.TempDir(), "orphan.mp4")
	if err := os.WriteFile(clip, []byte("video"), 0644); err != nil {
		t.Fatalf("Failed to create clip: %v", err)
	}

	reclaimOrphanedClip(logger, "j1", clip)
	if _, err := os.Stat(clip); !os.IsNotExist(err) {
		t.Errorf("Clip was not removed: %v", err)
	}

	// A clip that is already gone is not an error.
	reclaimOrphanedClip(logger, "j1", clip)
}

func TestDeleteExpiredReclaimsOrphanedClip(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	now := time.Now()
	store.nowFunc = func() time.Time { return now }

	clip := filepath.Join(t.TempDir(), "orphan.mp4")
	if err := os.WriteFile(clip, []byte("video"), 0644); err != nil {
		t.Fatalf("Failed to create clip: %v", err)
	}

	job := &DownloadJob{ID: "j1", SearchTerm: "party", Status: StatusPending}
	if err := store.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Status = StatusCompleted
	job.VideoPath = clip
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Nobody ever polled the job; after retention the clip is reclaimed.
	now = now.Add(2 * time.Hour)
	if n, _ := store.DeleteExpired(ctx, time.Hour); n != 1 {
		t.Errorf("DeleteExpired removed %d jobs, want 1", n)
	}
	if _, err := os.Stat(clip); !os.IsNotExist(err) {
		t.Errorf("Orphaned clip was not reclaimed: %v", err)
	}
}
