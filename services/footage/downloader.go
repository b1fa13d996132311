package footage

import (
	"context"
	"fmt"
	"log/slog"
)

// Downloader is the synchronous path: search the catalog, pick a candidate,
// fetch its binary, return the local path.
type Downloader interface {
	DownloadVideo(ctx context.Context, searchTerm string) (string, error)
}

type CatalogDownloader struct {
	catalog CatalogClient
	destDir string
	logger  *slog.Logger
}

func NewCatalogDownloader(catalog CatalogClient, destDir string, logger *slog.Logger) *CatalogDownloader {
	return &CatalogDownloader{
		catalog: catalog,
		destDir: destDir,
		logger:  logger,
	}
}

func (d *CatalogDownloader) DownloadVideo(ctx context.Context, searchTerm string) (string, error) {
	videos, err := d.catalog.Search(ctx, searchTerm)
	if err != nil {
		return "", fmt.Errorf("stock footage search failed for %q: %w", searchTerm, err)
	}

	candidate := pickCandidate(videos)

	path, err := d.catalog.Download(ctx, candidate, d.destDir)
	if err != nil {
		return "", fmt.Errorf("stock footage download failed for %q: %w", searchTerm, err)
	}

	d.logger.Info("Located stock footage",
		slog.String("search_term", searchTerm),
		slog.Int64("video_id", candidate.ID),
		slog.String("path", path))

	return path, nil
}

// pickCandidate prefers clips long enough to cover the output duration but
// short enough to not waste download time; otherwise the first result wins.
func pickCandidate(videos []CatalogVideo) CatalogVideo {
	best := videos[0]
	for _, v := range videos {
		if v.Duration >= 5 && v.Duration <= 30 {
			return v
		}
	}
	return best
}
