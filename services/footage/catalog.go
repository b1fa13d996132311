package footage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

var ErrNoResults = errors.New("no matching stock footage in catalog")

// CatalogVideo is one search candidate from the stock catalog.
type CatalogVideo struct {
	ID       int64
	Duration int
	Width    int
	Height   int
	FileURL  string
}

// CatalogClient searches the third-party stock catalog and retrieves clip
// binaries.
type CatalogClient interface {
	Search(ctx context.Context, query string) ([]CatalogVideo, error)
	Download(ctx context.Context, video CatalogVideo, destDir string) (string, error)
}

// PexelsClient talks to a Pexels-style videos API.
type PexelsClient struct {
	client         *resty.Client
	downloadClient *resty.Client
	logger         *slog.Logger
}

type PexelsClientConfig struct {
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	ConnectTimeout  time.Duration
	DownloadTimeout time.Duration
	MaxRetries      int
}

func NewPexelsClient(logger *slog.Logger, cfg PexelsClientConfig) *PexelsClient {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", cfg.APIKey).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2 * time.Second).
		SetTransport(transport)

	// Downloads get a separate client: clip binaries take far longer than
	// catalog queries and must not inherit the short request timeout.
	downloadClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Authorization", cfg.APIKey).
		SetTimeout(cfg.DownloadTimeout)

	return &PexelsClient{
		client:         client,
		downloadClient: downloadClient,
		logger:         logger,
	}
}

type pexelsSearchResponse struct {
	Videos []struct {
		ID         int64 `json:"id"`
		Duration   int   `json:"duration"`
		Width      int   `json:"width"`
		Height     int   `json:"height"`
		VideoFiles []struct {
			Link     string `json:"link"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
			FileType string `json:"file_type"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (c *PexelsClient) Search(ctx context.Context, query string) ([]CatalogVideo, error) {
	var result pexelsSearchResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":       query,
			"per_page":    "10",
			"orientation": "portrait",
		}).
		SetResult(&result).
		Get("/videos/search")
	if err != nil {
		return nil, fmt.Errorf("catalog search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("catalog search failed (HTTP %d): %s", resp.StatusCode(), resp.String())
	}

	var videos []CatalogVideo
	for _, v := range result.Videos {
		file := pickVideoFile(v.VideoFiles)
		if file == "" {
			continue
		}
		videos = append(videos, CatalogVideo{
			ID:       v.ID,
			Duration: v.Duration,
			Width:    v.Width,
			Height:   v.Height,
			FileURL:  file,
		})
	}

	c.logger.Debug("Catalog search finished",
		slog.String("query", query),
		slog.Int("candidates", len(videos)))

	if len(videos) == 0 {
		return nil, ErrNoResults
	}
	return videos, nil
}

func (c *PexelsClient) Download(ctx context.Context, video CatalogVideo, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	outputPath := filepath.Join(destDir, fmt.Sprintf("stock_%s.mp4", uuid.NewString()))

	resp, err := c.downloadClient.R().
		SetContext(ctx).
		SetOutput(outputPath).
		Get(video.FileURL)
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to download stock clip: %w", err)
	}
	if resp.IsError() {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to download stock clip, status: %d", resp.StatusCode())
	}

	c.logger.Info("Downloaded stock clip",
		slog.Int64("video_id", video.ID),
		slog.String("path", outputPath))

	return outputPath, nil
}

// pickVideoFile prefers a portrait mp4 rendition close to 1920px tall;
// failing that, the first mp4.
func pickVideoFile(files []struct {
	Link     string `json:"link"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	FileType string `json:"file_type"`
}) string {
	best := ""
	bestDelta := 1 << 30
	fallback := ""
	for _, f := range files {
		if f.FileType != "video/mp4" {
			continue
		}
		if fallback == "" {
			fallback = f.Link
		}
		if f.Height <= f.Width {
			continue
		}
		delta := f.Height - 1920
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			bestDelta = delta
			best = f.Link
		}
	}
	if best != "" {
		return best
	}
	return fallback
}
