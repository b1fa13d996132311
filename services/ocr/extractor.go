package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned when the backend runs but produces no usable text.
var ErrNoText = errors.New("no usable text extracted")

// Extractor turns an uploaded flyer into raw text.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// DocExtractor extracts text from image flyers through the tesseract-backed
// docconv converter and from PDF flyers page by page.
type DocExtractor struct {
	logger *slog.Logger
}

func NewDocExtractor(logger *slog.Logger) *DocExtractor {
	return &DocExtractor{logger: logger}
}

func (e *DocExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch ext {
	case ".pdf":
		text, err = e.extractFromPDF(path)
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".webp":
		text, err = e.extractFromImage(path)
	default:
		return "", fmt.Errorf("unsupported flyer type: %s", ext)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		e.logger.Warn("OCR produced no usable text", slog.String("path", path))
		return "", ErrNoText
	}

	e.logger.Info("Extracted text from flyer",
		slog.String("path", path),
		slog.Int("text_length", len(text)))

	return text, nil
}

func (e *DocExtractor) extractFromImage(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		e.logger.Error("OCR conversion failed",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("OCR conversion failed: %w", err)
	}
	return res.Body, nil
}

func (e *DocExtractor) extractFromPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat PDF: %w", err)
	}

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		e.logger.Error("Failed to create PDF reader",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	totalPage := reader.NumPage()
	var fullText strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered", slog.Int("page_number", pageIndex))
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", pageIndex, err)
		}

		fullText.WriteString(text)
	}

	return fullText.String(), nil
}
