package video

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestFontDir(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("font"), 0644); err != nil {
			t.Fatalf("Failed to create test font %s: %v", f, err)
		}
	}
	return dir
}

func TestFontForSelectsScriptFont(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dir := newTestFontDir(t, "NotoSans-Regular.ttf", "NotoSansTamil-Regular.ttf", "NotoSansArabic-Regular.ttf")
	resolver := NewFontResolver(dir, "", logger)

	tests := []struct {
		name string
		lang string
		want string
	}{
		{"tamil", "ta", "NotoSansTamil-Regular.ttf"},
		{"arabic", "ar", "NotoSansArabic-Regular.ttf"},
		{"english", "en", "NotoSans-Regular.ttf"},
		{"auto keeps default", "auto", "NotoSans-Regular.ttf"},
		{"empty keeps default", "", "NotoSans-Regular.ttf"},
		{"unparseable code keeps default", "not-a-code-at-all", "NotoSans-Regular.ttf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolver.FontFor(tt.lang)
			want := filepath.Join(dir, tt.want)
			if got != want {
				t.Errorf("FontFor(%q) = %q, want %q", tt.lang, got, want)
			}
		})
	}
}

func TestFontForMissingScriptFontFallsBack(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	// Only the default font is on disk.
	dir := newTestFontDir(t, "NotoSans-Regular.ttf")
	resolver := NewFontResolver(dir, "", logger)

	got := resolver.FontFor("ta")
	want := filepath.Join(dir, "NotoSans-Regular.ttf")
	if got != want {
		t.Errorf("FontFor(ta) with missing Tamil font = %q, want fallback %q", got, want)
	}
}

func TestFontForOverrideWins(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	dir := newTestFontDir(t, "NotoSans-Regular.ttf", "NotoSansTamil-Regular.ttf")
	resolver := NewFontResolver(dir, "/custom/Brand.ttf", logger)

	if got := resolver.FontFor("ta"); got != "/custom/Brand.ttf" {
		t.Errorf("FontFor with override = %q, want /custom/Brand.ttf", got)
	}
}
