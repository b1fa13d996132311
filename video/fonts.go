package video

import (
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
)

// Fallback Unicode font bundled with the service. Anything it cannot shape
// falls back further to whatever fontconfig resolves, but captions must
// never render as missing-glyph boxes for a supported language.
const defaultFontFile = "NotoSans-Regular.ttf"

// scriptFonts maps ISO 15924 script codes to bundled font files.
var scriptFonts = map[string]string{
	"Latn": "NotoSans-Regular.ttf",
	"Cyrl": "NotoSans-Regular.ttf",
	"Grek": "NotoSans-Regular.ttf",
	"Taml": "NotoSansTamil-Regular.ttf",
	"Deva": "NotoSansDevanagari-Regular.ttf",
	"Beng": "NotoSansBengali-Regular.ttf",
	"Telu": "NotoSansTelugu-Regular.ttf",
	"Knda": "NotoSansKannada-Regular.ttf",
	"Mlym": "NotoSansMalayalam-Regular.ttf",
	"Gujr": "NotoSansGujarati-Regular.ttf",
	"Guru": "NotoSansGurmukhi-Regular.ttf",
	"Sinh": "NotoSansSinhala-Regular.ttf",
	"Arab": "NotoSansArabic-Regular.ttf",
	"Hebr": "NotoSansHebrew-Regular.ttf",
	"Thai": "NotoSansThai-Regular.ttf",
	"Hans": "NotoSansSC-Regular.otf",
	"Hant": "NotoSansTC-Regular.otf",
	"Jpan": "NotoSansJP-Regular.otf",
	"Kore": "NotoSansKR-Regular.otf",
}

// FontResolver picks a font file appropriate for a language's script.
type FontResolver struct {
	fontDir  string
	override string
	logger   *slog.Logger
}

func NewFontResolver(fontDir, override string, logger *slog.Logger) *FontResolver {
	return &FontResolver{
		fontDir:  fontDir,
		override: override,
		logger:   logger,
	}
}

// FontFor resolves the font file used for caption burn-in. A configured
// override always wins. "auto" and unparseable codes get the default font.
// A script-specific font that is not on disk degrades to the default font
// rather than failing the render.
func (r *FontResolver) FontFor(lang string) string {
	if r.override != "" {
		return r.override
	}

	file := defaultFontFile
	if lang != "" && lang != "auto" {
		if script := scriptFor(lang); script != "" {
			if f, ok := scriptFonts[script]; ok {
				file = f
			}
		}
	}

	path := filepath.Join(r.fontDir, file)
	if _, err := os.Stat(path); err != nil {
		if file != defaultFontFile {
			r.logger.Warn("Script font missing, falling back to default font",
				slog.String("language", lang),
				slog.String("font", file))
			return filepath.Join(r.fontDir, defaultFontFile)
		}
	}
	return path
}

// scriptFor derives the ISO 15924 script for a BCP-47 language code.
func scriptFor(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	script, _ := tag.Script()
	return script.String()
}
