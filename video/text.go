package video

import "strings"

// EscapeDrawtext escapes caption text for use inside a single-quoted
// drawtext text= argument within an ffmpeg filter_complex. Backslash first,
// then the characters the filtergraph parser treats specially.
func EscapeDrawtext(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	// A quoted single quote ends the quote, emits an escaped quote, and
	// reopens the quote.
	text = strings.ReplaceAll(text, `'`, `'\\\''`)
	text = strings.ReplaceAll(text, `:`, `\:`)
	text = strings.ReplaceAll(text, `%`, `\%`)
	text = strings.ReplaceAll(text, `,`, `\,`)
	text = strings.ReplaceAll(text, `;`, `\;`)
	text = strings.ReplaceAll(text, `[`, `\[`)
	text = strings.ReplaceAll(text, `]`, `\]`)
	return text
}

// SplitCaptionLines breaks caller-supplied caption text at explicit
// newlines, dropping whitespace-only lines. One input line renders as one
// visual line; the composer never re-wraps.
func SplitCaptionLines(caption string) []string {
	var lines []string
	for _, line := range strings.Split(caption, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
