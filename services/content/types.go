package content

import "strings"

// ContentAnalysis is the result of caption generation. Caption is always
// non-empty; VideoKeywords may be empty, in which case the caller derives its
// own search terms.
type ContentAnalysis struct {
	Caption       string   `json:"caption"`
	VideoKeywords []string `json:"keywords"`
	ContentType   string   `json:"content_type"`
	Tone          string   `json:"tone"`
}

// ContentDetails holds up to five ordered short display lines extracted from
// a caption. Empty lines are dropped at parse time; the order of the
// remaining lines is preserved.
type ContentDetails struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
	Line3 string `json:"line3"`
	Line4 string `json:"line4"`
	Line5 string `json:"line5"`
}

// Lines returns the non-empty lines in declaration order.
func (d ContentDetails) Lines() []string {
	var lines []string
	for _, l := range []string{d.Line1, d.Line2, d.Line3, d.Line4, d.Line5} {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// FormatOverlay joins the non-empty lines with explicit newlines. The result
// is rendered one visual line per input line, so ordering here is a
// correctness requirement, not a presentation choice.
func (d ContentDetails) FormatOverlay() string {
	return strings.Join(d.Lines(), "\n")
}

// IsEmpty reports whether every line is absent or whitespace.
func (d ContentDetails) IsEmpty() bool {
	return len(d.Lines()) == 0
}
