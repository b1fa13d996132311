package video

import (
	"reflect"
	"testing"
)

func TestEscapeDrawtext(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "Summer Party",
			want:  "Summer Party",
		},
		{
			name:  "single quote",
			input: "It's working",
			want:  `It'\\\''s working`,
		},
		{
			name:  "colon",
			input: "Doors open: 7pm",
			want:  `Doors open\: 7pm`,
		},
		{
			name:  "percent",
			input: "50% off",
			want:  `50\% off`,
		},
		{
			name:  "comma and semicolon",
			input: "Nov 21, 7pm; DJ set",
			want:  `Nov 21\, 7pm\; DJ set`,
		},
		{
			name:  "brackets",
			input: "[VIP] entry",
			want:  `\[VIP\] entry`,
		},
		{
			name:  "backslash escaped before everything else",
			input: `a\b`,
			want:  `a\\b`,
		},
		{
			name:  "multiple single quotes",
			input: "John's dog's toy",
			want:  `John'\\\''s dog'\\\''s toy`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeDrawtext(tt.input)
			if got != tt.want {
				t.Errorf("EscapeDrawtext(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSplitCaptionLines(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		want    []string
	}{
		{
			name:    "single line",
			caption: "Summer Party",
			want:    []string{"Summer Party"},
		},
		{
			name:    "multiple lines preserved in order",
			caption: "Summer Party\nNov 21\n7pm",
			want:    []string{"Summer Party", "Nov 21", "7pm"},
		},
		{
			name:    "whitespace only lines dropped",
			caption: "Summer Party\n   \nNov 21",
			want:    []string{"Summer Party", "Nov 21"},
		},
		{
			name:    "empty caption",
			caption: "",
			want:    nil,
		},
		{
			name:    "lines are trimmed",
			caption: "  Summer Party  \n  Nov 21  ",
			want:    []string{"Summer Party", "Nov 21"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitCaptionLines(tt.caption)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitCaptionLines(%q) = %v, want %v", tt.caption, got, tt.want)
			}
		})
	}
}
