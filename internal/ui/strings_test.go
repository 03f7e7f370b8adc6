package ui

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"fits", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "abcdef", 4, "abc…"},
		{"one", "abcdef", 1, "a"},
		{"zero", "abc", 0, ""},
		{"runes", "héllo wörld", 6, "héllo…"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := truncate(tc.in, tc.limit); got != tc.want {
				t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
			}
		})
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	got := truncateMiddle("/var/log/service/app.log", 12)
	if len([]rune(got)) != 12 {
		t.Fatalf("got %q (%d runes), want 12", got, len([]rune(got)))
	}
	if got[len(got)-len("app.log"):] != "app.log" {
		t.Fatalf("truncateMiddle = %q, want it to keep the file name", got)
	}
}

func TestFitCell(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"pads", "ab", 4, "ab  "},
		{"cuts", "abcdef", 4, "abc…"},
		{"flattens", "a\tb\nc", 12, "a    b c    "},
		{"zero", "abc", 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fitCell(tc.in, tc.width); got != tc.want {
				t.Fatalf("fitCell(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
			}
		})
	}
}
