package ui

import (
	"testing"
	"time"

	"github.com/five82/loglens/internal/columnize"
)

func TestColumnWidths(t *testing.T) {
	defs := func(widths ...int) []columnize.FieldDefinition {
		out := make([]columnize.FieldDefinition, len(widths))
		for i, w := range widths {
			out[i] = columnize.FieldDefinition{Name: string(rune('a' + i)), Width: w}
		}
		return out
	}

	cases := []struct {
		name   string
		fields []columnize.FieldDefinition
		total  int
		want   []int
	}{
		{"flexible tail", defs(19, 5, 12, 0), 100, []int{19, 5, 12, 61}},
		{"all fixed stretches last", defs(10, 10), 30, []int{10, 19}},
		{"shared flex", defs(0, 0), 21, []int{10, 10}},
		{"odd remainder to last flex", defs(0, 0), 22, []int{10, 11}},
		{"narrow keeps minimum", defs(19, 0), 20, []int{19, LayoutMinColumnWidth}},
		{"none", nil, 80, []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := columnWidths(tc.fields, tc.total)
			if len(got) != len(tc.want) {
				t.Fatalf("columnWidths = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("columnWidths = %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestFormatRecord(t *testing.T) {
	all := []columnize.FieldDefinition{
		{Name: "level", Width: 5, Visible: true},
		{Name: "msg", Visible: true},
	}
	widths := columnWidths(all, 20)

	parsed := columnize.NewRecord("WARN: slow", map[string]string{"level": "WARN", "msg": "slow\tdisk"})
	if got, want := formatRecord(&parsed, all, all, widths, 20), "WARN  slow    disk   "[:20]; got != want {
		t.Fatalf("formatRecord parsed = %q, want %q", got, want)
	}

	raw := "goroutine 1 [running]:"
	unmatched := columnize.NewRecord(raw, map[string]string{"level": raw, "msg": ""})
	if got, want := formatRecord(&unmatched, all, all[1:], widths[1:], 20), "goroutine 1 [runnin…"; got != want {
		t.Fatalf("formatRecord unmatched = %q, want %q", got, want)
	}

	if got := formatRecord(&parsed, all, nil, nil, 12); got != "WARN: slow  " {
		t.Fatalf("formatRecord without columns = %q", got)
	}
}

func TestFormatCount(t *testing.T) {
	cases := map[int]string{
		0:       "0",
		999:     "999",
		1000:    "1,000",
		123456:  "123,456",
		1234567: "1,234,567",
		-5:      "-5",
	}
	for in, want := range cases {
		if got := formatCount(in); got != want {
			t.Fatalf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC)
	if got := formatTimestamp(time.Time{}, now); got != "" {
		t.Fatalf("zero = %q", got)
	}
	if got := formatTimestamp(now.Add(-10*time.Second), now); got != "11:59:50 (now)" {
		t.Fatalf("recent = %q", got)
	}
	if got := formatTimestamp(now.Add(-5*time.Minute), now); got != "11:55:00 (5m ago)" {
		t.Fatalf("minutes = %q", got)
	}
	if got := formatTimestamp(now.Add(-2*time.Hour), now); got != "10:00:00 (2h ago)" {
		t.Fatalf("hours = %q", got)
	}
}
