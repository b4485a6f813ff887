package logts

import (
	"testing"
	"time"
)

func TestDecode_UTCCorrectness(t *testing.T) {
	ms := Decode("/home/u/.local/share/opencode/log/2026-02-20T145658.log")
	want := time.Date(2026, 2, 20, 14, 56, 58, 0, time.UTC).UnixMilli()
	if ms != want {
		t.Errorf("Decode() = %d, want %d (UTC interpretation, not local)", ms, want)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{
		"",
		"not-a-log.txt",
		"/path/to/2026-02-20T14:56:58.log", // colons, not expected format
		"2026-13-99T999999.log",
	}
	for _, c := range cases {
		if ms := Decode(c); ms != 0 {
			t.Errorf("Decode(%q) = %d, want 0", c, ms)
		}
	}
}

func TestDecode_UnlinkedPathStillParses(t *testing.T) {
	// lsof preserves the original path of an unlinked-but-open file;
	// the decoder only cares about the basename.
	ms := Decode("/home/u/.local/share/opencode/log/2026-02-20T145658.log")
	if ms == 0 {
		t.Fatal("expected non-zero epoch for a valid basename")
	}
}
