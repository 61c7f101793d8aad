package export

import "testing"

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		prefix string
		seq    int
		total  int
		ext    string
		want   string
	}{
		{"clip", 1, 5, "mp4", "clip001.mp4"},
		{"clip", 12, 120, "mp4", "clip012.mp4"},
		{"clip", 1000, 1000, "mp4", "clip1000.mp4"},
		{"swing_", 7, 9, "mp4", "swing_007.mp4"},
	}
	for _, tc := range tests {
		if got := outputFilename(tc.prefix, tc.seq, tc.total, tc.ext); got != tc.want {
			t.Errorf("outputFilename(%q, %d, %d) = %q, want %q", tc.prefix, tc.seq, tc.total, got, tc.want)
		}
	}
}

func TestEnsureExtension(t *testing.T) {
	if got := ensureExtension("rally", "mp4"); got != "rally.mp4" {
		t.Errorf("got %q, want rally.mp4", got)
	}
	if got := ensureExtension("rally.mov", "mp4"); got != "rally.mov" {
		t.Errorf("got %q, want rally.mov", got)
	}
}
