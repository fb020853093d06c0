package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCaptureWriterCountsFullBodyPastLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 10}

	for i := 0; i < 4; i++ {
		if _, err := cw.Write([]byte("aaaa")); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if cw.size != 16 {
		t.Fatalf("size=%d, want the full 16 bytes counted", cw.size)
	}
	if cw.buf.Len() != 10 {
		t.Fatalf("buffered=%d, want capped at 10", cw.buf.Len())
	}
	if got := rec.Body.String(); got != strings.Repeat("a", 16) {
		t.Fatalf("client got %d bytes, want the untouched 16", len(got))
	}
}

func TestCacheableSkipsOverflowedBodies(t *testing.T) {
	cases := []struct {
		name   string
		status int
		size   int64
		limit  int64
		want   bool
	}{
		{"ok under limit", http.StatusOK, 5, 10, true},
		{"ok at limit", http.StatusOK, 10, 10, true},
		{"ok over limit", http.StatusOK, 11, 10, false},
		{"no limit", http.StatusOK, 1 << 30, 0, true},
		{"error status", http.StatusInternalServerError, 5, 10, false},
		{"not found", http.StatusNotFound, 5, 10, false},
	}
	for _, tc := range cases {
		if got := cacheable(tc.status, tc.size, tc.limit); got != tc.want {
			t.Fatalf("%s: cacheable=%v, want %v", tc.name, got, tc.want)
		}
	}
}
