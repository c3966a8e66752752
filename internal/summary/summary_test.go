package summary_test

import (
	"math"
	"testing"
	"time"

	"replaylistener/internal/summary"
)

func TestLineFormat(t *testing.T) {
	s := summary.Metadata(1, 10, 8, 2*time.Second)
	want := "[~] Metadata | ok 8 fail 2 | RPS: 5.00 | Time: 2.00s"
	if got := s.Line(); got != want {
		t.Fatalf("Line() = %q, want %q", got, want)
	}
}

func TestRPSGuardsZeroElapsed(t *testing.T) {
	s := summary.Metadata(1, 3, 3, 0)
	if s.RPS() != 0 {
		t.Fatalf("expected zero RPS, got %v", s.RPS())
	}
	if got := s.Line(); got != "[~] Metadata | ok 3 fail 0 | RPS: 0.00 | Time: 0.00s" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestDownloadCountsExistsAsOK(t *testing.T) {
	s := summary.Download(2, 3, 2, 1, 500*time.Millisecond)
	if s.Total != 6 || s.OK != 5 || s.Fail != 1 || s.Exists != 2 {
		t.Fatalf("unexpected counters %+v", s)
	}
	if math.Abs(s.RPS()-12) > 1e-9 {
		t.Fatalf("RPS = %v, want 12", s.RPS())
	}
}
