package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderStatusLinePlain(t *testing.T) {
	line := renderStatusLine("Replay API", statusOK, "reachable", false)
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("unexpected color codes in %q", line)
	}
	requireContains(t, line, "Replay API:")
	requireContains(t, line, "[OK] reachable")
}

func TestRenderStatusLineColor(t *testing.T) {
	line := renderStatusLine("Download directory", statusError, "missing", true)
	if !strings.HasPrefix(line, ansiRed) || !strings.HasSuffix(line, ansiReset) {
		t.Fatalf("expected red line, got %q", line)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderTableAlignsAndPads(t *testing.T) {
	out := renderTable([]string{"Name", "Count"}, [][]string{{"a", "1"}, {"bb"}}, nil, []columnAlignment{alignLeft, alignRight})
	requireContains(t, out, "bb")
	if lines := strings.Count(out, "\n"); lines < 5 {
		t.Fatalf("expected framed table, got %q", out)
	}
}
