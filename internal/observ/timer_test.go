package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("write")
	time.Sleep(time.Millisecond)
	timer.End(idx, "tmp0000.c")

	report := timer.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("got %d phases, want 1", len(report.Phases))
	}
	if report.Phases[0].Name != "write" || report.Phases[0].Note != "tmp0000.c" {
		t.Fatalf("unexpected phase %+v", report.Phases[0])
	}
	if report.Phases[0].DurationMS <= 0 {
		t.Fatalf("non-positive duration %v", report.Phases[0].DurationMS)
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Fatalf("total %v less than phase %v", report.TotalMS, report.Phases[0].DurationMS)
	}
}

func TestTimerEndIgnoresBadIndex(t *testing.T) {
	timer := NewTimer()
	timer.End(-1, "")
	timer.End(5, "")
	if got := timer.Report(); len(got.Phases) != 0 {
		t.Fatalf("unexpected phases %+v", got.Phases)
	}
}

func TestTimerSummary(t *testing.T) {
	timer := NewTimer()
	idx := timer.Begin("compile")
	timer.End(idx, "clang")
	summary := timer.Summary()
	if !strings.Contains(summary, "compile") || !strings.Contains(summary, "total") {
		t.Fatalf("summary missing fields:\n%s", summary)
	}
	if !strings.Contains(summary, "// clang") {
		t.Fatalf("summary missing note:\n%s", summary)
	}
}
