package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/logflow/tablelog/pkg/report"
	"github.com/logflow/tablelog/pkg/stats"
	"github.com/logflow/tablelog/pkg/tracker"
)

func TestRenderReport(t *testing.T) {
	r := report.Build(tracker.Totals{WaitSeconds: 120, WaitPersons: 2}, &stats.Samples{
		QueueGroups:   []int{1, 0, 0},
		KitchenOrders: []int{1, 1, 0},
		ActiveWaiters: []int{3, 2, 3},
	})
	r.Meta.Source = "restaurant_log.csv"

	out := RenderReport(r)
	for _, want := range append([]string{"restaurant_log.csv", "0.33", "60", report.NotAvailable, "2.67"}, report.Labels...) {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Labels appear in report order.
	last := -1
	for _, label := range report.Labels {
		i := strings.Index(out, label)
		if i < last {
			t.Errorf("label %q out of order", label)
		}
		last = i
	}
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintRunSummary(&buf, &RunSummary{
		RunID:     "run-1",
		Snapshots: 3000,
		Events:    40,
		InputSize: 2048,
		Duration:  2 * time.Second,
		Exports:   []string{"timeline.parquet"},
	})

	out := buf.String()
	for _, want := range []string{"ANALYSIS COMPLETE", "run-1", "3.0K", "40", "2.0 KB", "2.0s", "1.5K rows/sec", "timeline.parquet"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	PrintRunSummary(&buf, &RunSummary{RunID: "run-2", Snapshots: 3, Events: 9, Cached: true})
	if !strings.Contains(buf.String(), "FROM CACHE") || strings.Contains(buf.String(), "Events:") {
		t.Errorf("unexpected cached summary:\n%s", buf.String())
	}
}

func TestShowProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := ShowProgress(&buf, 10, "tracking")
	if err := bar.Add(10); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := bar.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
}

func TestFormatHelpers(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{formatBytes(512), "512 B"},
		{formatBytes(1536), "1.5 KB"},
		{formatBytes(3 << 20), "3.0 MB"},
		{formatDuration(250 * time.Millisecond), "250ms"},
		{formatDuration(1500 * time.Millisecond), "1.5s"},
		{formatDuration(125 * time.Second), "2m5s"},
		{formatNumber(999), "999"},
		{formatNumber(1500), "1.5K"},
		{formatNumber(2500000), "2.5M"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, tt.got)
		}
	}
}
