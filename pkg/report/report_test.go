package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/logflow/tablelog/internal/model"
	"github.com/logflow/tablelog/pkg/stats"
	"github.com/logflow/tablelog/pkg/tracker"
)

func scenario() []model.Snapshot {
	t0 := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	return []model.Snapshot{
		{Timestamp: t0, Waiting: []model.QueueEntry{{GroupID: 1, PartySize: 2}}, KitchenOrders: 0, ActiveWaiters: 3},
		{Timestamp: t0.Add(60 * time.Second), Seated: []int{1}, KitchenOrders: 2, ActiveWaiters: 3},
		{Timestamp: t0.Add(600 * time.Second), Completed: []int{1}, KitchenOrders: 1, ActiveWaiters: 2},
	}
}

func TestBuild_Scenario(t *testing.T) {
	snaps := scenario()
	r := Build(tracker.Process(snaps), stats.Collect(snaps))

	if len(r.Entries) != len(Labels) {
		t.Fatalf("got %d entries, want %d", len(r.Entries), len(Labels))
	}
	for i, label := range Labels {
		if r.Entries[i].Label != label {
			t.Errorf("entry %d label = %q, want %q", i, r.Entries[i].Label, label)
		}
	}

	want := map[string]string{
		LabelAvgQueue:   "0.33",
		LabelAvgWait:    "60",
		LabelAvgMeal:    "540",
		LabelPeakQueue:  "1",
		LabelAvgKitchen: "1",
		LabelAvgWaiters: "2.67",
	}
	for label, w := range want {
		v, ok := r.Get(label)
		if !ok {
			t.Errorf("missing %q", label)
			continue
		}
		if v.String() != w {
			t.Errorf("%s = %s, want %s", label, v, w)
		}
	}

	if r.Meta.Snapshots != 3 {
		t.Errorf("Snapshots = %d, want 3", r.Meta.Snapshots)
	}
}

func TestBuild_Empty(t *testing.T) {
	r := Build(tracker.Totals{}, stats.Collect(nil))
	for _, e := range r.Entries {
		if e.Value.Valid {
			t.Errorf("%s should be unavailable, got %s", e.Label, e.Value)
		}
		if e.Value.String() != NotAvailable {
			t.Errorf("%s = %q, want %q", e.Label, e.Value.String(), NotAvailable)
		}
	}

	// Nil samples behave like an empty sequence.
	r = Build(tracker.Totals{}, nil)
	if v, _ := r.Get(LabelPeakQueue); v.Valid {
		t.Error("peak queue should be unavailable")
	}
}

func TestBuild_PeakQueueIsRowMaximum(t *testing.T) {
	snaps := []model.Snapshot{
		{Waiting: make([]model.QueueEntry, 2)},
		{Waiting: make([]model.QueueEntry, 5)},
		{Waiting: make([]model.QueueEntry, 1)},
	}
	r := Build(tracker.Totals{}, stats.Collect(snaps))
	if v, _ := r.Get(LabelPeakQueue); v.String() != "5" {
		t.Errorf("peak = %s, want 5", v)
	}
}

func TestValue_Rounding(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.0 / 3.0, "0.33"},
		{2.346, "2.35"},
		{10, "10"},
		{-4.444, "-4.44"},
	}
	for _, tt := range tests {
		if got := Float(tt.in, true).String(); got != tt.want {
			t.Errorf("Float(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestWriteText(t *testing.T) {
	snaps := scenario()
	r := Build(tracker.Process(snaps), stats.Collect(snaps))

	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6:\n%s", len(lines), buf.String())
	}
	if lines[1] != "Average time a person waited in queue (seconds): 60" {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestWriteJSON_PreservesOrder(t *testing.T) {
	r := Build(tracker.Totals{}, stats.Collect(scenario()))
	r.Meta.RunID = "run-1"
	r.Meta.Source = "log.csv"

	var buf bytes.Buffer
	if err := r.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	out := buf.String()

	last := -1
	for _, label := range Labels {
		idx := strings.Index(out, label)
		if idx < 0 {
			t.Fatalf("missing %q in %s", label, out)
		}
		if idx < last {
			t.Errorf("%q out of order", label)
		}
		last = idx
	}

	var decoded struct {
		RunID      string                 `json:"run_id"`
		Statistics map[string]interface{} `json:"statistics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("run_id = %q", decoded.RunID)
	}
	if decoded.Statistics[LabelAvgWait] != NotAvailable {
		t.Errorf("avg wait = %v, want %q", decoded.Statistics[LabelAvgWait], NotAvailable)
	}
	if decoded.Statistics[LabelPeakQueue] != float64(1) {
		t.Errorf("peak = %v, want 1", decoded.Statistics[LabelPeakQueue])
	}
}

func TestWriteYAML(t *testing.T) {
	snaps := scenario()
	r := Build(tracker.Process(snaps), stats.Collect(snaps))
	r.Meta.Source = "log.csv"

	var buf bytes.Buffer
	if err := r.WriteYAML(&buf); err != nil {
		t.Fatalf("WriteYAML failed: %v", err)
	}

	var decoded struct {
		Source     string                 `yaml:"source"`
		Statistics map[string]interface{} `yaml:"statistics"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if decoded.Source != "log.csv" {
		t.Errorf("source = %q", decoded.Source)
	}
	if decoded.Statistics[LabelAvgMeal] != 540 {
		t.Errorf("avg meal = %v (%T), want 540", decoded.Statistics[LabelAvgMeal], decoded.Statistics[LabelAvgMeal])
	}

	out := buf.String()
	if strings.Index(out, LabelAvgQueue) > strings.Index(out, LabelAvgWaiters) {
		t.Error("YAML statistics out of order")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "yml": FormatYAML, "pretty": FormatPretty} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}
