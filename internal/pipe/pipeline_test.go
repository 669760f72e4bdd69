package pipe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/logflow/tablelog/pkg/cache"
	lferrors "github.com/logflow/tablelog/pkg/errors"
	"github.com/logflow/tablelog/pkg/logging"
	"github.com/logflow/tablelog/pkg/metrics"
	"github.com/logflow/tablelog/pkg/parser"
	"github.com/logflow/tablelog/pkg/report"
)

const restaurantLog = "Timestamp,Tables,Kitchen Queue,Completed Orders,Waiting Queue,Ingredients,Waiters\n" +
	`2025-05-01 12:00:00,"Table 1 (size 4): Free;","","","Group 1(size 2) ","beef:10;bun:20;","3 active"` + "\n" +
	`2025-05-01 12:01:00,"Table 1 (size 4): Occupied (Group 1), Orders: Burger ;","Burger(Group 1) Fries(Group 1) ","","","beef:9;bun:19;","3 active"` + "\n" +
	"Timestamp,Tables,Kitchen Queue,Completed Orders,Waiting Queue,Ingredients,Waiters\n" +
	`2025-05-01 12:10:00,"Table 1 (size 4): Free;","","Burger(Group 1) ","","beef:9;bun:19;","2 active"` + "\n"

func writeLog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(location string) Config {
	cfg := DefaultConfig()
	cfg.Location = location
	return cfg
}

func newTestPipeline(cfg Config, opts ...Option) *Pipeline {
	return New(cfg, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func expectReport(t *testing.T, r *report.Report, want map[string]string) {
	t.Helper()
	for label, w := range want {
		v, ok := r.Get(label)
		if !ok {
			t.Errorf("missing %q", label)
			continue
		}
		if v.String() != w {
			t.Errorf("%s: Expected %s, got %s", label, w, v)
		}
	}
}

func TestRun_RestaurantLog(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)

	res, err := newTestPipeline(testConfig(path)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expectReport(t, res.Report, map[string]string{
		report.LabelAvgQueue:   "0.33",
		report.LabelAvgWait:    "60",
		report.LabelAvgMeal:    "540",
		report.LabelPeakQueue:  "1",
		report.LabelAvgKitchen: "0.67",
		report.LabelAvgWaiters: "2.67",
	})

	if len(res.Snapshots) != 3 {
		t.Errorf("Expected 3 snapshots (repeated header skipped), got %d", len(res.Snapshots))
	}
	if len(res.Events) != 3 {
		t.Errorf("Expected 3 events, got %d", len(res.Events))
	}
	if res.Cached {
		t.Error("Expected a computed report")
	}

	meta := res.Report.Meta
	if meta.RunID == "" || meta.Snapshots != 3 || meta.GeneratedAt.IsZero() {
		t.Errorf("unexpected meta %+v", meta)
	}
	if meta.Source != path {
		t.Errorf("Expected source %s, got %s", path, meta.Source)
	}
}

func TestRun_DuckDBEngine(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	cfg := testConfig(path)
	cfg.Parser.Engine = parser.EngineDuckDB

	res, err := newTestPipeline(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	expectReport(t, res.Report, map[string]string{
		report.LabelAvgWait: "60",
		report.LabelAvgMeal: "540",
	})
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	noWaiters := writeLog(t, "no_waiters.csv", "Timestamp,Tables,Kitchen Queue,Completed Orders,Waiting Queue\n")
	badTime := writeLog(t, "bad_time.csv",
		"Timestamp,Tables,Kitchen Queue,Completed Orders,Waiting Queue,Waiters\nyesterday,,,,,1 active\n")
	unknown := writeLog(t, "log.json", "{}")
	empty := writeLog(t, "empty.csv", "")

	tests := []struct {
		name     string
		location string
		code     lferrors.Code
	}{
		{"missing file", filepath.Join(dir, "nope.csv"), lferrors.CodeFileNotFound},
		{"missing column", noWaiters, lferrors.CodeMissingColumn},
		{"invalid timestamp", badTime, lferrors.CodeInvalidTimestamp},
		{"unknown format", unknown, lferrors.CodeInvalidFormat},
		{"empty file", empty, lferrors.CodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestPipeline(testConfig(tt.location)).Run(context.Background())
			if err == nil {
				t.Fatal("Expected error")
			}
			if !lferrors.IsCode(err, tt.code) {
				t.Errorf("Expected code %s, got %v", tt.code, err)
			}
		})
	}
}

func TestRun_EmptyLog(t *testing.T) {
	path := writeLog(t, "empty.csv", "Timestamp,Tables,Kitchen Queue,Completed Orders,Waiting Queue,Waiters\n")

	res, err := newTestPipeline(testConfig(path)).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, e := range res.Report.Entries {
		if e.Value.Valid {
			t.Errorf("%s: Expected %s, got %s", e.Label, report.NotAvailable, e.Value)
		}
	}
}

func TestRun_Exports(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	dir := t.TempDir()

	cfg := testConfig(path)
	cfg.Exports.XLSX = filepath.Join(dir, "report.xlsx")
	cfg.Exports.Timeline = filepath.Join(dir, "timeline.parquet")
	cfg.Exports.Events = filepath.Join(dir, "events.parquet")
	cfg.Exports.Groups = filepath.Join(dir, "groups.parquet")

	res, err := newTestPipeline(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Exports) != 4 {
		t.Fatalf("Expected 4 exports, got %v", res.Exports)
	}
	for _, p := range res.Exports {
		info, err := os.Stat(p)
		if err != nil || info.Size() == 0 {
			t.Errorf("export %s missing or empty: %v", p, err)
		}
	}
}

func TestRun_GroupsWithoutEvents(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	cfg := testConfig(path)
	cfg.Exports.Groups = filepath.Join(t.TempDir(), "groups.parquet")

	res, err := newTestPipeline(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Exports) != 1 || res.Exports[0] != cfg.Exports.Groups {
		t.Fatalf("Expected only the groups export, got %v", res.Exports)
	}
	if info, err := os.Stat(cfg.Exports.Groups); err != nil || info.Size() == 0 {
		t.Errorf("groups export missing or empty: %v", err)
	}
}

type memCache struct {
	mu   sync.Mutex
	data map[string]*cache.Record
	puts int
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string]*cache.Record)}
}

func (c *memCache) Get(_ context.Context, key string) (*cache.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return rec, nil
}

func (c *memCache) Put(_ context.Context, key string, rec *cache.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = rec
	c.puts++
	return nil
}

func (c *memCache) Name() string { return "memory" }
func (c *memCache) Close() error { return nil }

func TestRun_Cache(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	mc := newMemCache()
	p := newTestPipeline(testConfig(path), WithCache(mc))

	first, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if first.Cached || !second.Cached {
		t.Errorf("Expected computed then cached, got %v, %v", first.Cached, second.Cached)
	}
	if mc.puts != 1 {
		t.Errorf("Expected 1 cache store, got %d", mc.puts)
	}
	if second.Report.Meta.RunID == first.Report.Meta.RunID {
		t.Error("cached report should carry a fresh run id")
	}
	if second.Report.Meta.Snapshots != 3 {
		t.Errorf("Expected 3 snapshots, got %d", second.Report.Meta.Snapshots)
	}
	for i := range first.Report.Entries {
		if first.Report.Entries[i] != second.Report.Entries[i] {
			t.Errorf("entry %d differs: %+v vs %+v", i, first.Report.Entries[i], second.Report.Entries[i])
		}
	}

	// A changed log must miss.
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	f.WriteString(`2025-05-01 12:11:00,"","","","Group 2(size 4) ","","1 active"` + "\n")
	f.Close()

	third, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("third Run failed: %v", err)
	}
	if third.Cached {
		t.Error("Expected a cache miss after the log changed")
	}
}

type recorder struct {
	metrics.Nop
	mu     sync.Mutex
	gauges map[string]float64
	counts map[string]int64
}

func (r *recorder) Gauge(name string, v float64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = v
}

func (r *recorder) Counter(name string, v int64, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name] += v
}

func TestRun_Metrics(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	rec := &recorder{gauges: map[string]float64{}, counts: map[string]int64{}}

	if _, err := newTestPipeline(testConfig(path), WithMetrics(rec)).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := rec.gauges[metrics.MetricReportPrefix+"avg_meal_seconds"]; got != 540 {
		t.Errorf("Expected avg meal gauge 540, got %v", got)
	}
	if got := rec.counts[metrics.MetricRowsTotal]; got != 3 {
		t.Errorf("Expected 3 rows, got %d", got)
	}
	if got := rec.counts[metrics.MetricEventsTotal]; got != 3 {
		t.Errorf("Expected 3 events, got %d", got)
	}
}

type countingProgress struct {
	total, added int64
	finished     bool
}

func (c *countingProgress) Add(n int) error { c.added += int64(n); return nil }
func (c *countingProgress) Finish() error   { c.finished = true; return nil }

func TestRun_Progress(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	bar := &countingProgress{}

	_, err := newTestPipeline(testConfig(path), WithProgress(func(total int64, _ string) Progress {
		bar.total = total
		return bar
	})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if bar.total != 3 || bar.added != 3 || !bar.finished {
		t.Errorf("unexpected progress %+v", bar)
	}
}

type brokenProgress struct {
	adds     int
	finished bool
}

func (b *brokenProgress) Add(n int) error { b.adds++; return errors.New("terminal closed") }
func (b *brokenProgress) Finish() error   { b.finished = true; return nil }

func TestRun_BrokenProgress(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	bar := &brokenProgress{}

	res, err := newTestPipeline(testConfig(path), WithProgress(func(int64, string) Progress {
		return bar
	})).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if bar.adds != 1 || bar.finished {
		t.Errorf("Expected progress to stop after the first failure, got %+v", bar)
	}
	if got := res.Report.Entries[1].Value.String(); got != "60" {
		t.Errorf("Expected average wait 60, got %s", got)
	}
}

func TestRun_Canceled(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPipeline(testConfig(path)).Run(ctx)
	if !lferrors.IsCode(err, lferrors.CodeContextCanceled) {
		t.Errorf("Expected canceled error, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	path := writeLog(t, "restaurant_log.csv", restaurantLog)
	cfg := testConfig(path)

	info, err := Inspect(context.Background(), newTestPipeline(cfg).resolver, cfg)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Rows != 3 || len(info.Columns) != 7 || len(info.Missing) != 0 {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Span() != 10*time.Minute {
		t.Errorf("Expected 10m span, got %v", info.Span())
	}

	partial := writeLog(t, "partial.csv", "Timestamp,Tables\n2025-05-01 12:00:00,\n")
	cfg.Location = partial
	info, err = Inspect(context.Background(), newTestPipeline(cfg).resolver, cfg)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(info.Missing) != 4 {
		t.Errorf("Expected 4 missing columns, got %v", info.Missing)
	}
}
