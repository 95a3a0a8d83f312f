package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordRun(t *testing.T) {
	m := New()
	m.RowsRead.Add(10)
	m.RowsKept.Add(6)
	m.RowsSampled.Add(4)
	m.DuplicateIDs.Set(1)

	start := time.Unix(1700000000, 0)
	m.Finish(start, start.Add(1500*time.Millisecond))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"rows_read", testutil.ToFloat64(m.RowsRead), 10},
		{"rows_kept", testutil.ToFloat64(m.RowsKept), 6},
		{"rows_sampled", testutil.ToFloat64(m.RowsSampled), 4},
		{"duplicate_ids", testutil.ToFloat64(m.DuplicateIDs), 1},
		{"run_duration", testutil.ToFloat64(m.RunDuration), 1.5},
		{"last_success", testutil.ToFloat64(m.LastSuccess), 1700000001},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, expected %v", c.name, c.got, c.want)
		}
	}

	families, err := m.registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) != 6 {
		t.Errorf("Expected 6 metric families, got %d", len(families))
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RowsSampled.Add(20000)

	path := filepath.Join(t.TempDir(), "hn_sample.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hnsample_rows_sampled_total 20000") {
		t.Errorf("Textfile missing sampled counter:\n%s", data)
	}
}

func TestWriteTextfileMissingDir(t *testing.T) {
	m := New()
	path := filepath.Join(t.TempDir(), "missing", "hn_sample.prom")
	if err := m.WriteTextfile(path); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}
