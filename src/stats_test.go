package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendRunStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	runs := []*runSummary{
		{Seed: 1, RowsRead: 10, RowsKept: 6, RowsSampled: 4},
		{Seed: 2, RowsRead: 12, RowsKept: 7, RowsSampled: 4, DuplicateIDs: 1},
	}
	for _, s := range runs {
		if err := appendRunStats(path, "in.csv", s, now); err != nil {
			t.Fatalf("appendRunStats failed: %v", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("stats.csv is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected header plus 2 lines, got %d records", len(records))
	}
	if records[0][0] != "timestamp" || len(records[0]) != len(statsCSVHeader) {
		t.Errorf("Unexpected header: %v", records[0])
	}
	want := []string{"2024-05-01T12:00:00Z", "in.csv", "12", "7", "4", "2", "1"}
	for i, v := range want {
		if records[2][i] != v {
			t.Errorf("Field %s = %q, expected %q", statsCSVHeader[i], records[2][i], v)
		}
	}
}

func TestAppendRunStatsMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "stats.csv")
	if err := appendRunStats(path, "in.csv", &runSummary{}, time.Now()); err == nil {
		t.Error("Expected error when the log directory does not exist")
	}
}
