package main

import (
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"
)

var statsCSVHeader = []string{
	"timestamp",
	"input",
	"rows_read",
	"rows_kept",
	"rows_sampled",
	"seed",
	"duplicate_ids",
}

// ensureStatsCSVHeader creates the stats CSV file and writes the header if it doesn't exist.
func ensureStatsCSVHeader(path string) error {
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	writer := csv.NewWriter(f)
	writer.Write(statsCSVHeader)
	writer.Flush()
	return writer.Error()
}

// appendRunStats appends one line describing a finished run to the stats CSV.
func appendRunStats(path, input string, s *runSummary, now time.Time) error {
	if err := ensureStatsCSVHeader(path); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(f)
	writer.Write([]string{
		now.Format(time.RFC3339),
		input,
		strconv.Itoa(s.RowsRead),
		strconv.Itoa(s.RowsKept),
		strconv.Itoa(s.RowsSampled),
		strconv.FormatInt(s.Seed, 10),
		strconv.Itoa(s.DuplicateIDs),
	})
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
