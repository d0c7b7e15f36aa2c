// Package export writes a VO2 Max series and the batch report to an output
// directory.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	vo2trend "github.com/lucasjlepore/vo2-trend"
)

// Format is the on-disk encoding of the series.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

const (
	seriesBaseName = "vo2max_series"
	reportName     = "activities.json"
)

// ParseFormat normalizes s; empty means csv.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected csv|json|parquet)", s)
	}
}

// EnsureOutputDir creates path and refuses to reuse a non-empty directory
// unless overwrite is set.
func EnsureOutputDir(path string, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

// WriteSeries writes the series points in format and returns the file path.
// An empty series still produces a file with no rows.
func WriteSeries(dir string, series vo2trend.Series, format Format) (string, error) {
	path := filepath.Join(dir, seriesBaseName+"."+string(format))
	var err error
	switch format {
	case FormatCSV:
		err = writeSeriesCSV(path, series.Points)
	case FormatJSON:
		err = writeJSON(path, seriesRows(series.Points))
	case FormatParquet:
		err = writeSeriesParquet(path, series.Points)
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("write series %s: %w", format, err)
	}
	return path, nil
}

type seriesRow struct {
	Time     string  `json:"time"`
	VO2Max   float64 `json:"vo2_max"`
	Category string  `json:"category"`
	Color    string  `json:"color"`
}

func seriesRows(points []vo2trend.SeriesPoint) []seriesRow {
	rows := make([]seriesRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, seriesRow{
			Time:     formatTime(p.Time),
			VO2Max:   p.Value,
			Category: string(p.Category),
			Color:    string(p.Category.Color()),
		})
	}
	return rows
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeSeriesCSV(path string, points []vo2trend.SeriesPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "vo2_max", "category", "color"}); err != nil {
		return err
	}
	for _, row := range seriesRows(points) {
		if err := w.Write([]string{row.Time, formatFloat(row.VO2Max), row.Category, row.Color}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Summary counts per-activity outcomes of a batch.
type Summary struct {
	Total        int `json:"total"`
	OK           int `json:"ok"`
	MetricAbsent int `json:"metric_absent"`
	Failed       int `json:"failed"`
	Plotted      int `json:"plotted"`
	MissingTime  int `json:"missing_time"`
}

// Report is the content of activities.json.
type Report struct {
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Summary     Summary               `json:"summary"`
	Activities  []vo2trend.Activity   `json:"activities"`
	Diagnostics []vo2trend.Diagnostic `json:"diagnostics"`
}

// NewReport summarizes batch and the series built from it.
func NewReport(batch *vo2trend.Batch, series vo2trend.Series) Report {
	return Report{
		RunID:       batch.RunID,
		GeneratedAt: time.Now().UTC(),
		Summary: Summary{
			Total:        len(batch.Activities),
			OK:           batch.Count(vo2trend.OutcomeOK),
			MetricAbsent: batch.Count(vo2trend.OutcomeMetricAbsent),
			Failed:       batch.Count(vo2trend.OutcomeFailed),
			Plotted:      len(series.Points),
			MissingTime:  series.MissingTime,
		},
		Activities:  batch.Activities,
		Diagnostics: batch.Diagnostics,
	}
}

// WriteReport writes report as activities.json in dir and returns its path.
// Payloads are never included.
func WriteReport(dir string, report Report) (string, error) {
	path := filepath.Join(dir, reportName)
	if err := writeJSON(path, report); err != nil {
		return "", fmt.Errorf("write %s: %w", reportName, err)
	}
	return path, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
