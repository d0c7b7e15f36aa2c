package cli

import (
	"bytes"
	"encoding/csv"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/lucasjlepore/vo2-trend/internal/fittest"
)

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	start := time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC)
	files := map[string][]byte{
		"1_run.fit": fittest.Activity{
			Start: start, Sport: uint8(fit.SportRunning), VO2Max: []uint32{65536 * 14},
		}.Stream(),
		"2_ride.zip": fittest.Zip(fittest.Entry{Name: "2_ACTIVITY.fit", Data: fittest.Activity{
			Start: start.AddDate(0, 0, 2), Sport: uint8(fit.SportCycling), VO2Max: []uint32{65536 * 15},
		}.Stream()}),
		"3_walk.fit":   fittest.Activity{Start: start.AddDate(0, 0, 1), Sport: uint8(fit.SportWalking)}.Stream(),
		"4_broken.fit": []byte("definitely not fit"),
	}
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestProcessWritesOutputs(t *testing.T) {
	in := writeInputs(t)
	out := filepath.Join(t.TempDir(), "out")
	metrics := filepath.Join(t.TempDir(), "vo2.prom")

	var stdout bytes.Buffer
	err := process(processOptions{
		InputDir:    in,
		OutDir:      out,
		Format:      "csv",
		Chart:       true,
		MetricsFile: metrics,
	}, &stdout, quietLogger())
	require.NoError(t, err)

	text := stdout.String()
	require.Contains(t, text, "ok       "+filepath.Join(in, "1_run.fit")+": VO2 Max 49.00")
	require.Contains(t, text, "absent   "+filepath.Join(in, "3_walk.fit"))
	require.Contains(t, text, "failed   "+filepath.Join(in, "4_broken.fit"))
	require.Contains(t, text, "ok=2 metric_absent=1 failed=1, 2 plotted")

	f, err := os.Open(filepath.Join(out, "vo2max_series.csv"))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "running", rows[1][2])
	require.Equal(t, "52.50", rows[2][1])

	require.FileExists(t, filepath.Join(out, "activities.json"))
	require.FileExists(t, filepath.Join(out, chartName))

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	require.Contains(t, string(prom), `vo2trend_batch_activities_total{outcome="failed"} 1`)
}

func TestProcessEmptySeries(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.fit"), fittest.VO2MaxStream(), 0o644))
	out := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	err := process(processOptions{InputDir: in, OutDir: out, Format: "json", Chart: true}, &stdout, quietLogger())
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "No VO2 Max values to plot.")
	require.NoFileExists(t, filepath.Join(out, chartName))
	require.FileExists(t, filepath.Join(out, "vo2max_series.json"))
}

func TestProcessManifest(t *testing.T) {
	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "11.fit"), fittest.VO2MaxStream(65536*13), 0o644))
	manifest := filepath.Join(in, "activities.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`[
		{"activityId": 11, "activityName": "Tempo", "activityType": {"typeKey": "running"}, "startTimeLocal": "2025-07-04 06:30:00"},
		{"activityId": 12, "activityName": "Yoga", "activityType": {"typeKey": "yoga"}}
	]`), 0o644))
	out := filepath.Join(t.TempDir(), "out")

	var stdout bytes.Buffer
	err := process(processOptions{Manifest: manifest, OutDir: out, Format: "parquet"}, &stdout, quietLogger())
	require.NoError(t, err)
	text := stdout.String()
	require.Contains(t, text, `skipped  12 "Yoga"`)
	require.Contains(t, text, "VO2 Max 45.50")
	require.FileExists(t, filepath.Join(out, "vo2max_series.parquet"))
	require.NoFileExists(t, filepath.Join(out, chartName))
}

func TestProcessPreconditions(t *testing.T) {
	var stdout bytes.Buffer
	err := process(processOptions{OutDir: t.TempDir()}, &stdout, quietLogger())
	require.ErrorContains(t, err, "--dir or --manifest")

	err = process(processOptions{InputDir: t.TempDir(), OutDir: t.TempDir(), Format: "xlsx"}, &stdout, quietLogger())
	require.ErrorContains(t, err, "unsupported format")

	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "keep.txt"), []byte("x"), 0o644))
	err = process(processOptions{InputDir: t.TempDir(), OutDir: out}, &stdout, quietLogger())
	require.ErrorContains(t, err, "not empty")
}

func TestInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.zip")
	stream := fittest.Activity{
		Start:  time.Date(2025, 7, 1, 6, 0, 0, 0, time.UTC),
		Sport:  uint8(fit.SportRunning),
		VO2Max: []uint32{65536 * 13, 65536 * 14},
	}.Stream()
	require.NoError(t, os.WriteFile(path, fittest.Zip(fittest.Entry{Name: "run.fit", Data: stream}), 0o644))

	var stdout bytes.Buffer
	require.NoError(t, inspect(path, &stdout))
	text := stdout.String()
	require.Contains(t, text, "zip")
	require.Contains(t, text, "category:  running")
	require.Contains(t, text, "file_id (0)")
	require.Equal(t, 2, strings.Count(text, "raw="))
	require.Contains(t, text, "vo2_max:   49.00 (2 observations, last wins)")
}

func TestInspectArchiveWithoutStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, os.WriteFile(path, fittest.Zip(fittest.Entry{Name: "readme.txt", Data: []byte("hi")}), 0o644))
	err := inspect(path, io.Discard)
	require.ErrorContains(t, err, "no .fit entry")
}
