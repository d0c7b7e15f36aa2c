package cli

import (
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	vo2trend "github.com/lucasjlepore/vo2-trend"
	"github.com/lucasjlepore/vo2-trend/export"
	"github.com/lucasjlepore/vo2-trend/fitdecode"
	"github.com/lucasjlepore/vo2-trend/internal/config"
	"github.com/lucasjlepore/vo2-trend/render"
	"github.com/lucasjlepore/vo2-trend/source"
)

const chartName = "vo2max_chart.png"

func init() {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract VO2 Max from a batch of activities and write the series",
		Run:   runProcess,
	}
	cmd.Flags().String("dir", "", "Directory of .fit, .zip or .fit.gz files (default: $VO2_INPUT_DIR)")
	cmd.Flags().String("manifest", "", "JSON activity listing to load instead of --dir (default: $VO2_MANIFEST)")
	cmd.Flags().String("out", "", "Output directory (default: $VO2_OUT_DIR or ./vo2_out)")
	cmd.Flags().String("format", "", "Series format: csv, json or parquet (default: $VO2_FORMAT or csv)")
	cmd.Flags().Bool("chart", true, "Render a PNG chart of the series")
	cmd.Flags().String("metrics-file", "", "Write batch metrics in Prometheus text format to this file")
	cmd.Flags().Bool("overwrite", false, "Allow writing into a non-empty output directory")
	cmd.Flags().Bool("any-category", false, "Keep manifest activities outside running, trail_running, walking and cycling")

	RootCmd.AddCommand(cmd)
}

type processOptions struct {
	InputDir         string
	Manifest         string
	OutDir           string
	Format           string
	Chart            bool
	MetricsFile      string
	Overwrite        bool
	AllowAnyCategory bool
}

func optionsFromConfig(cfg config.Config) processOptions {
	return processOptions{
		InputDir:         cfg.InputDir,
		Manifest:         cfg.Manifest,
		OutDir:           cfg.OutDir,
		Format:           cfg.Format,
		Chart:            cfg.Chart,
		MetricsFile:      cfg.MetricsFile,
		Overwrite:        cfg.Overwrite,
		AllowAnyCategory: cfg.AllowAnyCategory,
	}
}

func runProcess(cmd *cobra.Command, args []string) {
	opts := optionsFromConfig(loadConfig())
	flags := cmd.Flags()
	if flags.Changed("dir") {
		opts.InputDir, _ = flags.GetString("dir")
		opts.Manifest = ""
	}
	if flags.Changed("manifest") {
		opts.Manifest, _ = flags.GetString("manifest")
	}
	if flags.Changed("out") {
		opts.OutDir, _ = flags.GetString("out")
	}
	if flags.Changed("format") {
		opts.Format, _ = flags.GetString("format")
	}
	if flags.Changed("chart") {
		opts.Chart, _ = flags.GetBool("chart")
	}
	if flags.Changed("metrics-file") {
		opts.MetricsFile, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("overwrite") {
		opts.Overwrite, _ = flags.GetBool("overwrite")
	}
	if flags.Changed("any-category") {
		opts.AllowAnyCategory, _ = flags.GetBool("any-category")
	}

	logger := log.New(cmd.ErrOrStderr(), "[vo2trend] ", log.LstdFlags)
	if err := process(opts, cmd.OutOrStdout(), logger); err != nil {
		exitErr("process", err)
	}
}

// process runs the whole batch: load, extract, build the series and write
// every output. Per-activity failures are printed, never returned.
func process(opts processOptions, out io.Writer, logger *log.Logger) error {
	format, err := export.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	activities, skipped, err := loadActivities(opts)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		fmt.Fprintf(out, "skipped  %s %q: %s\n", s.ID, s.Name, s.Reason)
	}

	if err := export.EnsureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	batch, err := vo2trend.Process(activities, fitdecode.Decode,
		vo2trend.WithLogger(logger),
		vo2trend.WithMetrics(vo2trend.NewMetrics(reg)),
	)
	if err != nil {
		return err
	}
	for _, d := range batch.Diagnostics {
		printDiagnostic(out, d)
	}

	series := vo2trend.BuildSeries(batch.Activities)
	seriesPath, err := export.WriteSeries(opts.OutDir, series, format)
	if err != nil {
		return err
	}
	reportPath, err := export.WriteReport(opts.OutDir, export.NewReport(batch, series))
	if err != nil {
		return err
	}

	if series.Empty() {
		fmt.Fprintln(out, "No VO2 Max values to plot.")
	} else if opts.Chart {
		chartPath := filepath.Join(opts.OutDir, chartName)
		if err := render.RenderFile(chartPath, series, render.Options{}); err != nil && !errors.Is(err, render.ErrNothingToPlot) {
			return err
		}
		fmt.Fprintf(out, "chart:   %s\n", chartPath)
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	fmt.Fprintf(out, "series:  %s\n", seriesPath)
	fmt.Fprintf(out, "report:  %s\n", reportPath)
	fmt.Fprintf(out, "run %s: %d activities, ok=%d metric_absent=%d failed=%d, %d plotted",
		batch.RunID, len(batch.Activities),
		batch.Count(vo2trend.OutcomeOK), batch.Count(vo2trend.OutcomeMetricAbsent), batch.Count(vo2trend.OutcomeFailed),
		len(series.Points))
	if series.MissingTime > 0 {
		fmt.Fprintf(out, ", %d without start time", series.MissingTime)
	}
	fmt.Fprintln(out)
	return nil
}

func loadActivities(opts processOptions) ([]vo2trend.Activity, []source.Skip, error) {
	switch {
	case strings.TrimSpace(opts.Manifest) != "":
		return source.LoadManifest(opts.Manifest, source.ManifestOptions{AllowAnyCategory: opts.AllowAnyCategory})
	case strings.TrimSpace(opts.InputDir) != "":
		activities, err := source.LoadDir(opts.InputDir)
		return activities, nil, err
	default:
		return nil, nil, fmt.Errorf("an input is required: set --dir or --manifest")
	}
}

func printDiagnostic(out io.Writer, d vo2trend.Diagnostic) {
	switch d.Outcome {
	case vo2trend.OutcomeOK:
		fmt.Fprintf(out, "ok       %s: VO2 Max %.2f\n", d.Label, d.Value)
	case vo2trend.OutcomeMetricAbsent:
		fmt.Fprintf(out, "absent   %s: VO2 Max not found or zero\n", d.Label)
	default:
		fmt.Fprintf(out, "failed   %s: %s\n", d.Label, d.Error)
	}
	for _, w := range d.DecodeErrors {
		fmt.Fprintf(out, "         warning: %s\n", w)
	}
}
