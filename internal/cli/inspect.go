package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	vo2trend "github.com/lucasjlepore/vo2-trend"
	"github.com/lucasjlepore/vo2-trend/fitdecode"
	"github.com/lucasjlepore/vo2-trend/fitstream"
)

func init() {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the VO2 Max records and decode warnings of one activity file",
		Args:  cobra.ExactArgs(1),
		Run:   runInspect,
	}

	RootCmd.AddCommand(cmd)
}

func runInspect(cmd *cobra.Command, args []string) {
	if err := inspect(args[0], cmd.OutOrStdout()); err != nil {
		exitErr("inspect", err)
	}
}

func inspect(path string, out io.Writer) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read activity file: %w", err)
	}

	fmt.Fprintf(out, "file:      %s (%d bytes, %s)\n", path, len(payload), fitstream.Detect(payload))
	stream, ok, err := fitstream.Normalize(payload)
	if err != nil {
		return err
	}
	if !ok {
		return vo2trend.ErrNoStream
	}

	records, warnings, err := fitdecode.Decode(stream)
	if err != nil {
		return fmt.Errorf("decode stream: %w", err)
	}

	summary := fitdecode.Summarize(records)
	if summary.HasSport {
		fmt.Fprintf(out, "category:  %s\n", summary.Category)
	}
	if !summary.StartTime.IsZero() {
		fmt.Fprintf(out, "start:     %s\n", summary.StartTime.Format("2006-01-02 15:04:05 -07:00"))
	}

	counts := make(map[uint16]int)
	for _, rec := range records {
		counts[rec.Type]++
	}
	globals := make([]uint16, 0, len(counts))
	for g := range counts {
		globals = append(globals, g)
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i] < globals[j] })
	fmt.Fprintf(out, "messages:  %d\n", len(records))
	for _, g := range globals {
		fmt.Fprintf(out, "  %-24s %5d\n", fmt.Sprintf("%s (%d)", fitdecode.MessageName(g), g), counts[g])
	}

	for i, rec := range records {
		if rec.Type != vo2trend.MesgNumVO2Max {
			continue
		}
		raw, ok := rec.Fields[vo2trend.FieldVO2MaxRaw]
		if !ok {
			fmt.Fprintf(out, "record %d: no VO2 Max field\n", i)
			continue
		}
		fmt.Fprintf(out, "record %d: raw=%v\n", i, raw)
	}

	ext, err := vo2trend.Extract(stream, fitdecode.Decode)
	if err != nil {
		return err
	}
	if ext.Value > 0 {
		fmt.Fprintf(out, "vo2_max:   %.2f (%d observations, last wins)\n", ext.Value, ext.Observations)
	} else {
		fmt.Fprintln(out, "vo2_max:   not found or zero")
	}
	for _, w := range warnings {
		fmt.Fprintf(out, "warning:   %s\n", w)
	}
	return nil
}
