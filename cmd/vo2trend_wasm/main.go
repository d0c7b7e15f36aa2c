//go:build js && wasm

package main

import (
	"log"
	"syscall/js"
	"time"

	vo2trend "github.com/lucasjlepore/vo2-trend"
	"github.com/lucasjlepore/vo2-trend/fitdecode"
	"github.com/lucasjlepore/vo2-trend/source"
)

func main() {
	js.Global().Set("vo2Series", js.FuncOf(vo2Series))
	select {}
}

// vo2Series takes an array of {name, bytes, category?, start?} objects, where
// start uses the startTimeLocal layout, and returns the processed batch.
func vo2Series(_ js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].IsUndefined() || args[0].IsNull() {
		return map[string]any{
			"ok":    false,
			"error": "expected arguments: activities(Array<{name, bytes, category, start}>)",
		}
	}
	list := args[0]
	n := list.Get("length").Int()

	uploads := make([]source.Upload, n)
	for i := range uploads {
		item := list.Index(i)
		uploads[i] = source.Upload{
			Name:     getString(item, "name", ""),
			Category: getString(item, "category", ""),
			Start:    getString(item, "start", ""),
		}
		if bytesArg := item.Get("bytes"); !bytesArg.IsUndefined() && !bytesArg.IsNull() {
			uploads[i].Payload = make([]byte, bytesArg.Get("length").Int())
			js.CopyBytesToGo(uploads[i].Payload, bytesArg)
		}
	}
	activities, err := source.FromUploads(uploads)
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": err.Error(),
		}
	}

	batch, err := vo2trend.Process(activities, fitdecode.Decode, vo2trend.WithLogger(log.Default()))
	if err != nil {
		return map[string]any{
			"ok":    false,
			"error": err.Error(),
		}
	}
	series := vo2trend.BuildSeries(batch.Activities)

	points := make([]any, 0, len(series.Points))
	for _, p := range series.Points {
		points = append(points, map[string]any{
			"time":     p.Time.Format(time.RFC3339),
			"vo2_max":  p.Value,
			"category": string(p.Category),
			"color":    string(p.Category.Color()),
		})
	}
	diagnostics := make([]any, 0, len(batch.Diagnostics))
	for _, d := range batch.Diagnostics {
		diagnostics = append(diagnostics, map[string]any{
			"label":         d.Label,
			"outcome":       string(d.Outcome),
			"vo2_max":       d.Value,
			"error":         d.Error,
			"decode_errors": stringsToAny(d.DecodeErrors),
		})
	}

	return map[string]any{
		"ok":          true,
		"run_id":      batch.RunID,
		"points":      points,
		"diagnostics": diagnostics,
		"empty":       series.Empty(),
	}
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
