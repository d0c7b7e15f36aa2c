// Package source loads downloaded activities from disk into the shape the
// batch processor consumes.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	vo2trend "github.com/lucasjlepore/vo2-trend"
	"github.com/lucasjlepore/vo2-trend/fitdecode"
	"github.com/lucasjlepore/vo2-trend/fitstream"
)

// StartTimeLayout is the layout of startTimeLocal in activity listings.
const StartTimeLayout = "2006-01-02 15:04:05"

const unnamedActivity = "Unnamed Activity"

// payloadExts are the file suffixes LoadDir picks up, longest first.
var payloadExts = []string{".fit.gz", ".fit", ".zip"}

// LoadDir turns every .fit, .zip and .fit.gz file in dir into an activity,
// sorted by file name. Category and start time come from the decoded stream
// and stay empty when it cannot be read.
func LoadDir(dir string) ([]vo2trend.Activity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	activities := make([]vo2trend.Activity, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := payloadExt(entry.Name())
		if ext == "" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		activity := vo2trend.Activity{
			ID:      entry.Name()[:len(entry.Name())-len(ext)],
			Name:    entry.Name(),
			Path:    path,
			Payload: payload,
		}
		fillFromStream(&activity)
		activities = append(activities, activity)
	}
	return activities, nil
}

func payloadExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range payloadExts {
		if strings.HasSuffix(lower, ext) && len(name) > len(ext) {
			return ext
		}
	}
	return ""
}

// fillFromStream sets whatever category and start time the payload reveals
// without overwriting values already present.
func fillFromStream(a *vo2trend.Activity) {
	if a.Category != "" && !a.StartTime.IsZero() {
		return
	}
	stream, ok, err := fitstream.Normalize(a.Payload)
	if err != nil || !ok {
		return
	}
	records, _, err := fitdecode.Decode(stream)
	if err != nil {
		return
	}
	summary := fitdecode.Summarize(records)
	if a.Category == "" {
		a.Category = summary.Category
	}
	if a.StartTime.IsZero() {
		a.StartTime = summary.StartTime
	}
}

// ManifestOptions tunes LoadManifest.
type ManifestOptions struct {
	// AllowAnyCategory keeps activities outside running, trail_running,
	// walking and cycling.
	AllowAnyCategory bool
	// Location interprets startTimeLocal; time.Local when nil.
	Location *time.Location
}

// Skip records a manifest entry that was not loaded.
type Skip struct {
	ID     string
	Name   string
	Reason string
}

type manifestEntry struct {
	ActivityID   json.Number `json:"activityId"`
	ActivityName string      `json:"activityName"`
	ActivityType struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
	StartTimeLocal string `json:"startTimeLocal"`
	File           string `json:"file"`
}

// LoadManifest reads a JSON activity listing and the payload files it
// references. Files are resolved relative to the manifest; an entry without
// a file falls back to <activityId>.zip, then <activityId>.fit.
//
// Entries outside the known categories and entries whose file is missing are
// returned as skips instead of failing the load.
func LoadManifest(path string, opts ManifestOptions) ([]vo2trend.Activity, []Skip, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries []manifestEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	base := filepath.Dir(path)

	activities := make([]vo2trend.Activity, 0, len(entries))
	var skipped []Skip
	for i, e := range entries {
		id := e.ActivityID.String()
		if id == "" {
			id = fmt.Sprintf("entry-%d", i)
		}
		name := e.ActivityName
		if name == "" {
			name = unnamedActivity
		}
		category := vo2trend.Category(strings.ToLower(strings.TrimSpace(e.ActivityType.TypeKey)))
		if !category.Known() && !opts.AllowAnyCategory {
			skipped = append(skipped, Skip{ID: id, Name: name, Reason: fmt.Sprintf("activity type %q not tracked", category)})
			continue
		}

		file, payload, err := readPayload(base, id, e.File)
		if errors.Is(err, fs.ErrNotExist) {
			skipped = append(skipped, Skip{ID: id, Name: name, Reason: "payload file not found"})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read payload for activity %s: %w", id, err)
		}

		activity := vo2trend.Activity{
			ID:       id,
			Name:     name,
			Path:     file,
			Category: category,
			Payload:  payload,
		}
		if s := strings.TrimSpace(e.StartTimeLocal); s != "" {
			if t, err := time.ParseInLocation(StartTimeLayout, s, loc); err == nil {
				activity.StartTime = t
			}
		}
		fillFromStream(&activity)
		activities = append(activities, activity)
	}
	return activities, skipped, nil
}

func readPayload(base, id, file string) (string, []byte, error) {
	candidates := []string{file}
	if file == "" {
		candidates = []string{id + ".zip", id + ".fit"}
	}
	var lastErr error
	for _, c := range candidates {
		path := c
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, c)
		}
		payload, err := os.ReadFile(path)
		if err == nil {
			return path, payload, nil
		}
		lastErr = err
	}
	return "", nil, lastErr
}

// Upload is one in-memory activity handed over by a caller that has no
// file system, such as the browser bridge. A nil Payload means the caller
// supplied no bytes at all.
type Upload struct {
	Name     string
	Category string
	Start    string
	Payload  []byte
}

// FromUploads converts uploads into activities, keeping their order so
// results line up with the caller's list. An upload without a payload fails
// the whole call and names its index.
func FromUploads(uploads []Upload) ([]vo2trend.Activity, error) {
	activities := make([]vo2trend.Activity, 0, len(uploads))
	for i, u := range uploads {
		if u.Payload == nil {
			return nil, fmt.Errorf("activity %d has no bytes", i)
		}
		name := strings.TrimSpace(u.Name)
		if name == "" {
			name = fmt.Sprintf("activity-%d", i+1)
		}
		a := vo2trend.Activity{
			ID:       name,
			Name:     name,
			Category: vo2trend.Category(strings.ToLower(strings.TrimSpace(u.Category))),
			Payload:  u.Payload,
		}
		if s := strings.TrimSpace(u.Start); s != "" {
			if t, err := time.ParseInLocation(StartTimeLayout, s, time.Local); err == nil {
				a.StartTime = t
			}
		}
		fillFromStream(&a)
		activities = append(activities, a)
	}
	return activities, nil
}
