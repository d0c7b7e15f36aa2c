package vo2trend

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/lucasjlepore/vo2-trend/fitstream"
)

var (
	// ErrNoActivities is returned when the activity collection itself is missing.
	ErrNoActivities = errors.New("activity collection is required")
	// ErrNilDecoder is returned when no decode function is supplied.
	ErrNilDecoder = errors.New("decode function is required")
	// ErrNoStream marks an archive payload without an embedded FIT stream.
	ErrNoStream = errors.New("archive contains no .fit entry")
)

// DecodePanicError wraps a panic raised by the decode function.
type DecodePanicError struct {
	Value any
}

func (e *DecodePanicError) Error() string {
	return fmt.Sprintf("decoder panic: %v", e.Value)
}

// Outcome classifies the per-activity result of a batch run.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeMetricAbsent Outcome = "metric_absent"
	OutcomeFailed       Outcome = "failed"
)

// Diagnostic describes what happened to one activity.
type Diagnostic struct {
	ActivityID   string   `json:"activity_id"`
	Label        string   `json:"label"`
	Outcome      Outcome  `json:"outcome"`
	Value        float64  `json:"vo2_max,omitempty"`
	Observations int      `json:"observations,omitempty"`
	DecodeErrors []string `json:"decode_errors,omitempty"`
	Error        string   `json:"error,omitempty"`
	Err          error    `json:"-"`
}

// Batch is the enriched result of Process. Activities and Diagnostics are
// index-aligned with the input.
type Batch struct {
	RunID       string
	Activities  []Activity
	Diagnostics []Diagnostic
}

// Count returns how many diagnostics have the given outcome.
func (b *Batch) Count(outcome Outcome) int {
	n := 0
	for _, d := range b.Diagnostics {
		if d.Outcome == outcome {
			n++
		}
	}
	return n
}

// Option configures optional behaviour for Process.
type Option func(*processor)

// WithLogger overrides the logger used to report per-activity outcomes.
func WithLogger(logger *log.Logger) Option {
	return func(p *processor) {
		p.logger = logger
	}
}

// WithMetrics records per-activity outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(p *processor) {
		p.metrics = m
	}
}

// WithRunID sets the identifier attached to the batch and its log lines.
func WithRunID(id string) Option {
	return func(p *processor) {
		p.runID = id
	}
}

type processor struct {
	decode  DecodeFunc
	logger  *log.Logger
	metrics *Metrics
	runID   string
}

// Process enriches every activity with its VO2 Max, one at a time and in
// input order. Per-activity failures become diagnostics and never abort the
// batch; only a missing collection or decoder is an error. The input slice
// is left untouched.
func Process(activities []Activity, decode DecodeFunc, opts ...Option) (*Batch, error) {
	if activities == nil {
		return nil, ErrNoActivities
	}
	if decode == nil {
		return nil, ErrNilDecoder
	}

	p := &processor{
		decode: decode,
		logger: log.New(log.Writer(), "[vo2trend] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}

	batch := &Batch{
		RunID:       p.runID,
		Activities:  make([]Activity, 0, len(activities)),
		Diagnostics: make([]Diagnostic, 0, len(activities)),
	}
	for _, activity := range activities {
		enriched, diag := p.processOne(activity)
		p.report(diag)
		p.metrics.record(diag)
		batch.Activities = append(batch.Activities, enriched)
		batch.Diagnostics = append(batch.Diagnostics, diag)
	}
	return batch, nil
}

func (p *processor) processOne(activity Activity) (Activity, Diagnostic) {
	out := activity
	out.Metric = 0
	out.MetricFound = false

	diag := Diagnostic{
		ActivityID: activity.ID,
		Label:      activity.Label(),
	}
	fail := func(err error) (Activity, Diagnostic) {
		diag.Outcome = OutcomeFailed
		diag.Err = err
		diag.Error = err.Error()
		return out, diag
	}

	stream, ok, err := fitstream.Normalize(activity.Payload)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(ErrNoStream)
	}

	ext, err := p.extract(stream)
	diag.DecodeErrors = ext.DecodeErrors
	if err != nil {
		return fail(fmt.Errorf("decode stream: %w", err))
	}

	out.Metric = ext.Value
	out.MetricFound = ext.Found
	diag.Value = ext.Value
	diag.Observations = ext.Observations
	if ext.Value > 0 {
		diag.Outcome = OutcomeOK
	} else {
		diag.Outcome = OutcomeMetricAbsent
	}
	return out, diag
}

func (p *processor) extract(stream []byte) (ext Extraction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DecodePanicError{Value: r}
		}
	}()
	return Extract(stream, p.decode)
}

func (p *processor) report(d Diagnostic) {
	if p.logger == nil {
		return
	}
	switch d.Outcome {
	case OutcomeOK:
		p.logger.Printf("run=%s activity=%q outcome=%s vo2_max=%.2f observations=%d", p.runID, d.Label, d.Outcome, d.Value, d.Observations)
	case OutcomeMetricAbsent:
		p.logger.Printf("run=%s activity=%q outcome=%s msg=%q", p.runID, d.Label, d.Outcome, "vo2 max not found or zero")
	default:
		p.logger.Printf("run=%s activity=%q outcome=%s err=%q", p.runID, d.Label, d.Outcome, d.Error)
	}
	if len(d.DecodeErrors) > 0 {
		p.logger.Printf("run=%s activity=%q decode_errors=%q", p.runID, d.Label, d.DecodeErrors)
	}
}
