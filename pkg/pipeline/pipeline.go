// Package pipeline sequences one trigger-driven run: capture a frame
// batch, classify each frame, take the ensemble vote, and deliver the
// decision to the bin controller. Everything a run produces is scoped
// to that run; only counters and the last decision survive for the
// status server.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-sorter/internal/log"
	"github.com/teslashibe/go-sorter/pkg/camera"
	"github.com/teslashibe/go-sorter/pkg/classifier"
	"github.com/teslashibe/go-sorter/pkg/vote"
)

// CaptureSource yields a staged frame batch. A short batch is allowed
// at this level; the orchestrator decides it is fatal.
type CaptureSource interface {
	Capture(ctx context.Context, n int) ([]camera.Frame, error)
}

// Classifier runs single-frame inference.
type Classifier interface {
	Classify(jpeg []byte) (classifier.Result, error)
}

// Transmitter delivers the final label, best-effort.
type Transmitter interface {
	Send(label string) error
}

// Event describes a completed decision, published to the live feed.
type Event struct {
	RunID     string         `json:"run_id"`
	Label     string         `json:"label"`
	Method    string         `json:"method"`
	Tally     map[string]int `json:"tally"`
	ElapsedMS int64          `json:"elapsed_ms"`
	Timestamp time.Time      `json:"timestamp"`
}

// Config holds the per-run parameters.
type Config struct {
	FrameCount int
	Classes    []string // ordered class set shared with the classifier
}

// Orchestrator wires the stages together. One Run at a time; the
// trigger listener enforces that by calling it synchronously.
type Orchestrator struct {
	cfg    Config
	source CaptureSource
	clf    Classifier
	tx     Transmitter
	stats  Stats

	onEvent func(Event)
}

// New creates an Orchestrator over the given stage implementations.
func New(cfg Config, source CaptureSource, clf Classifier, tx Transmitter) *Orchestrator {
	return &Orchestrator{cfg: cfg, source: source, clf: clf, tx: tx}
}

// OnEvent registers a callback invoked after every successful run.
// Must be set before the first Run.
func (o *Orchestrator) OnEvent(fn func(Event)) {
	o.onEvent = fn
}

// Stats returns a snapshot of run counters for the status server.
func (o *Orchestrator) Stats() Snapshot {
	return o.stats.snapshot()
}

// Run executes one capture-infer-vote-respond cycle. Any stage failure
// before a decision exists aborts the run; a delivery failure after the
// decision is only a warning.
func (o *Orchestrator) Run(ctx context.Context) (vote.Decision, error) {
	runID := uuid.NewString()[:8]
	logger := log.With("run", runID)
	start := time.Now()
	o.stats.started()

	logger.Info("run started", "frames", o.cfg.FrameCount)

	frames, err := o.source.Capture(ctx, o.cfg.FrameCount)
	if err != nil {
		return o.fail(logger, &CaptureError{Want: o.cfg.FrameCount, Err: err})
	}
	if len(frames) < o.cfg.FrameCount {
		return o.fail(logger, &CaptureError{Want: o.cfg.FrameCount, Got: len(frames)})
	}

	ballots := make([]vote.Ballot, 0, len(frames))
	for _, f := range frames {
		res, err := o.clf.Classify(f.JPEG)
		if err != nil {
			return o.fail(logger, &ClassificationError{Ordinal: f.Ordinal, Path: f.Path, Err: err})
		}
		logger.Info("frame classified",
			"ordinal", f.Ordinal,
			"path", f.Path,
			"label", res.Label,
			"confidence", fmt.Sprintf("%.2f%%", res.Confidence),
			"probs", res.Probs)
		ballots = append(ballots, res.Ballot())
	}

	decision, err := vote.Decide(o.cfg.Classes, ballots)
	if err != nil {
		return o.fail(logger, fmt.Errorf("pipeline: vote: %w", err))
	}

	logger.Info("decision",
		"label", decision.Label,
		"method", decision.Method,
		"tally", decision.Tally)

	// The run is complete once a decision exists; delivery is
	// best-effort and never rolls the run back.
	if err := o.tx.Send(decision.Label); err != nil {
		logger.Warn("result delivery failed", "error", err)
	}

	elapsed := time.Since(start)
	o.stats.succeeded(decision)
	logger.Info("run complete", "label", decision.Label, "elapsed", elapsed)

	if o.onEvent != nil {
		o.onEvent(Event{
			RunID:     runID,
			Label:     decision.Label,
			Method:    string(decision.Method),
			Tally:     decision.Tally,
			ElapsedMS: elapsed.Milliseconds(),
			Timestamp: time.Now(),
		})
	}

	return decision, nil
}

func (o *Orchestrator) fail(logger *slog.Logger, err error) (vote.Decision, error) {
	o.stats.failed(err)
	logger.Error("run failed", "error", err)
	return vote.Decision{}, err
}
