// Package history retains recent cascade predictions in a fixed-capacity
// ring, oldest evicted first, and optionally forwards each appended
// prediction to a time-series recorder.
package history

import (
	"context"
	"errors"
	"sync"

	"github.com/dd0wney/cluso-cascade/pkg/logging"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

// DefaultCapacity bounds retained predictions when none is configured.
const DefaultCapacity = 100

// Recorder receives every appended prediction, typically for durable
// time-series storage. Recorder failures never fail the append.
type Recorder interface {
	Record(ctx context.Context, pred *simulation.Prediction) error
}

// MultiRecorder fans one prediction out to several recorders. A failing
// recorder does not stop the others; their errors are joined.
func MultiRecorder(recorders ...Recorder) Recorder {
	active := make([]Recorder, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			active = append(active, r)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return multiRecorder(active)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(ctx context.Context, pred *simulation.Prediction) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, pred); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config tunes the history buffer.
type Config struct {
	// Capacity bounds retained predictions. Zero or negative selects
	// DefaultCapacity.
	Capacity int
}

// History is a fixed-capacity prediction buffer safe for concurrent use.
type History struct {
	recorder Recorder
	logger   logging.Logger

	mu    sync.RWMutex
	ring  []*simulation.Prediction
	head  int
	count int
}

// NewHistory creates a prediction history. The recorder may be nil.
func NewHistory(cfg Config, recorder Recorder, logger logging.Logger) *History {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &History{
		recorder: recorder,
		logger:   logging.OrNop(logger),
		ring:     make([]*simulation.Prediction, cfg.Capacity),
	}
}

// Append retains a prediction, evicting the oldest when full, and forwards
// it to the recorder when one is configured.
func (h *History) Append(ctx context.Context, pred *simulation.Prediction) {
	if pred == nil {
		return
	}

	h.mu.Lock()
	h.ring[h.head] = pred
	h.head = (h.head + 1) % len(h.ring)
	if h.count < len(h.ring) {
		h.count++
	}
	h.mu.Unlock()

	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(ctx, pred); err != nil {
		h.logger.Warn("prediction recorder failed",
			logging.PredictionID(pred.ID),
			logging.Error(err))
	}
}

// Recent returns up to limit predictions, newest first. Non-positive
// limits return everything retained.
func (h *History) Recent(limit int) []*simulation.Prediction {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := h.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*simulation.Prediction, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.head - 1 - i + len(h.ring)) % len(h.ring)
		out = append(out, h.ring[idx])
	}
	return out
}

// LatestFor returns the newest prediction whose cascade started at the
// given node.
func (h *History) LatestFor(nodeID string) (*simulation.Prediction, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := 0; i < h.count; i++ {
		idx := (h.head - 1 - i + len(h.ring)) % len(h.ring)
		if h.ring[idx].InitialFailureNode == nodeID {
			return h.ring[idx], true
		}
	}
	return nil, false
}

// Len returns the number of retained predictions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Cap returns the maximum number of retained predictions.
func (h *History) Cap() int {
	return len(h.ring)
}
