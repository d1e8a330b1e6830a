package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

type stubRecorder struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *stubRecorder) Record(_ context.Context, pred *simulation.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, pred.ID)
	return r.err
}

func (r *stubRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func mkPred(id, nodeID string) *simulation.Prediction {
	return &simulation.Prediction{
		ID:                 id,
		Timestamp:          time.Now(),
		InitialFailureNode: nodeID,
		FailureMode:        "overload",
		CascadeProbability: 0.5,
	}
}

func TestAppendAndRecent(t *testing.T) {
	h := NewHistory(Config{}, nil, nil)
	if h.Cap() != DefaultCapacity {
		t.Fatalf("Cap = %d, want %d", h.Cap(), DefaultCapacity)
	}

	h.Append(context.Background(), mkPred("p1", "a"))
	h.Append(context.Background(), mkPred("p2", "b"))
	h.Append(context.Background(), mkPred("p3", "c"))

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}

	recent := h.Recent(2)
	if len(recent) != 2 || recent[0].ID != "p3" || recent[1].ID != "p2" {
		t.Errorf("Recent(2) = %v", ids(recent))
	}

	all := h.Recent(0)
	if len(all) != 3 || all[0].ID != "p3" || all[2].ID != "p1" {
		t.Errorf("Recent(0) = %v", ids(all))
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	h := NewHistory(Config{Capacity: 5}, nil, nil)
	for i := 1; i <= 8; i++ {
		h.Append(context.Background(), mkPred(fmt.Sprintf("p%d", i), fmt.Sprintf("n%d", i)))
	}

	if h.Len() != 5 {
		t.Fatalf("Len = %d, want 5", h.Len())
	}

	all := h.Recent(0)
	want := []string{"p8", "p7", "p6", "p5", "p4"}
	got := ids(all)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Recent(0) = %v, want %v", got, want)
		}
	}

	if _, ok := h.LatestFor("n1"); ok {
		t.Error("evicted prediction still findable")
	}
	if p, ok := h.LatestFor("n8"); !ok || p.ID != "p8" {
		t.Error("newest prediction missing")
	}
}

func TestLatestForPicksNewest(t *testing.T) {
	h := NewHistory(Config{}, nil, nil)
	h.Append(context.Background(), mkPred("old", "power_1"))
	h.Append(context.Background(), mkPred("mid", "water_1"))
	h.Append(context.Background(), mkPred("new", "power_1"))

	p, ok := h.LatestFor("power_1")
	if !ok || p.ID != "new" {
		t.Errorf("LatestFor(power_1) = %v, %v", p, ok)
	}
	if _, ok := h.LatestFor("nonexistent"); ok {
		t.Error("LatestFor(nonexistent) found a prediction")
	}
}

func TestRecorderReceivesAppends(t *testing.T) {
	rec := &stubRecorder{}
	h := NewHistory(Config{}, rec, nil)

	h.Append(context.Background(), mkPred("p1", "a"))
	h.Append(context.Background(), mkPred("p2", "b"))

	got := rec.recorded()
	if len(got) != 2 || got[0] != "p1" || got[1] != "p2" {
		t.Errorf("recorded = %v", got)
	}
}

func TestRecorderFailureDoesNotDropPrediction(t *testing.T) {
	rec := &stubRecorder{err: errors.New("influx down")}
	h := NewHistory(Config{}, rec, nil)

	h.Append(context.Background(), mkPred("p1", "a"))

	if h.Len() != 1 {
		t.Errorf("Len = %d after recorder failure, want 1", h.Len())
	}
	if p, ok := h.LatestFor("a"); !ok || p.ID != "p1" {
		t.Error("prediction missing after recorder failure")
	}
}

func TestAppendIgnoresNil(t *testing.T) {
	h := NewHistory(Config{}, nil, nil)
	h.Append(context.Background(), nil)
	if h.Len() != 0 {
		t.Errorf("Len = %d after nil append, want 0", h.Len())
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	h := NewHistory(Config{Capacity: 32}, nil, nil)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				h.Append(context.Background(), mkPred(fmt.Sprintf("w%d-p%d", w, i), "a"))
				h.Recent(10)
				h.LatestFor("a")
			}
		}(w)
	}
	wg.Wait()

	if h.Len() != 32 {
		t.Errorf("Len = %d, want full ring", h.Len())
	}
}

func ids(preds []*simulation.Prediction) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.ID
	}
	return out
}

func TestMultiRecorderFansOut(t *testing.T) {
	first := &stubRecorder{err: errors.New("influx down")}
	second := &stubRecorder{}
	multi := MultiRecorder(first, second)

	err := multi.Record(context.Background(), mkPred("p1", "power_1"))
	if err == nil {
		t.Error("expected joined error from failing recorder")
	}
	if got := first.recorded(); len(got) != 1 || got[0] != "p1" {
		t.Errorf("first recorder saw %v", got)
	}
	if got := second.recorded(); len(got) != 1 || got[0] != "p1" {
		t.Errorf("second recorder saw %v, failure must not stop fan-out", got)
	}
}

func TestMultiRecorderCollapses(t *testing.T) {
	if MultiRecorder() != nil {
		t.Error("no recorders should collapse to nil")
	}
	if MultiRecorder(nil, nil) != nil {
		t.Error("all-nil recorders should collapse to nil")
	}

	only := &stubRecorder{}
	if got := MultiRecorder(nil, only); got != Recorder(only) {
		t.Error("single live recorder should be returned as-is")
	}
}
