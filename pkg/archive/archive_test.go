package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
	"github.com/dd0wney/cluso-cascade/pkg/simulation"
)

func samplePrediction(id, origin string) *simulation.Prediction {
	return &simulation.Prediction{
		ID:                 id,
		Timestamp:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		InitialFailureNode: origin,
		FailureMode:        graph.FailureOverload,
		Severity:           0.8,
		CascadeProbability: 0.42,
		AffectedNodes:      []string{origin, "water_1"},
		Confidence:         0.85,
		MaxRisk:            0.8,
		NodeRisks:          map[string]float64{origin: 0.8, "water_1": 0.31},
	}
}

func TestRecordAndReplay(t *testing.T) {
	dir := t.TempDir()

	a, err := New(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := a.Record(ctx, samplePrediction("pred_aa", "power_1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Record(ctx, samplePrediction("pred_bb", "telecom_1")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	preds, err := a.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("replayed %d predictions, want 2", len(preds))
	}
	if preds[0].ID != "pred_aa" || preds[1].ID != "pred_bb" {
		t.Errorf("replay order = %s, %s", preds[0].ID, preds[1].ID)
	}
	if preds[1].InitialFailureNode != "telecom_1" {
		t.Errorf("origin = %q, want telecom_1", preds[1].InitialFailureNode)
	}
	if preds[0].NodeRisks["water_1"] != 0.31 {
		t.Errorf("node risk = %v, want 0.31", preds[0].NodeRisks["water_1"])
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSequenceSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	a, err := New(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Record(context.Background(), samplePrediction("pred_aa", "power_1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err = New(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer a.Close()
	if err := a.Record(context.Background(), samplePrediction("pred_bb", "water_1")); err != nil {
		t.Fatalf("Record after reopen: %v", err)
	}

	frames, err := ReadSegment(filepath.Join(dir, segmentName(1)))
	if err != nil {
		t.Fatalf("ReadSegment: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[0].Seq != 1 || frames[1].Seq != 2 {
		t.Errorf("sequence = %d, %d, want 1, 2", frames[0].Seq, frames[1].Seq)
	}
}

func TestRotationSealsSegments(t *testing.T) {
	dir := t.TempDir()

	// A cap this small forces a rotation before every append after the
	// first.
	a, err := New(Config{Dir: dir, SegmentMaxBytes: 1}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	for i, id := range []string{"pred_aa", "pred_bb", "pred_cc"} {
		if err := a.Record(ctx, samplePrediction(id, "power_1")); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	paths, err := listSegments(dir)
	if err != nil {
		t.Fatalf("listSegments: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d segments, want 3", len(paths))
	}

	preds, err := a.Replay()
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(preds) != 3 {
		t.Fatalf("replayed %d predictions, want 3", len(preds))
	}
	if preds[2].ID != "pred_cc" {
		t.Errorf("last prediction = %s, want pred_cc", preds[2].ID)
	}
}

func TestCorruptedFrameDetected(t *testing.T) {
	dir := t.TempDir()

	a, err := New(Config{Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Record(context.Background(), samplePrediction("pred_aa", "power_1")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, segmentName(1))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// Flip a payload byte past the header so the stored checksum no
	// longer matches.
	raw[20] ^= 0xFF
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := ReadSegment(path); err == nil {
		t.Fatal("expected checksum error for corrupted segment")
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected error for empty archive directory")
	}
}
