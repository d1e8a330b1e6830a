package monitor

import (
	"math/rand"
	"sync"

	"github.com/dd0wney/cluso-cascade/pkg/graph"
)

// Vitals is one sampled health/load reading for a node.
type Vitals struct {
	HealthScore float64
	CurrentLoad float64
}

// VitalsSource produces the next vitals for a node each tick. Implement
// it to feed live telemetry; the built-in sources cover drift simulation
// and deterministic tests.
type VitalsSource interface {
	Sample(n graph.Node) Vitals
}

// Drift bounds for the random source.
const (
	healthDecayMin  = 0.98
	loadFractionMin = 0.3
	loadFractionMax = 0.9
)

// RandomSource simulates telemetry drift: health decays by a small random
// factor each tick and load is redrawn as a fraction of capacity.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates a drift source with the given seed.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomSource) Sample(n graph.Node) Vitals {
	s.mu.Lock()
	defer s.mu.Unlock()

	decay := healthDecayMin + s.rng.Float64()*(1-healthDecayMin)
	fraction := loadFractionMin + s.rng.Float64()*(loadFractionMax-loadFractionMin)
	return Vitals{
		HealthScore: n.HealthScore * decay,
		CurrentLoad: fraction * n.Capacity,
	}
}

// DeterministicSource applies a fixed health decay and load fraction,
// for reproducible tests and demos.
type DeterministicSource struct {
	HealthDecay  float64
	LoadFraction float64
}

func (s DeterministicSource) Sample(n graph.Node) Vitals {
	return Vitals{
		HealthScore: n.HealthScore * s.HealthDecay,
		CurrentLoad: s.LoadFraction * n.Capacity,
	}
}

// StaticSource reports vitals unchanged, so the monitor only evaluates
// thresholds against current state.
type StaticSource struct{}

func (StaticSource) Sample(n graph.Node) Vitals {
	return Vitals{HealthScore: n.HealthScore, CurrentLoad: n.CurrentLoad}
}
