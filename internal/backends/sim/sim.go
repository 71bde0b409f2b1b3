// Package sim provides a simulated backend standing in for a real RPC
// call, with randomized latency and failures drawn from catalog
// parameters.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/trustplane/trustplane/internal/backends"
	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
)

const (
	latencyStdDev = 0.05
	minCostUnits  = 50
	maxCostUnits  = 150
)

// Backend simulates one catalog server. The rand source is injectable so
// tests are deterministic; latency sleeps are scaled down so the simulation
// stays responsive.
type Backend struct {
	rec models.ServerRecord

	mu  sync.Mutex
	rng *rand.Rand

	// sleepScale shrinks simulated latency into real wall time. Zero
	// disables sleeping entirely.
	sleepScale float64
}

// New creates a simulated backend for a catalog record. A nil rng gets a
// time-seeded source.
func New(rec models.ServerRecord, rng *rand.Rand) *Backend {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Backend{
		rec:        rec,
		rng:        rng,
		sleepScale: 0.1,
	}
}

// ServerID returns the catalog identity this backend serves.
func (b *Backend) ServerID() string {
	return b.rec.ID
}

// Execute simulates a tool execution and returns its outcome telemetry.
func (b *Backend) Execute(ctx context.Context, prompt string) (*backends.Result, error) {
	b.mu.Lock()
	latency := math.Abs(b.rng.NormFloat64()*latencyStdDev + b.rec.AvgLatency)
	units := minCostUnits + b.rng.Intn(maxCostUnits-minCostUnits+1)
	failed := b.rng.Float64() < b.rec.ErrorRate
	confidence := 0.75 + b.rng.Float64()*0.24
	b.mu.Unlock()

	if b.sleepScale > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(latency * b.sleepScale * float64(time.Second))):
		}
	}

	cost := float64(units) * b.rec.UnitCost

	if failed {
		return &backends.Result{
			Status:           models.OutcomeError,
			Output:           fmt.Sprintf("Execution failed: %s fault.", b.rec.ID),
			LatencySeconds:   latency,
			ComputeCostUnits: cost,
			Confidence:       0.2,
		}, nil
	}

	return &backends.Result{
		Status:           models.OutcomeSuccess,
		Output:           fmt.Sprintf("Result for %q. Used %d units.", prompt, units),
		LatencySeconds:   latency,
		ComputeCostUnits: cost,
		Confidence:       round4(confidence),
	}, nil
}

// SetSleepScale overrides the latency-to-wall-time scale. Tests set zero.
func (b *Backend) SetSleepScale(scale float64) {
	b.sleepScale = scale
}

// Fleet builds a simulated backend per catalog server.
func Fleet(cat *catalog.Catalog, seed int64) map[string]backends.Backend {
	fleet := make(map[string]backends.Backend)
	for i, rec := range cat.List() {
		rng := rand.New(rand.NewSource(seed + int64(i)))
		fleet[rec.ID] = New(rec, rng)
	}
	return fleet
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
