package reputation

import (
	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
)

// Engine computes reputation score updates from transaction outcomes.
type Engine struct {
	cfg     *Config
	catalog *catalog.Catalog
}

// NewEngine creates a scoring engine.
func NewEngine(cfg *Config, cat *catalog.Catalog) *Engine {
	return &Engine{cfg: cfg, catalog: cat}
}

// ComputeUpdate blends the transaction's weighted composite score into the
// current score via exponential smoothing. All inputs are defensively
// clamped; there is no error path.
func (e *Engine) ComputeUpdate(current float64, tx models.TransactionRecord) float64 {
	wcs := e.CompositeScore(tx)
	newScore := e.cfg.Alpha*wcs + (1-e.cfg.Alpha)*clamp01(current)
	return round4(clamp01(newScore))
}

// CompositeScore computes the single-transaction quality estimate (WCS):
// the weighted sum of the reliability, latency, cost and satisfaction
// factors, each normalized to [0, 1].
func (e *Engine) CompositeScore(tx models.TransactionRecord) float64 {
	return e.cfg.WeightSatisfaction*clamp01(tx.Satisfaction) +
		e.cfg.WeightReliability*e.reliabilityFactor(tx.Status) +
		e.cfg.WeightLatency*e.latencyFactor(tx.LatencySeconds) +
		e.cfg.WeightCost*e.costFactor(tx.ServerID)
}

// reliabilityFactor is binary: successes earn full credit, everything else
// (errors and timeouts) earns none.
func (e *Engine) reliabilityFactor(status models.OutcomeStatus) float64 {
	switch status {
	case models.OutcomeSuccess:
		return 1.0
	case models.OutcomeError, models.OutcomeTimeout:
		return 0.0
	}
	return 0.0
}

// latencyFactor ramps linearly from full credit at zero latency to zero at
// the configured ceiling.
func (e *Engine) latencyFactor(latencySeconds float64) float64 {
	if latencySeconds < 0 {
		latencySeconds = 0
	}
	ratio := latencySeconds / e.cfg.MaxAcceptableLatency
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

// costFactor rewards servers priced at or below the market average (the
// mean declared unit cost of same-capability servers) with full credit and
// penalizes above-average pricing proportionally to the relative overage,
// floored at zero. Unknown servers and capabilities without a market
// average fall back to the configured benchmark.
func (e *Engine) costFactor(serverID string) float64 {
	rec, ok := e.catalog.Get(serverID)
	if !ok {
		return 1.0
	}

	avg, ok := e.catalog.AverageUnitCost(rec.Capability)
	if !ok || avg <= 0 {
		avg = e.cfg.CostBenchmark
	}

	if rec.UnitCost <= avg {
		return 1.0
	}
	return clamp01(1 - (rec.UnitCost-avg)/avg)
}
