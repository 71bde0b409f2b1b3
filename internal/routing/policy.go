package routing

import (
	"math/rand"

	"github.com/trustplane/trustplane/internal/models"
)

// Policy selects one server from discovered candidates, or blocks. It is a
// strict threshold gate: the highest-reputation candidate at or above the
// minimum threshold wins, with no load balancing among qualified peers.
//
// The optional recovery probe admits the best below-threshold candidate
// with a small probability, giving blocked servers a path back to
// selectability. It is disabled unless probeRate > 0.
type Policy struct {
	threshold float64
	probeRate float64
	rng       *rand.Rand
}

// NewPolicy creates a routing policy. rng may be nil when probing is
// disabled; tests inject a seeded source for determinism.
func NewPolicy(threshold, probeRate float64, rng *rand.Rand) *Policy {
	return &Policy{
		threshold: threshold,
		probeRate: probeRate,
		rng:       rng,
	}
}

// Select returns the routing decision for score-sorted candidates.
func (p *Policy) Select(candidates []models.Candidate) models.Decision {
	if len(candidates) == 0 {
		return models.Decision{Blocked: true, Reason: models.BlockNoProvider}
	}

	for _, c := range candidates {
		if c.Score >= p.threshold {
			return models.Decision{ServerID: c.ServerID, Score: c.Score}
		}
	}

	if p.probeRate > 0 && p.rng != nil && p.rng.Float64() < p.probeRate {
		// Probe the best of the blocked set.
		best := candidates[0]
		return models.Decision{ServerID: best.ServerID, Score: best.Score, Probe: true}
	}

	return models.Decision{Blocked: true, Reason: models.BlockBelowThreshold}
}

// Threshold returns the policy's minimum reputation threshold.
func (p *Policy) Threshold() float64 {
	return p.threshold
}
