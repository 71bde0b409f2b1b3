// Package routing turns reputation scores into routing decisions:
// capability discovery and threshold-gated selection.
package routing

import (
	"sort"

	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
	"github.com/trustplane/trustplane/internal/reputation"
)

// Discovery resolves a requested capability to candidate servers with
// their live reputation.
type Discovery struct {
	catalog *catalog.Catalog
	scores  *reputation.ScoreStore
}

// NewDiscovery creates a discovery service.
func NewDiscovery(cat *catalog.Catalog, scores *reputation.ScoreStore) *Discovery {
	return &Discovery{catalog: cat, scores: scores}
}

// Discover returns all servers offering the capability, sorted descending
// by score. The sort is stable, so equal scores preserve catalog order. An
// empty result is a valid outcome, not an error.
func (d *Discovery) Discover(capability models.Capability) []models.Candidate {
	recs := d.catalog.ByCapability(capability)

	candidates := make([]models.Candidate, 0, len(recs))
	for _, rec := range recs {
		candidates = append(candidates, models.Candidate{
			ServerID:   rec.ID,
			Score:      d.scores.Get(rec.ID),
			UnitCost:   rec.UnitCost,
			Capability: capability,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}
