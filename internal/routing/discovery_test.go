package routing

import (
	"testing"

	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
	"github.com/trustplane/trustplane/internal/reputation"
)

func testDiscovery(t *testing.T) *Discovery {
	t.Helper()
	cfg := reputation.DefaultConfig()
	cat := catalog.New()
	cat.RegisterDefaults()
	scores := reputation.NewScoreStore(cfg, cat, nil)
	return NewDiscovery(cat, scores)
}

func TestDiscover_SortsByScoreDescending(t *testing.T) {
	d := testDiscovery(t)

	got := d.Discover(models.CapabilityImageGen)
	if len(got) != 2 {
		t.Fatalf("Discover(image_gen) returned %d candidates, want 2", len(got))
	}
	if got[0].ServerID != "image_fast_4" || got[1].ServerID != "image_cheap_5" {
		t.Errorf("order = [%s, %s], want [image_fast_4, image_cheap_5]",
			got[0].ServerID, got[1].ServerID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %v < %v", got[0].Score, got[1].Score)
	}
}

func TestDiscover_UnmatchedCapabilityIsEmpty(t *testing.T) {
	d := testDiscovery(t)

	if got := d.Discover(models.CapabilityReasoning); len(got) != 0 {
		t.Errorf("Discover(reasoning) = %v, want empty", got)
	}
}

func TestDiscover_CarriesCatalogFields(t *testing.T) {
	d := testDiscovery(t)

	got := d.Discover(models.CapabilitySemanticSearch)
	if len(got) != 1 {
		t.Fatalf("Discover(semantic_search) returned %d candidates, want 1", len(got))
	}
	c := got[0]
	if c.ServerID != "semantic_db_6" || c.UnitCost != 0.003 || c.Capability != models.CapabilitySemanticSearch {
		t.Errorf("candidate = %+v, want semantic_db_6 at 0.003", c)
	}
	if c.Score != 0.92 {
		t.Errorf("Score = %v, want initial 0.92", c.Score)
	}
}

func TestDiscover_TiesPreserveCatalogOrder(t *testing.T) {
	cfg := reputation.DefaultConfig()
	cat := catalog.New()
	for _, rec := range []models.ServerRecord{
		{ID: "first", Capability: models.CapabilityReasoning, UnitCost: 0.001, InitialScore: 0.8},
		{ID: "second", Capability: models.CapabilityReasoning, UnitCost: 0.002, InitialScore: 0.8},
		{ID: "third", Capability: models.CapabilityReasoning, UnitCost: 0.003, InitialScore: 0.8},
	} {
		if err := cat.Register(rec); err != nil {
			t.Fatalf("Register(%s): %v", rec.ID, err)
		}
	}
	scores := reputation.NewScoreStore(cfg, cat, nil)
	d := NewDiscovery(cat, scores)

	got := d.Discover(models.CapabilityReasoning)
	want := []string{"first", "second", "third"}
	for i, id := range want {
		if got[i].ServerID != id {
			t.Errorf("position %d = %s, want %s (stable tie order)", i, got[i].ServerID, id)
		}
	}
}
