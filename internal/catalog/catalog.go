// Package catalog provides the static registry of backend servers.
package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/trustplane/trustplane/internal/models"
)

// Catalog holds the static server metadata: identity, capability and
// declared unit cost. It is read-only reference data for the reputation
// engine; entries are never removed during a process lifetime.
type Catalog struct {
	mu      sync.RWMutex
	byID    map[string]*models.ServerRecord
	ordered []string // registration order, used for stable tie-breaking
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		byID: make(map[string]*models.ServerRecord),
	}
}

// Register adds or updates a server record.
func (c *Catalog) Register(rec models.ServerRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("server id cannot be empty")
	}
	if _, err := models.ParseCapability(string(rec.Capability)); err != nil {
		return fmt.Errorf("server %s: %w", rec.ID, err)
	}
	if rec.UnitCost <= 0 {
		return fmt.Errorf("server %s: unit_cost must be positive", rec.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[rec.ID]; !exists {
		c.ordered = append(c.ordered, rec.ID)
	}
	c.byID[rec.ID] = &rec
	return nil
}

// Get retrieves a server record by ID.
func (c *Catalog) Get(id string) (*models.ServerRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	copy := *rec
	return &copy, true
}

// Has reports whether a server is registered.
func (c *Catalog) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.byID[id]
	return ok
}

// List returns all server records in registration order.
func (c *Catalog) List() []models.ServerRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recs := make([]models.ServerRecord, 0, len(c.ordered))
	for _, id := range c.ordered {
		recs = append(recs, *c.byID[id])
	}
	return recs
}

// ByCapability returns the servers offering a capability, in registration
// order.
func (c *Catalog) ByCapability(cap models.Capability) []models.ServerRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var recs []models.ServerRecord
	for _, id := range c.ordered {
		if c.byID[id].Capability == cap {
			recs = append(recs, *c.byID[id])
		}
	}
	return recs
}

// Count returns the number of registered servers.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// AverageUnitCost returns the mean declared unit cost among servers of the
// given capability. The boolean is false when no server offers it; callers
// fall back to their configured benchmark instead of dividing by zero.
func (c *Catalog) AverageUnitCost(cap models.Capability) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0.0
	count := 0
	for _, rec := range c.byID {
		if rec.Capability == cap {
			total += rec.UnitCost
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}

// RegisterDefaults registers the built-in server fleet. Initial scores
// pre-seed reputation for servers with prior operating history;
// image_cheap_5 starts below the routing threshold deliberately.
func (c *Catalog) RegisterDefaults() {
	defaults := []models.ServerRecord{
		{ID: "compute_server_1", Capability: models.CapabilityMathCompute, UnitCost: 0.005, ErrorRate: 0.15, AvgLatency: 0.3, InitialScore: 0.85},
		{ID: "data_server_2", Capability: models.CapabilityDataRetrieval, UnitCost: 0.001, ErrorRate: 0.05, AvgLatency: 0.2, InitialScore: 0.95},
		{ID: "low_score_server_3", Capability: models.CapabilityMathCompute, UnitCost: 0.0005, ErrorRate: 0.40, AvgLatency: 0.1},
		{ID: "image_fast_4", Capability: models.CapabilityImageGen, UnitCost: 0.05, ErrorRate: 0.10, AvgLatency: 0.5, InitialScore: 0.88},
		{ID: "image_cheap_5", Capability: models.CapabilityImageGen, UnitCost: 0.008, ErrorRate: 0.30, AvgLatency: 1.5, InitialScore: 0.65},
		{ID: "semantic_db_6", Capability: models.CapabilitySemanticSearch, UnitCost: 0.003, ErrorRate: 0.01, AvgLatency: 0.15, InitialScore: 0.92},
	}

	for _, rec := range defaults {
		c.Register(rec)
	}
}

// catalogFile is the YAML document shape for a catalog file.
type catalogFile struct {
	Servers []models.ServerRecord `yaml:"servers"`
}

// LoadFile loads a catalog from a YAML file. A missing file yields the
// built-in defaults.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := New()
			c.RegisterDefaults()
			return c, nil
		}
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	c := New()
	for _, rec := range file.Servers {
		if err := c.Register(rec); err != nil {
			return nil, fmt.Errorf("invalid catalog: %w", err)
		}
	}
	if c.Count() == 0 {
		return nil, fmt.Errorf("invalid catalog: no servers defined")
	}
	return c, nil
}
