// Package backends defines the backend execution interface for TrustPlane.
// Execution itself is external to the reputation engine; the engine only
// consumes the outcome telemetry a backend returns.
package backends

import (
	"context"

	"github.com/trustplane/trustplane/internal/models"
)

// Result holds the raw outcome telemetry of one execution.
type Result struct {
	Status           models.OutcomeStatus `json:"status"`
	Output           string               `json:"output"`
	LatencySeconds   float64              `json:"latency_sec"`
	ComputeCostUnits float64              `json:"compute_cost_units"`
	// Confidence is the backend's self-declared confidence in its result.
	Confidence float64 `json:"confidence"`
}

// Backend executes tool requests for one catalog server.
type Backend interface {
	// ServerID returns the catalog identity this backend serves.
	ServerID() string

	// Execute runs a tool request and returns outcome telemetry.
	Execute(ctx context.Context, prompt string) (*Result, error)
}
