// Package models defines the core domain types for TrustPlane.
package models

import (
	"fmt"
	"time"
)

// Capability is the category of work a backend server can perform.
type Capability string

const (
	CapabilityMathCompute    Capability = "math_compute"
	CapabilityDataRetrieval  Capability = "data_retrieval"
	CapabilityReasoning      Capability = "reasoning"
	CapabilityImageGen       Capability = "image_gen"
	CapabilitySemanticSearch Capability = "semantic_search"
)

// Capabilities lists all known capabilities in declaration order.
var Capabilities = []Capability{
	CapabilityMathCompute,
	CapabilityDataRetrieval,
	CapabilityReasoning,
	CapabilityImageGen,
	CapabilitySemanticSearch,
}

// ParseCapability validates a capability string.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	switch c {
	case CapabilityMathCompute, CapabilityDataRetrieval, CapabilityReasoning,
		CapabilityImageGen, CapabilitySemanticSearch:
		return c, nil
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

// OutcomeStatus is the terminal status of a backend transaction.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
	OutcomeTimeout OutcomeStatus = "timeout"
)

// ParseOutcomeStatus validates an outcome status string.
func ParseOutcomeStatus(s string) (OutcomeStatus, error) {
	o := OutcomeStatus(s)
	switch o {
	case OutcomeSuccess, OutcomeError, OutcomeTimeout:
		return o, nil
	}
	return "", fmt.Errorf("unknown outcome status %q", s)
}

// Succeeded reports whether the outcome counts as a success for scoring.
// Timeouts score as failures.
func (o OutcomeStatus) Succeeded() bool {
	return o == OutcomeSuccess
}

// ServerRecord is the static catalog entry for a backend server.
// ErrorRate and AvgLatency parameterize the simulated backend only; the
// scoring engine never reads them.
type ServerRecord struct {
	ID         string     `yaml:"id" json:"id"`
	Capability Capability `yaml:"capability" json:"capability"`
	UnitCost   float64    `yaml:"unit_cost" json:"unit_cost"`
	ErrorRate  float64    `yaml:"error_rate,omitempty" json:"error_rate,omitempty"`
	AvgLatency float64    `yaml:"avg_latency,omitempty" json:"avg_latency,omitempty"`
	// InitialScore optionally pre-seeds reputation (0 means use the default).
	InitialScore float64 `yaml:"initial_score,omitempty" json:"initial_score,omitempty"`
}

// ReputationState is the mutable per-server trust state. Score is always
// clamped to [0,1] after every write.
type ReputationState struct {
	Score            float64   `json:"score"`
	LastUpdate       time.Time `json:"last_update"`
	InteractionCount int       `json:"interaction_count"`
}

// Candidate is an ephemeral discovery result: a server offering the
// requested capability together with its live (decayed) reputation.
type Candidate struct {
	ServerID   string     `json:"server_id"`
	Score      float64    `json:"score"`
	UnitCost   float64    `json:"unit_cost"`
	Capability Capability `json:"capability"`
}

// TransactionRecord is the raw outcome telemetry of one backend execution,
// consumed once by the feedback loop.
type TransactionRecord struct {
	ID               string        `json:"id"`
	ServerID         string        `json:"server_id"`
	Status           OutcomeStatus `json:"status"`
	LatencySeconds   float64       `json:"latency_sec"`
	Confidence       float64       `json:"confidence"`
	ComputeCostUnits float64       `json:"compute_cost_units"`
	Satisfaction     float64       `json:"satisfaction"`
	Timestamp        time.Time     `json:"timestamp"`
}

// BlockReason explains why the routing policy refused to route.
type BlockReason string

const (
	BlockNoProvider     BlockReason = "no_provider"
	BlockBelowThreshold BlockReason = "below_threshold"
)

// Decision is the outcome of a routing selection. A blocked decision is a
// normal policy result, not an error.
type Decision struct {
	ServerID string      `json:"server_id,omitempty"`
	Score    float64     `json:"score,omitempty"`
	Blocked  bool        `json:"blocked"`
	Reason   BlockReason `json:"reason,omitempty"`
	// Probe marks a below-threshold candidate admitted by the recovery
	// probe extension.
	Probe bool `json:"probe,omitempty"`
}
