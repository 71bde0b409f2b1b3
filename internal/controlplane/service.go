// Package controlplane provides the HTTP API and service layer for
// TrustPlane.
package controlplane

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/trustplane/trustplane/internal/audit"
	"github.com/trustplane/trustplane/internal/backends"
	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
	"github.com/trustplane/trustplane/internal/reputation"
	"github.com/trustplane/trustplane/internal/routing"
	"github.com/trustplane/trustplane/internal/store"
)

// Service wires the reputation engine, discovery and routing policy behind
// the control plane surface.
type Service struct {
	catalog   *catalog.Catalog
	scores    *reputation.ScoreStore
	engine    *reputation.Engine
	discovery *routing.Discovery
	policy    *routing.Policy
	fleet     map[string]backends.Backend
	store     *store.Store
	decisions *audit.DecisionWriter
}

// NewService creates a control plane service. store and fleet may be nil
// for callers that only query scores.
func NewService(
	cat *catalog.Catalog,
	scores *reputation.ScoreStore,
	engine *reputation.Engine,
	discovery *routing.Discovery,
	policy *routing.Policy,
	fleet map[string]backends.Backend,
	st *store.Store,
	decisions *audit.DecisionWriter,
) *Service {
	return &Service{
		catalog:   cat,
		scores:    scores,
		engine:    engine,
		discovery: discovery,
		policy:    policy,
		fleet:     fleet,
		store:     st,
		decisions: decisions,
	}
}

// Discover returns candidates for a capability, best reputation first.
func (s *Service) Discover(capability models.Capability) []models.Candidate {
	return s.discovery.Discover(capability)
}

// GetReputation returns the live (decayed) score for a server.
func (s *Service) GetReputation(serverID string) float64 {
	return s.scores.Get(serverID)
}

// Route discovers and selects a server for a capability.
func (s *Service) Route(capability models.Capability) (models.Decision, []models.Candidate) {
	candidates := s.discovery.Discover(capability)
	decision := s.policy.Select(candidates)

	outcome := "selected"
	if decision.Blocked {
		outcome = "blocked:" + string(decision.Reason)
	} else if decision.Probe {
		outcome = "probe"
	}
	s.decisions.Record("route.select", map[string]interface{}{
		"capability": capability,
		"candidates": len(candidates),
	}, outcome, decision.ServerID, "")

	return decision, candidates
}

// FeedbackReport is the raw outcome telemetry a client submits after an
// execution.
type FeedbackReport struct {
	ServerID         string               `json:"server_id"`
	Status           models.OutcomeStatus `json:"status"`
	LatencySeconds   float64              `json:"latency_sec"`
	Confidence       float64              `json:"confidence"`
	ComputeCostUnits float64              `json:"compute_cost_units"`
}

// FeedbackResult describes how a feedback submission was applied.
type FeedbackResult struct {
	Applied       bool                     `json:"applied"`
	Transaction   models.TransactionRecord `json:"transaction"`
	PreviousScore float64                  `json:"previous_score"`
	NewScore      float64                  `json:"new_score"`
}

// SubmitFeedback derives satisfaction from the report and applies the
// score update. Feedback for unknown servers is logged and dropped without
// surfacing an error, so a stray report never disturbs the caller's
// routing flow.
func (s *Service) SubmitFeedback(report FeedbackReport) *FeedbackResult {
	tx := models.TransactionRecord{
		ID:               uuid.New().String(),
		ServerID:         report.ServerID,
		Status:           report.Status,
		LatencySeconds:   report.LatencySeconds,
		Confidence:       report.Confidence,
		ComputeCostUnits: report.ComputeCostUnits,
		Satisfaction:     reputation.DeriveSatisfaction(report.Status, report.LatencySeconds, report.Confidence),
		Timestamp:        time.Now().UTC(),
	}

	previous := s.scores.Get(report.ServerID)
	newScore, err := s.scores.Update(report.ServerID, func(current float64) float64 {
		return s.engine.ComputeUpdate(current, tx)
	})
	if err != nil {
		log.Printf("Dropping feedback for %s: %v", report.ServerID, err)
		s.decisions.Record("feedback.drop", report, "unknown_server", report.ServerID, err.Error())
		return &FeedbackResult{Applied: false, Transaction: tx, PreviousScore: previous, NewScore: previous}
	}

	if s.store != nil {
		if err := s.store.AppendTelemetry(tx); err != nil {
			log.Printf("Error appending telemetry for %s: %v", tx.ServerID, err)
		}
	}
	s.decisions.Record("feedback.apply", report, "success", report.ServerID,
		fmt.Sprintf("%.4f -> %.4f", previous, newScore))

	log.Printf("Reputation update: %s %.4f -> %.4f (satisfaction %.4f)", report.ServerID, previous, newScore, tx.Satisfaction)
	return &FeedbackResult{Applied: true, Transaction: tx, PreviousScore: previous, NewScore: newScore}
}

// TaskResult is the outcome of a full routed execution.
type TaskResult struct {
	Decision   models.Decision           `json:"decision"`
	Candidates []models.Candidate        `json:"candidates,omitempty"`
	Output     string                    `json:"output,omitempty"`
	Feedback   *FeedbackResult           `json:"feedback,omitempty"`
	Telemetry  *models.TransactionRecord `json:"telemetry,omitempty"`
}

// ExecuteTask runs the full loop: discover, select, execute against the
// chosen backend, derive feedback and apply the score update. A blocked
// decision is returned as a normal result.
func (s *Service) ExecuteTask(ctx context.Context, capability models.Capability, prompt string) (*TaskResult, error) {
	decision, candidates := s.Route(capability)
	if decision.Blocked {
		return &TaskResult{Decision: decision, Candidates: candidates}, nil
	}

	backend, ok := s.fleet[decision.ServerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, decision.ServerID)
	}

	result, err := backend.Execute(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("execute on %s: %w", decision.ServerID, err)
	}

	feedback := s.SubmitFeedback(FeedbackReport{
		ServerID:         decision.ServerID,
		Status:           result.Status,
		LatencySeconds:   result.LatencySeconds,
		Confidence:       result.Confidence,
		ComputeCostUnits: result.ComputeCostUnits,
	})

	return &TaskResult{
		Decision:   decision,
		Candidates: candidates,
		Output:     result.Output,
		Feedback:   feedback,
		Telemetry:  &feedback.Transaction,
	}, nil
}

// ServerStatus is the live view of one catalog server.
type ServerStatus struct {
	ID               string            `json:"id"`
	Capability       models.Capability `json:"capability"`
	UnitCost         float64           `json:"unit_cost"`
	Score            float64           `json:"score"`
	InteractionCount int               `json:"interaction_count"`
	Selectable       bool              `json:"selectable"`
}

// ListServers returns the live status of every catalog server in catalog
// order.
func (s *Service) ListServers() []ServerStatus {
	recs := s.catalog.List()
	statuses := make([]ServerStatus, 0, len(recs))
	for _, rec := range recs {
		score := s.scores.Get(rec.ID)
		state, _ := s.scores.State(rec.ID)
		statuses = append(statuses, ServerStatus{
			ID:               rec.ID,
			Capability:       rec.Capability,
			UnitCost:         rec.UnitCost,
			Score:            score,
			InteractionCount: state.InteractionCount,
			Selectable:       score >= s.policy.Threshold(),
		})
	}
	return statuses
}

// HasServer reports whether a server is in the catalog.
func (s *Service) HasServer(serverID string) bool {
	return s.catalog.Has(serverID)
}

// Telemetry returns the retained transaction log for a server.
func (s *Service) Telemetry(serverID string) ([]models.TransactionRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.TelemetryForServer(serverID)
}
