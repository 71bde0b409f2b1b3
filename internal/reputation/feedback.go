package reputation

import "github.com/trustplane/trustplane/internal/models"

// Satisfaction bounds and shaping constants for derived feedback.
const (
	failureSatisfaction = 0.1
	successFloor        = 0.2
	maxLatencyPenalty   = 0.5
	latencyPenaltyRate  = 1.5
	confidenceBonusRate = 0.1
)

// DeriveSatisfaction converts raw outcome telemetry into the satisfaction
// input of the scoring engine. Failures (errors and timeouts) map to a
// fixed low value regardless of latency or confidence. Successes take a
// latency penalty capped at 0.5, offset by a small confidence bonus, and
// are floored at 0.2 so a successful call never scores below a moderate
// failure.
func DeriveSatisfaction(status models.OutcomeStatus, latencySeconds, confidence float64) float64 {
	if !status.Succeeded() {
		return failureSatisfaction
	}

	penalty := latencySeconds * latencyPenaltyRate
	if penalty > maxLatencyPenalty {
		penalty = maxLatencyPenalty
	}
	if penalty < 0 {
		penalty = 0
	}

	satisfaction := 1.0 - penalty + clamp01(confidence)*confidenceBonusRate
	if satisfaction < successFloor {
		satisfaction = successFloor
	}
	if satisfaction > 1.0 {
		satisfaction = 1.0
	}
	return round4(satisfaction)
}
