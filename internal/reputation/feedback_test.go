package reputation

import (
	"math"
	"testing"

	"github.com/trustplane/trustplane/internal/models"
)

func TestDeriveSatisfaction(t *testing.T) {
	tests := []struct {
		name       string
		status     models.OutcomeStatus
		latency    float64
		confidence float64
		want       float64
	}{
		{"failure ignores latency and confidence", models.OutcomeError, 0.01, 0.99, 0.1},
		{"timeout counts as failure", models.OutcomeTimeout, 0.01, 0.99, 0.1},
		{"fast confident success caps at one", models.OutcomeSuccess, 0.0, 1.0, 1.0},
		{"fast success without confidence", models.OutcomeSuccess, 0.0, 0.0, 1.0},
		{"moderately slow success", models.OutcomeSuccess, 0.2, 0.5, 1 - 0.3 + 0.05},
		{"penalty capped at half", models.OutcomeSuccess, 10.0, 0.0, 0.5},
		{"confidence clamped below zero", models.OutcomeSuccess, 10.0, -5.0, 0.5},
		{"negative latency treated as instant", models.OutcomeSuccess, -1.0, 0.0, 1.0},
		{"confidence clamped above one", models.OutcomeSuccess, 0.0, 3.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSatisfaction(tt.status, tt.latency, tt.confidence)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("DeriveSatisfaction(%s, %v, %v) = %v, want %v",
					tt.status, tt.latency, tt.confidence, got, tt.want)
			}
		})
	}
}

func TestDeriveSatisfaction_AlwaysInRange(t *testing.T) {
	statuses := []models.OutcomeStatus{models.OutcomeSuccess, models.OutcomeError, models.OutcomeTimeout}
	latencies := []float64{-100, 0, 0.1, 0.33, 1, 99}
	confidences := []float64{-2, 0, 0.5, 1, 7}

	for _, status := range statuses {
		for _, lat := range latencies {
			for _, conf := range confidences {
				got := DeriveSatisfaction(status, lat, conf)
				if got < 0 || got > 1 {
					t.Errorf("DeriveSatisfaction(%s, %v, %v) = %v, out of range", status, lat, conf, got)
				}
				if status == models.OutcomeSuccess && got < 0.2 {
					t.Errorf("success satisfaction %v below floor 0.2", got)
				}
			}
		}
	}
}
