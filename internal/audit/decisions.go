// Package audit records routing and feedback decisions for traceability.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"

	"github.com/trustplane/trustplane/internal/store"
)

// DecisionWriter writes decision records for state-mutating actions.
type DecisionWriter struct {
	store *store.Store
}

// NewDecisionWriter creates a new decision writer.
func NewDecisionWriter(s *store.Store) *DecisionWriter {
	return &DecisionWriter{store: s}
}

// Record writes a decision entry. Audit failures are logged, never fatal.
func (w *DecisionWriter) Record(action string, inputs interface{}, outcome, serverID, details string) {
	if w == nil || w.store == nil {
		return
	}
	if err := w.store.WriteDecision(action, hashInputs(inputs), outcome, serverID, details); err != nil {
		log.Printf("Error writing decision record: %v", err)
	}
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
