package audit

import (
	"path/filepath"
	"testing"

	"github.com/trustplane/trustplane/internal/store"
)

func TestRecord(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer st.Close()

	w := NewDecisionWriter(st)
	w.Record("route.select", map[string]string{"capability": "image_gen"}, "selected", "image_fast_4", "")
	w.Record("feedback.apply", nil, "success", "image_fast_4", "0.88 -> 0.89")

	recs, err := st.DecisionsForServer("image_fast_4", 10)
	if err != nil {
		t.Fatalf("DecisionsForServer: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("recorded %d decisions, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.InputsHash == "" || rec.InputsHash == "hash_error" {
			t.Errorf("InputsHash = %q, want a real hash", rec.InputsHash)
		}
	}
}

func TestRecord_NilSafe(t *testing.T) {
	// Neither a nil writer nor a writer without a store may panic.
	var w *DecisionWriter
	w.Record("route.select", nil, "selected", "x", "")

	NewDecisionWriter(nil).Record("route.select", nil, "selected", "x", "")
}

func TestHashInputs_Deterministic(t *testing.T) {
	a := hashInputs(map[string]int{"candidates": 3})
	b := hashInputs(map[string]int{"candidates": 3})
	if a != b {
		t.Errorf("hashInputs not deterministic: %s vs %s", a, b)
	}
	if a == hashInputs(map[string]int{"candidates": 4}) {
		t.Error("hashInputs collided on different inputs")
	}
}
