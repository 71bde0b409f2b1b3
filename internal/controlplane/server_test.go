package controlplane

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/trustplane/trustplane/internal/audit"
	"github.com/trustplane/trustplane/internal/backends/sim"
	"github.com/trustplane/trustplane/internal/catalog"
	"github.com/trustplane/trustplane/internal/models"
	"github.com/trustplane/trustplane/internal/reputation"
	"github.com/trustplane/trustplane/internal/routing"
	"github.com/trustplane/trustplane/internal/store"
)

func testServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()

	cfg := reputation.DefaultConfig()
	cat := catalog.New()
	cat.RegisterDefaults()

	st, err := store.New(filepath.Join(t.TempDir(), "trustplane.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	scores := reputation.NewScoreStore(cfg, cat, st)
	engine := reputation.NewEngine(cfg, cat)
	discovery := routing.NewDiscovery(cat, scores)
	policy := routing.NewPolicy(cfg.MinThreshold, cfg.ProbeRate, nil)

	fleet := sim.Fleet(cat, 42)
	for _, backend := range fleet {
		backend.(*sim.Backend).SetSleepScale(0)
	}

	service := NewService(cat, scores, engine, discovery, policy, fleet, st, audit.NewDecisionWriter(st))
	ts := httptest.NewServer(NewServer(service, "").Handler())
	t.Cleanup(ts.Close)
	return ts, service
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", resp.StatusCode)
	}
}

func TestListServersEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/servers")
	if err != nil {
		t.Fatal(err)
	}
	var servers []ServerStatus
	decode(t, resp, &servers)

	if len(servers) != 6 {
		t.Fatalf("GET /servers returned %d entries, want 6", len(servers))
	}

	byID := make(map[string]ServerStatus)
	for _, s := range servers {
		byID[s.ID] = s
	}
	if s := byID["data_server_2"]; !s.Selectable || s.Score != 0.95 {
		t.Errorf("data_server_2 = %+v, want selectable at 0.95", s)
	}
	if s := byID["low_score_server_3"]; s.Selectable {
		t.Errorf("low_score_server_3 = %+v, want below threshold", s)
	}
}

func TestDiscoverEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/discover?capability=image_gen")
	if err != nil {
		t.Fatal(err)
	}
	var candidates []models.Candidate
	decode(t, resp, &candidates)

	if len(candidates) != 2 {
		t.Fatalf("discover image_gen returned %d candidates, want 2", len(candidates))
	}
	if candidates[0].ServerID != "image_fast_4" {
		t.Errorf("best candidate = %s, want image_fast_4", candidates[0].ServerID)
	}

	resp, err = http.Get(ts.URL + "/discover?capability=juggling")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("discover with unknown capability = %d, want 400", resp.StatusCode)
	}
}

func TestRouteEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	t.Run("selects best qualified server", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/route", map[string]string{"capability": "data_retrieval"})
		var out routeResponse
		decode(t, resp, &out)

		if out.Decision.Blocked || out.Decision.ServerID != "data_server_2" {
			t.Errorf("decision = %+v, want data_server_2 selected", out.Decision)
		}
	})

	t.Run("blocks when no server offers the capability", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/route", map[string]string{"capability": "reasoning"})
		var out routeResponse
		decode(t, resp, &out)

		if !out.Decision.Blocked || out.Decision.Reason != models.BlockNoProvider {
			t.Errorf("decision = %+v, want blocked with no_provider", out.Decision)
		}
		if len(out.Candidates) != 0 {
			t.Errorf("candidates = %v, want empty", out.Candidates)
		}
	})

	t.Run("rejects unknown capability", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/route", map[string]string{"capability": "juggling"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestFeedbackEndpoint(t *testing.T) {
	ts, service := testServer(t)

	t.Run("applies feedback for a known server", func(t *testing.T) {
		before := service.GetReputation("compute_server_1")

		resp := postJSON(t, ts.URL+"/feedback", map[string]interface{}{
			"server_id":   "compute_server_1",
			"status":      "error",
			"latency_sec": 2.0,
		})
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", resp.StatusCode)
		}
		var out FeedbackResult
		decode(t, resp, &out)

		if !out.Applied {
			t.Error("Applied = false, want true for a registered server")
		}
		if out.NewScore >= before {
			t.Errorf("score after failure = %v, want below %v", out.NewScore, before)
		}
		if out.Transaction.Satisfaction != 0.1 {
			t.Errorf("Satisfaction = %v, want 0.1 for failure", out.Transaction.Satisfaction)
		}
	})

	t.Run("unknown server accepted but not applied", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/feedback", map[string]interface{}{
			"server_id": "ghost_server",
			"status":    "success",
		})
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", resp.StatusCode)
		}
		var out FeedbackResult
		decode(t, resp, &out)

		if out.Applied {
			t.Error("Applied = true, want false for an unknown server")
		}
		if out.PreviousScore != out.NewScore {
			t.Errorf("scores moved for unknown server: %v -> %v", out.PreviousScore, out.NewScore)
		}
	})

	t.Run("rejects missing server id", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/feedback", map[string]string{"status": "success"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/feedback", map[string]string{
			"server_id": "compute_server_1",
			"status":    "meh",
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestReputationEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/servers/semantic_db_6/reputation")
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		ServerID   string  `json:"server_id"`
		Score      float64 `json:"score"`
		Registered bool    `json:"registered"`
	}
	decode(t, resp, &out)

	if out.Score != 0.92 || !out.Registered {
		t.Errorf("reputation = %+v, want score 0.92 registered", out)
	}

	resp, err = http.Get(ts.URL + "/servers/ghost/reputation")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &out)
	if out.Score != 0.50 || out.Registered {
		t.Errorf("unknown server reputation = %+v, want default 0.50 unregistered", out)
	}
}

func TestExecuteEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	t.Run("runs a routed task end to end", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/tasks/execute", map[string]string{
			"capability": "data_retrieval",
			"prompt":     "fetch the report",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var out TaskResult
		decode(t, resp, &out)

		if out.Decision.ServerID != "data_server_2" {
			t.Errorf("routed to %s, want data_server_2", out.Decision.ServerID)
		}
		if out.Feedback == nil || !out.Feedback.Applied {
			t.Errorf("feedback = %+v, want applied", out.Feedback)
		}
		if out.Output == "" {
			t.Error("Output empty, want backend result text")
		}
	})

	t.Run("blocked capability returns a normal result", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/tasks/execute", map[string]string{
			"capability": "reasoning",
			"prompt":     "think hard",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var out TaskResult
		decode(t, resp, &out)

		if !out.Decision.Blocked || out.Decision.Reason != models.BlockNoProvider {
			t.Errorf("decision = %+v, want blocked no_provider", out.Decision)
		}
		if out.Feedback != nil {
			t.Errorf("feedback recorded for a blocked task: %+v", out.Feedback)
		}
	})

	t.Run("rejects empty prompt", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/tasks/execute", map[string]string{"capability": "data_retrieval"})
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestTelemetryEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	// No telemetry yet.
	resp, err := http.Get(ts.URL + "/servers/data_server_2/telemetry")
	if err != nil {
		t.Fatal(err)
	}
	var txs []models.TransactionRecord
	decode(t, resp, &txs)
	if len(txs) != 0 {
		t.Fatalf("telemetry before any feedback = %d entries, want 0", len(txs))
	}

	postJSON(t, ts.URL+"/feedback", map[string]interface{}{
		"server_id":   "data_server_2",
		"status":      "success",
		"latency_sec": 0.1,
		"confidence":  0.9,
	}).Body.Close()

	resp, err = http.Get(ts.URL + "/servers/data_server_2/telemetry")
	if err != nil {
		t.Fatal(err)
	}
	decode(t, resp, &txs)
	if len(txs) != 1 {
		t.Fatalf("telemetry after feedback = %d entries, want 1", len(txs))
	}
	if txs[0].Status != models.OutcomeSuccess || txs[0].Satisfaction == 0 {
		t.Errorf("stored transaction = %+v", txs[0])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := testServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/servers"},
		{http.MethodGet, "/route"},
		{http.MethodGet, "/feedback"},
		{http.MethodDelete, "/tasks/execute"},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("%s %s = %d, want 405", tt.method, tt.path, resp.StatusCode)
		}
	}
}

func TestService_ScoreCrossesThreshold(t *testing.T) {
	_, service := testServer(t)

	// Repeated clean successes lift low_score_server_3 from 0.50 toward
	// selectability; repeated failures sink compute_server_1 below it.
	for i := 0; i < 120; i++ {
		service.SubmitFeedback(FeedbackReport{
			ServerID:       "low_score_server_3",
			Status:         models.OutcomeSuccess,
			LatencySeconds: 0.05,
			Confidence:     0.95,
		})
		service.SubmitFeedback(FeedbackReport{
			ServerID:       "compute_server_1",
			Status:         models.OutcomeError,
			LatencySeconds: 2.0,
		})
	}

	if got := service.GetReputation("low_score_server_3"); got < 0.70 {
		t.Errorf("low_score_server_3 after sustained successes = %v, want >= 0.70", got)
	}
	if got := service.GetReputation("compute_server_1"); got >= 0.70 {
		t.Errorf("compute_server_1 after sustained failures = %v, want < 0.70", got)
	}

	// Routing now reflects the reversal.
	decision, _ := service.Route(models.CapabilityMathCompute)
	if decision.Blocked || decision.ServerID != "low_score_server_3" {
		t.Errorf("route(math_compute) = %+v, want low_score_server_3", decision)
	}
}
