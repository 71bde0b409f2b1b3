package controlplane

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/trustplane/trustplane/internal/models"
)

// Server provides the HTTP API for TrustPlane.
type Server struct {
	service *Service
	addr    string
	server  *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, addr string) *Server {
	return &Server{
		service: service,
		addr:    addr,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Starting TrustPlane daemon on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the API routes as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/servers", s.handleServers)
	mux.HandleFunc("/servers/", s.handleServerByID)
	mux.HandleFunc("/discover", s.handleDiscover)
	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/feedback", s.handleFeedback)
	mux.HandleFunc("/tasks/execute", s.handleExecute)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// handleServers handles GET /servers
func (s *Server) handleServers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, s.service.ListServers())
}

// handleServerByID handles /servers/{id}/reputation and
// /servers/{id}/telemetry
func (s *Server) handleServerByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/servers/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "server id required", http.StatusBadRequest)
		return
	}

	serverID := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch action {
	case "reputation":
		// Unknown servers read as the default score by design; report the
		// catalog miss so clients can tell the difference.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"server_id":  serverID,
			"score":      s.service.GetReputation(serverID),
			"registered": s.service.HasServer(serverID),
		})
	case "telemetry":
		txs, err := s.service.Telemetry(serverID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if txs == nil {
			txs = []models.TransactionRecord{}
		}
		writeJSON(w, http.StatusOK, txs)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleDiscover handles GET /discover?capability=x
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	capability, err := models.ParseCapability(r.URL.Query().Get("capability"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	candidates := s.service.Discover(capability)
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

type routeRequest struct {
	Capability string `json:"capability"`
}

type routeResponse struct {
	Decision   models.Decision    `json:"decision"`
	Candidates []models.Candidate `json:"candidates"`
}

// handleRoute handles POST /route
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	capability, err := models.ParseCapability(req.Capability)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	decision, candidates := s.service.Route(capability)
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	writeJSON(w, http.StatusOK, routeResponse{Decision: decision, Candidates: candidates})
}

type feedbackRequest struct {
	ServerID         string  `json:"server_id"`
	Status           string  `json:"status"`
	LatencySeconds   float64 `json:"latency_sec"`
	Confidence       float64 `json:"confidence"`
	ComputeCostUnits float64 `json:"compute_cost_units"`
}

// handleFeedback handles POST /feedback
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ServerID == "" {
		http.Error(w, "server_id required", http.StatusBadRequest)
		return
	}

	status, err := models.ParseOutcomeStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Unknown servers are accepted and dropped internally; the response
	// carries applied=false rather than an error.
	result := s.service.SubmitFeedback(FeedbackReport{
		ServerID:         req.ServerID,
		Status:           status,
		LatencySeconds:   req.LatencySeconds,
		Confidence:       req.Confidence,
		ComputeCostUnits: req.ComputeCostUnits,
	})
	writeJSON(w, http.StatusAccepted, result)
}

type executeRequest struct {
	Capability string `json:"capability"`
	Prompt     string `json:"prompt"`
}

// handleExecute handles POST /tasks/execute
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Prompt == "" {
		http.Error(w, "prompt required", http.StatusBadRequest)
		return
	}

	capability, err := models.ParseCapability(req.Capability)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.service.ExecuteTask(r.Context(), capability, req.Prompt)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
