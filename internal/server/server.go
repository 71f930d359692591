// Package server exposes the scan pipeline over HTTP. The transport stays
// thin: it normalizes the request, hands it to the shield, and writes the
// outcome back out.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aegis-ai/aegis/internal/config"
	"github.com/aegis-ai/aegis/internal/interaction"
	"github.com/aegis-ai/aegis/internal/policy"
	"github.com/aegis-ai/aegis/internal/redact"
	"github.com/aegis-ai/aegis/internal/shield"
)

// Server wraps the HTTP components for Aegis.
type Server struct {
	mux      *http.ServeMux
	cfg      *config.Config
	shield   *shield.Shield
	policies policy.Service
}

// New creates a server with all routes registered.
func New(cfg *config.Config, sh *shield.Shield, policies policy.Service) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		cfg:      cfg,
		shield:   sh,
		policies: policies,
	}

	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/v1/scans", s.handleScan)

	return s
}

// Handler returns the server's HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the HTTP server on the given address.
func (s *Server) Start(addr string) error {
	log.Printf("Aegis shield running on %s", addr)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type scanTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type scanInteraction struct {
	ID          string     `json:"id"`
	ServiceName string     `json:"service_name"`
	LLMPrompts  []scanTurn `json:"llm_prompts"`
}

type scanRequest struct {
	ScanID         string           `json:"scan_id,omitempty"`
	Interaction    scanInteraction  `json:"interaction"`
	PolicyOverride *policy.Document `json:"policy_override,omitempty"`
}

type scanResponse struct {
	ScanID   string           `json:"scan_id"`
	Status   string           `json:"status"`
	Verdicts []shield.Verdict `json:"verdicts"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	turns := make([]interaction.Turn, 0, len(req.Interaction.LLMPrompts))
	for _, p := range req.Interaction.LLMPrompts {
		turns = append(turns, interaction.Turn{Role: p.Role, Content: p.Content})
	}

	in, err := interaction.New(req.Interaction.ID, req.Interaction.ServiceName, turns)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scanID := strings.TrimSpace(req.ScanID)
	if scanID == "" {
		scanID = uuid.NewString()
	}

	full, err := s.policies.DefaultPolicy(r.Context())
	if err != nil {
		redact.Logf("scan %s: policy lookup failed: %v", scanID, err)
		writeError(w, http.StatusInternalServerError, "policy unavailable")
		return
	}

	out, err := s.shield.Deflect(r.Context(), in, req.PolicyOverride, scanID, full)
	if err != nil {
		redact.Logf("scan %s: deflect failed: %v", scanID, err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(scanResponse{
		ScanID:   out.ScanID,
		Status:   string(out.Status),
		Verdicts: out.Verdicts,
	}); err != nil {
		redact.Logf("scan %s: failed to write response: %v", scanID, err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
