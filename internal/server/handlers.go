package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crucible/internal/llm"
	"crucible/internal/pipeline"
	"crucible/internal/sandbox"
	"crucible/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeGeneratorError answers generation endpoints when the generator
// is unconfigured or failed. Both cases carry fix-it suggestions; they
// differ only in status, since an unconfigured generator is permanent
// until the operator acts and an upstream failure may pass.
func writeGeneratorError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, llm.ErrUnavailable) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"error":       err.Error(),
		"suggestions": llm.UnavailableSuggestions,
	})
}

// writeStoreError maps storage lookup failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrAmbiguous):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Execution handlers ---

type executeRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	writeJSON(w, http.StatusOK, s.runCode(r.Context(), req.Code))
}

// runCode executes one snippet, tracks it while in flight, and records
// the outcome.
func (s *Server) runCode(ctx context.Context, code string) *storage.Run {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	id := uuid.New().String()
	s.active.Track(id, storage.KindExecute, cancel)
	defer s.active.Remove(id)

	res := s.engine.Execute(ctx, code)
	run := pipeline.NewRun(storage.KindExecute, "", "", code, res)
	run.ID = id // keep the id clients saw in /api/active
	s.saveRun(run)
	return run
}

// saveRun records a finished run. History is best-effort and never fails
// the request; a background context keeps the write alive when the
// client has already disconnected.
func (s *Server) saveRun(run *storage.Run) {
	if err := s.store.CreateRun(context.Background(), run); err != nil {
		s.log.Error().Err(err).Str("run", run.ID).Msg("recording run")
	}
}

type checkRequest struct {
	Code string `json:"code"`
}

type violationView struct {
	Kind       string `json:"kind"`
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

type checkResponse struct {
	Valid      bool            `json:"valid"`
	Violations []violationView `json:"violations"`
}

// handleCheck runs the static pre-check without executing anything.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vios := sandbox.Check(req.Code, s.engine.Policy())
	resp := checkResponse{
		Valid:      len(vios) == 0,
		Violations: make([]violationView, 0, len(vios)),
	}
	for _, v := range vios {
		resp.Violations = append(resp.Violations, violationView{
			Kind:       string(v.Kind),
			Identifier: v.Identifier,
			Message:    v.String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type validateRequest struct {
	Prompt string `json:"prompt"`
}

// handleValidate checks a task description before the caller spends a
// generation on it. An empty or hopeless prompt is a 200 with
// valid:false, not a request error.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, llm.ValidateTask(req.Prompt))
}

// checkTask rejects prompts that would waste a generation. Reports
// whether the request may proceed.
func checkTask(w http.ResponseWriter, prompt string) bool {
	v := llm.ValidateTask(prompt)
	if !v.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       v.Message,
			"suggestions": v.Suggestions,
		})
	}
	return v.Valid
}

// --- Generation handlers ---

type generateRequest struct {
	Prompt  string `json:"prompt"`
	Profile string `json:"profile,omitempty"`
	Repairs *int   `json:"repairs,omitempty"` // generate-and-execute only
}

// lookupProfile resolves a named generation profile. An empty name is
// valid and means defaults.
func (s *Server) lookupProfile(name string) (*llm.Profile, bool) {
	if name == "" {
		return nil, true
	}
	p, ok := s.profiles[name]
	return p, ok
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !checkTask(w, req.Prompt) {
		return
	}
	if s.gen == nil || !s.gen.Available() {
		writeGeneratorError(w, llm.ErrUnavailable)
		return
	}
	profile, ok := s.lookupProfile(req.Profile)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown profile %q", req.Profile))
		return
	}

	gen, err := s.gen.Generate(r.Context(), llm.Request{
		Prompt:  req.Prompt,
		Modules: s.engine.Policy().AllowedImports,
		Profile: profile,
	})
	if err != nil {
		writeGeneratorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

func (s *Server) handleGenerateAndExecute(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if !checkTask(w, req.Prompt) {
		return
	}
	profile, ok := s.lookupProfile(req.Profile)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown profile %q", req.Profile))
		return
	}
	repairs := 1
	if req.Repairs != nil {
		repairs = *req.Repairs
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.New().String()
	s.active.Track(id, storage.KindGenerate, cancel)
	defer s.active.Remove(id)

	run, err := s.pipe.Run(ctx, req.Prompt, profile, repairs)
	if err != nil {
		writeGeneratorError(w, err)
		return
	}

	run.ID = id
	s.saveRun(run)
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.gen.(*llm.OpenAICompatClient)
	if !ok || !lister.Available() {
		writeGeneratorError(w, llm.ErrUnavailable)
		return
	}

	models, err := lister.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if models == nil {
		models = []llm.ModelInfo{}
	}
	writeJSON(w, http.StatusOK, models)
}

// --- Policy and stats handlers ---

type policyView struct {
	AllowedImports      []string `json:"allowed_imports"`
	BlockedNames        []string `json:"blocked_names"`
	MaxExecutionSeconds float64  `json:"max_execution_seconds"`
	MaxOutputChars      int      `json:"max_output_chars"`
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	p := s.engine.Policy()
	writeJSON(w, http.StatusOK, policyView{
		AllowedImports:      p.AllowedImports,
		BlockedNames:        p.BlockedNames,
		MaxExecutionSeconds: p.MaxExecutionTime.Seconds(),
		MaxOutputChars:      p.MaxOutputChars,
	})
}

// statsResponse introspects the policy and collaborator health, plus
// the run-history totals.
type statsResponse struct {
	MaxExecutionTime   float64        `json:"max_execution_time"`
	MaxOutputLength    int            `json:"max_output_length"`
	AllowedImports     []string       `json:"allowed_imports"`
	SecurityLevel      string         `json:"security_level"`
	GeneratorAvailable bool           `json:"generator_available"`
	Timestamp          time.Time      `json:"timestamp"`
	ActiveExecutions   int            `json:"active_executions"`
	Runs               *storage.Stats `json:"runs"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	pol := s.engine.Policy()
	imports := append([]string(nil), pol.AllowedImports...)
	sort.Strings(imports)

	writeJSON(w, http.StatusOK, statsResponse{
		MaxExecutionTime:   pol.MaxExecutionTime.Seconds(),
		MaxOutputLength:    pol.MaxOutputChars,
		AllowedImports:     imports,
		SecurityLevel:      "restricted",
		GeneratorAvailable: s.gen != nil && s.gen.Available(),
		Timestamp:          time.Now().UTC(),
		ActiveExecutions:   s.active.Count(),
		Runs:               stats,
	})
}

// --- Run history handlers ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := storage.RunListOptions{}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		k := storage.RunKind(kind)
		if k != storage.KindExecute && k != storage.KindGenerate {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown kind %q", kind))
			return
		}
		opts.Kind = k
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(storage.ExportMarkdown(run)))
	case "json":
		data, err := storage.ExportJSON(run)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
	}
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Active run handlers ---

func (s *Server) handleListActive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.active.List())
}

func (s *Server) handleCancelActive(w http.ResponseWriter, r *http.Request) {
	if !s.active.Cancel(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "no active run with that id")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
