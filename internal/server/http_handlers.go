package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/janelia-flyem/NeuroProof-sub002/internal/logging"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/edgerank"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/editor"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/rag"
	"github.com/janelia-flyem/NeuroProof-sub002/pkg/session"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

// registerHTTPHandlers sets up the REST routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/top-edge", s.handleTopEdge)
	mux.HandleFunc("POST /v1/decisions", s.handleDecision)
	mux.HandleFunc("POST /v1/undo", s.handleUndo)
	mux.HandleFunc("POST /v1/edges/weight", s.handleEdgeWeight)
	mux.HandleFunc("POST /v1/estimate", s.handleEstimate)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("GET /v1/stats", s.handleStats)
	mux.HandleFunc("POST /v1/mode", s.handleMode)
	mux.HandleFunc("GET /v1/qa-violators", s.handleViolators)
	mux.HandleFunc("GET /v1/state", s.handleGetState)
	mux.HandleFunc("POST /v1/state/export", s.handleExport)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": s.Session.ID(),
	})
}

func (s *Server) handleTopEdge(w http.ResponseWriter, r *http.Request) {
	c, err := s.Session.TopEdge()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, c)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	pair := edgerank.NodePair{Primary: rag.NodeID(req.Primary), Secondary: rag.NodeID(req.Secondary)}
	stats, err := s.Session.Decide(r.Context(), pair, req.Rejected)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, stats)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	undone, stats, err := s.Session.Undo(r.Context())
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, UndoResponse{Undone: undone, Stats: stats})
}

func (s *Server) handleEdgeWeight(w http.ResponseWriter, r *http.Request) {
	var req EdgeWeightRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}

	if err := s.Session.SetEdgeWeight(r.Context(), rag.NodeID(req.Node1), rag.NodeID(req.Node2), req.Weight); err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, s.Session.Stats())
}

// handleEstimate runs the simulation inline, or as a background task when
// ?async=true. Either way the session lock serializes it with decisions.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if !async {
		n, err := s.Session.Estimate(r.Context())
		if err != nil {
			s.writeSessionError(w, err)
			return
		}
		s.writeHTTPResponse(w, http.StatusOK, EstimateResponse{Remaining: n})
		return
	}

	ctx := logging.WithLogger(context.Background(), logging.FromContext(r.Context()))
	task := s.taskManager.Start(func() (int, error) {
		return s.Session.Estimate(ctx)
	})
	s.writeHTTPResponse(w, http.StatusAccepted, TaskResponse{TaskID: task.ID(), Status: string(TaskStatusStarted)})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskManager.GetTask(r.PathValue("id"))
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, s.Session.Stats())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req session.ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	stats, err := s.Session.SetMode(r.Context(), req)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, stats)
}

func (s *Server) handleViolators(w http.ResponseWriter, r *http.Request) {
	threshold := s.Session.Config().QAThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeHTTPError(w, http.StatusBadRequest, "threshold must be a non-negative integer")
			return
		}
		threshold = v
	}

	ids := s.Session.QAViolators(threshold)
	regions := make([]uint64, len(ids))
	for i, id := range ids {
		regions[i] = uint64(id)
	}
	s.writeHTTPResponse(w, http.StatusOK, ViolatorsResponse{Threshold: threshold, Regions: regions})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.Session.WriteState(w); err != nil {
		s.logger.Error("Failed to write state document", "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Export(r.Context()); err != nil {
		s.writeSessionError(w, err)
		return
	}
	cfg := s.Session.Config()
	s.writeHTTPResponse(w, http.StatusOK, ExportResponse{
		SessionID: s.Session.ID(),
		GraphPath: cfg.GraphPath,
		StatePath: cfg.StatePath,
	})
}

// decodeRequest decodes and validates a JSON body. On failure it writes a
// 400 and returns false.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return false
	}
	return true
}

// writeSessionError maps session errors onto HTTP status codes.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, editor.ErrNoCandidateEdge),
		errors.Is(err, rag.ErrEdgeNotFound),
		errors.Is(err, rag.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, editor.ErrUnknownMode),
		errors.Is(err, editor.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNoStatePath):
		status = http.StatusConflict
	default:
		s.logger.Error("Session operation failed", "error", err)
	}
	s.writeHTTPError(w, status, err.Error())
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
