package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanissrairi/kicad-mcp-server/internal/broker"
	"github.com/yanissrairi/kicad-mcp-server/internal/journal"
	"github.com/yanissrairi/kicad-mcp-server/internal/pyproc"
	"github.com/yanissrairi/kicad-mcp-server/internal/tools"
)

const journalDefaultLimit = 50

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	running := s.proc != nil && s.proc.Running()
	if !running {
		status = "degraded"
	}

	s.writeJSON(w, http.StatusOK, HealthzResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		ChildRunning:  running,
	})
}

// handleCommand handles POST /v1/commands/{name}
// The request body carries the command's params; the reply is the child's
// document verbatim. The connection stays open until the command settles,
// which for exports and DRC can be minutes.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "command name is required")
		return
	}

	var req CommandRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	var params map[string]any
	if len(req.Params) > 0 {
		params = make(map[string]any)
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.writeError(w, http.StatusBadRequest, "params must be a JSON object")
			return
		}
	}

	raw, err := s.client.Invoke(r.Context(), name, params)
	if err != nil {
		s.writeSubmitError(w, name, err)
		return
	}

	s.writeJSON(w, http.StatusOK, CommandResponse{Command: name, Result: raw})
}

// writeSubmitError maps command failures onto HTTP status codes.
func (s *Server) writeSubmitError(w http.ResponseWriter, command string, err error) {
	var timeoutErr *broker.TimeoutError
	var crashErr *broker.CrashError
	var paramErr *tools.ParamError
	var cmdErr *tools.CommandError

	switch {
	case errors.As(err, &paramErr):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &cmdErr):
		// The child ran the command and reported failure.
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &timeoutErr):
		s.writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &crashErr),
		errors.Is(err, pyproc.ErrProcessNotRunning),
		errors.Is(err, broker.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; the command still runs to completion.
		s.writeError(w, http.StatusRequestTimeout, err.Error())
	default:
		s.logger.Error("command submission failed", "command", command, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleStatus handles GET /v1/status
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	running := s.proc != nil && s.proc.Running()
	resp := StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		ChildRunning:  running,
	}
	if running {
		resp.ChildPID = s.proc.PID()
	} else {
		resp.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleJournal handles GET /v1/journal?limit=N
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	limit := journalDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read journal", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	s.writeJSON(w, http.StatusOK, JournalResponse{Entries: entries})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
