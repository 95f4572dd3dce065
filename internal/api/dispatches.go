package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
	"github.com/nerrad567/gray-logic-actuation/internal/dispatch"
)

// stopAllTimeout bounds the hardware stop sent by POST /dispatches/stop-all.
const stopAllTimeout = 10 * time.Second

// actuatorResponse describes one actuator of the catalogue.
type actuatorResponse struct {
	ID       string `json:"id"`
	Device   string `json:"device"`
	Protocol string `json:"protocol"`
	Kind     string `json:"kind"`
	Index    int    `json:"index"`
	Linear   bool   `json:"linear"`
}

// dispatchResponse is returned when a dispatch is accepted.
type dispatchResponse struct {
	Handle uint64 `json:"handle"`
	Status string `json:"status"`
}

// handleListActuators returns the configured actuators.
func (s *Server) handleListActuators(w http.ResponseWriter, _ *http.Request) {
	actuators := s.service.Catalogue().Actuators()
	resp := make([]actuatorResponse, 0, len(actuators))
	for _, a := range actuators {
		resp = append(resp, actuatorResponse{
			ID:       a.Identifier(),
			Device:   a.Device.Name,
			Protocol: a.Device.Protocol,
			Kind:     string(a.Kind),
			Index:    a.Index,
			Linear:   a.IsLinear(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"actuators": resp,
		"count":     len(resp),
	})
}

// handleListPatterns returns the available pattern scripts.
func (s *Server) handleListPatterns(w http.ResponseWriter, _ *http.Request) {
	if s.patterns == nil {
		writeDispatchError(w, dispatch.ErrPatternsUnavailable)
		return
	}

	names, err := s.patterns.List()
	if err != nil {
		writeDispatchError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": names,
		"count":    len(names),
	})
}

// handleCreateDispatch validates and starts a dispatch. It returns as soon
// as the command is running; progress is reported over WebSocket and MQTT.
func (s *Server) handleCreateDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.RequestID == "" {
		req.RequestID, _ = r.Context().Value(ctxKeyRequestID).(string) //nolint:errcheck // empty when unset
	}

	h, err := s.service.Dispatch(r.Context(), req)
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dispatchResponse{
		Handle: uint64(h),
		Status: string(dispatch.StateRunning),
	})
}

// handleListDispatches returns the running dispatches.
func (s *Server) handleListDispatches(w http.ResponseWriter, _ *http.Request) {
	active := s.service.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"dispatches": active,
		"count":      len(active),
	})
}

// handleDispatchHistory returns recent dispatches, newest first.
// Query: ?limit=N (default 20, max 500).
func (s *Server) handleDispatchHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading dispatch history", "error", err)
		writeInternalError(w, "failed to read dispatch history")
		return
	}
	if records == nil {
		records = []dispatch.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dispatches": records,
		"count":      len(records),
	})
}

// handleStopDispatch cancels one dispatch.
func (s *Server) handleStopDispatch(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "handle")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		writeBadRequest(w, "handle must be a positive integer")
		return
	}

	if err := s.service.Stop(actuation.Handle(n)); err != nil {
		writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"handle": n,
		"status": "stopping",
	})
}

// handleStopAll cancels every dispatch and stops all devices.
func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stopAllTimeout)
	defer cancel()

	if err := s.service.StopAll(ctx); err != nil {
		s.logger.Error("stop all failed", "error", err)
		writeInternalError(w, "stop all failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "stopped",
	})
}
