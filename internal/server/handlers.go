package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/curlcoach/internal/hub"
	"github.com/meltforce/curlcoach/internal/pose"
	"github.com/meltforce/curlcoach/internal/storage"
	"github.com/meltforce/curlcoach/internal/tracker"
)

const (
	maxPresetName = 64
	maxBodyBytes  = 1 << 20
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}

// --- Presets ---

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	presets, err := s.store.ListPresets(r.Context(), uid)
	if err != nil {
		s.log.Error("listing presets", "user_id", uid, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, presets)
}

func (s *Server) handlePutPreset(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" || len(name) > maxPresetName {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "preset name must be 1-64 characters"})
		return
	}

	var settings storage.Overrides
	if err := decodeBody(w, r, &settings); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	p := storage.Preset{Name: name, Settings: settings}
	if err := p.TrackerConfig(s.base).Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := s.store.UpsertPreset(r.Context(), uid, p)
	if err != nil {
		s.log.Error("saving preset", "user_id", uid, "preset", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	err := s.store.DeletePreset(r.Context(), uid, chi.URLParam(r, "name"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "preset not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Sessions ---

// createSessionRequest is the optional JSON body for starting a session.
// Settings apply on top of the preset, which applies on top of the server defaults.
type createSessionRequest struct {
	Preset   string            `json:"preset"`
	Settings storage.Overrides `json:"settings"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	cfg := s.base
	if req.Preset != "" {
		p, err := s.store.GetPreset(r.Context(), uid, req.Preset)
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "preset not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		cfg = p.TrackerConfig(cfg)
	}
	cfg = req.Settings.Apply(cfg)

	info, err := s.hub.Create(uid, cfg)
	if errors.Is(err, tracker.ErrInvalidConfig) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.hub.List(uid))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := sessionParams(w, r)
	if !ok {
		return
	}
	info, err := s.hub.Get(uid, id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := sessionParams(w, r)
	if !ok {
		return
	}
	if err := s.hub.Delete(uid, id); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFrame feeds one pose frame and returns the resulting state.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := sessionParams(w, r)
	if !ok {
		return
	}
	var f pose.Frame
	if err := decodeBody(w, r, &f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := f.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snap, ev, err := s.hub.Feed(uid, id, f)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hub.Update{State: snap, Events: ev.Names()})
}

// sessionParams resolves the caller and the {id} path parameter.
func sessionParams(w http.ResponseWriter, r *http.Request) (int, uuid.UUID, bool) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return 0, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return 0, uuid.Nil, false
	}
	return uid, id, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, hub.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, hub.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// decodeBody decodes a size-limited JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
