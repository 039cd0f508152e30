package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/meltforce/curlcoach/internal/hub"
	"github.com/meltforce/curlcoach/internal/pose"
)

// handleSessionEvents streams a "state" event after every accepted frame.
// The stream ends with an "end" event when the session is deleted or evicted.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := sessionParams(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
		return
	}

	ch, unsubscribe, err := s.hub.Subscribe(uid, id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	defer unsubscribe()
	info, err := s.hub.Get(uid, id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send current state immediately
	fmt.Fprintf(w, "event: state\ndata: %s\n\n", mustJSON(hub.Update{State: info.State, Events: []string{}}))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-ch:
			if !ok {
				fmt.Fprint(w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "event: state\ndata: %s\n\n", mustJSON(u))
			flusher.Flush()
		}
	}
}

// handleSessionSocket is the bidirectional variant of the frames endpoint:
// the client sends pose frames and gets one update back per frame. Bad or
// rate-limited frames get an error message and the connection stays open.
func (s *Server) handleSessionSocket(w http.ResponseWriter, r *http.Request) {
	uid, id, ok := sessionParams(w, r)
	if !ok {
		return
	}
	if _, err := s.hub.Get(uid, id); err != nil {
		writeSessionError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		s.log.Warn("websocket accept failed", "session", id, "error", err)
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	for {
		var f pose.Frame
		if err := wsjson.Read(ctx, c, &f); err != nil {
			// wsjson closes the connection itself on malformed JSON.
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				s.log.Debug("websocket read ended", "session", id, "error", err)
			}
			return
		}
		if err := f.Validate(); err != nil {
			if wsjson.Write(ctx, c, map[string]string{"error": err.Error()}) != nil {
				return
			}
			continue
		}

		snap, ev, err := s.hub.Feed(uid, id, f)
		switch {
		case errors.Is(err, hub.ErrSessionNotFound):
			c.Close(websocket.StatusPolicyViolation, "session ended")
			return
		case err != nil:
			if wsjson.Write(ctx, c, map[string]string{"error": err.Error()}) != nil {
				return
			}
			continue
		}
		if err := wsjson.Write(ctx, c, hub.Update{State: snap, Events: ev.Names()}); err != nil {
			return
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{}`
	}
	return string(b)
}
