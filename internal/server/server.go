package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/curlcoach/internal/hub"
	"github.com/meltforce/curlcoach/internal/mcp"
	"github.com/meltforce/curlcoach/internal/storage"
	"github.com/meltforce/curlcoach/internal/tracker"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store   storage.Store
	hub     *hub.Hub
	base    tracker.Config
	log     *slog.Logger
	apiKey  string
	version string
	ts      WhoIser
	router  chi.Router
}

// New creates a new Server with all routes configured. base is the tracker
// configuration new sessions start from before preset and request overrides.
func New(store storage.Store, h *hub.Hub, base tracker.Config, apiKey, version string, log *slog.Logger) *Server {
	s := &Server{
		store:   store,
		hub:     h,
		base:    base,
		log:     log,
		apiKey:  apiKey,
		version: version,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches identity resolution from the dev user to tailnet
// WhoIs lookups and rebuilds the routes. Call before serving.
func (s *Server) SetTailscale(lc WhoIser) {
	s.ts = lc
	s.router = chi.NewRouter()
	s.routes()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// identity returns the identity middleware for the current mode.
func (s *Server) identity() func(http.Handler) http.Handler {
	if s.ts == nil {
		return DevIdentity
	}
	return TailscaleIdentity(s.ts, s.store, s.log)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	identity := s.identity()

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(identity)

		r.Get("/me", s.handleMe)

		r.Get("/presets", s.handleListPresets)
		r.Put("/presets/{name}", s.handlePutPreset)
		r.Delete("/presets/{name}", s.handleDeletePreset)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Post("/sessions/{id}/frames", s.handleFrame)
		r.Get("/sessions/{id}/events", s.handleSessionEvents)
		r.Get("/sessions/{id}/ws", s.handleSessionSocket)
	})

	mcpHTTP := mcpserver.NewStreamableHTTPServer(
		mcp.New(mcp.Backend{Hub: s.hub, Store: s.store}, s.version, s.log),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return mcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(identity)
		r.Handle("/mcp", mcpHTTP)
	})
}
