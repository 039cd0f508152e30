package mcp

import (
	"context"

	"github.com/google/uuid"

	"github.com/meltforce/curlcoach/internal/hub"
	"github.com/meltforce/curlcoach/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both Backend (in-process)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListSessions(ctx context.Context, userID int) ([]hub.Info, error)
	GetSession(ctx context.Context, userID int, id uuid.UUID) (hub.Info, error)
	ListPresets(ctx context.Context, userID int) ([]storage.Preset, error)
}

// Backend serves MCP requests from the live hub and the preset store.
type Backend struct {
	Hub   *hub.Hub
	Store storage.Store
}

// Compile-time check: Backend satisfies DataSource.
var _ DataSource = Backend{}

func (b Backend) ListSessions(_ context.Context, userID int) ([]hub.Info, error) {
	return b.Hub.List(userID), nil
}

func (b Backend) GetSession(_ context.Context, userID int, id uuid.UUID) (hub.Info, error) {
	return b.Hub.Get(userID, id)
}

func (b Backend) ListPresets(ctx context.Context, userID int) ([]storage.Preset, error) {
	return b.Store.ListPresets(ctx, userID)
}
