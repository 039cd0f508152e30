package mcp

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/curlcoach/internal/hub"
)

// --- Tool definitions ---

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List the user's live curl tracking sessions, oldest first, each with its configuration and latest state."),
)

var toolGetSessionState = mcp.NewTool("get_session_state",
	mcp.WithDescription("Get the current state of one tracking session: phase, active arm, reps per arm, completed sets, rest countdown, posture feedback and the instruction shown to the user."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session ID (UUID) as returned by list_sessions")),
)

var toolListPresets = mcp.NewTool("list_presets",
	mcp.WithDescription("List saved session presets. Each preset overrides some tracker settings (target reps/sets, rest seconds, angle thresholds)."),
)

// --- Tool handlers ---

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	sessions, err := h.ds.ListSessions(ctx, uid)
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{"sessions": sessions})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid session id: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	info, err := h.ds.GetSession(ctx, uid, id)
	if errors.Is(err, hub.ErrSessionNotFound) {
		return mcp.NewToolResultError("session not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_session_state", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(info)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listPresets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	presets, err := h.ds.ListPresets(ctx, uid)
	if err != nil {
		h.log.Error("mcp list_presets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{"presets": presets})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
