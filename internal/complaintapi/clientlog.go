package complaintapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

const (
	maxClientLogBody    = 8 << 10
	maxClientAction     = 64
	defaultClientAction = "client_event"
)

type clientLogRequest struct {
	Action  string          `json:"action"`
	Details json.RawMessage `json:"details"`
}

// handleClientLog records a client-side event as a structured audit line.
// The caller may be anonymous; the actor is whatever Identify resolved.
func (a *API) handleClientLog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxClientLogBody)

	var req clientLogRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, "client log", err)
		return
	}

	action := strings.TrimSpace(req.Action)
	if action == "" {
		action = defaultClientAction
	}
	if len(action) > maxClientAction {
		a.writeError(w, r, "client log", &complaint.ValidationError{Field: "action", Reason: "is too long"})
		return
	}

	details := "{}"
	if len(req.Details) > 0 && string(req.Details) != "null" {
		details = string(req.Details)
	}

	v := viewerFrom(r.Context())
	a.logger.Info(r.Context(), "client event",
		"actor", v.ActorID,
		"action", action,
		"details", details,
		"remote", remoteHost(r),
	)

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "logged"})
}
