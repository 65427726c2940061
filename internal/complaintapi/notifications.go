package complaintapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/grievance/internal/authmw"
	"github.com/linnemanlabs/grievance/internal/complaint"
)

type notificationsResponse struct {
	Notifications []*complaint.Notification `json:"notifications"`
	Count         int                       `json:"count"`
}

type markAllResponse struct {
	Updated int64 `json:"updated"`
}

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user := authmw.FromContext(r.Context()).ActorID
	unreadOnly := r.URL.Query().Get("unread") == "true"

	ns, err := a.notes.List(r.Context(), user, unreadOnly)
	if err != nil {
		a.writeError(w, r, "list notifications", err)
		return
	}
	if ns == nil {
		ns = []*complaint.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: ns, Count: len(ns)})
}

func (a *API) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user := authmw.FromContext(r.Context()).ActorID
	if err := a.notes.MarkRead(r.Context(), chi.URLParam(r, "id"), user); err != nil {
		a.writeError(w, r, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user := authmw.FromContext(r.Context()).ActorID
	n, err := a.notes.MarkAllRead(r.Context(), user)
	if err != nil {
		a.writeError(w, r, "mark all notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, markAllResponse{Updated: n})
}
