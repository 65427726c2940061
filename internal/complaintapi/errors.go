package complaintapi

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/grievance/internal/complaint"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// writeError maps engine errors onto HTTP statuses. Server-side failures are
// logged; client errors are not.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		verr *complaint.ValidationError
		terr *complaint.TransitionError
		perr *complaint.PersistenceError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field})
	case errors.As(err, &terr):
		writeJSON(w, http.StatusConflict, errorBody{Error: terr.Error(), From: string(terr.From), To: string(terr.To)})
	case errors.Is(err, complaint.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.As(err, &perr) && perr.Retryable():
		a.logger.Error(r.Context(), err, op+" failed", "timeout", perr.Timeout())
		markSpan(r, err)
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "temporarily unavailable, retry"})
	default:
		a.logger.Error(r.Context(), err, op+" failed")
		markSpan(r, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func markSpan(r *http.Request, err error) {
	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
