package complaintapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/grievance/internal/authmw"
	"github.com/linnemanlabs/grievance/internal/complaint"
)

type createRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SubCategory string `json:"subCategory"`
	Priority    string `json:"priority"`
	Location    string `json:"location"`
	IsAnonymous bool   `json:"isAnonymous"`
}

// duplicateWarning is the client projection of a DuplicateCandidate; the
// score is rounded to a whole percentage.
type duplicateWarning struct {
	ComplaintID     string `json:"complaintId"`
	Title           string `json:"title"`
	SimilarityScore int    `json:"similarityScore"`
}

type createResponse struct {
	Message           string                    `json:"message"`
	Complaint         *complaint.Complaint      `json:"complaint"`
	DuplicateWarnings []duplicateWarning        `json:"duplicateWarnings"`
	Categorization    *complaint.Categorization `json:"categorization,omitempty"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type transitionResponse struct {
	Complaint     *complaint.Complaint     `json:"complaint"`
	TimelineEvent *complaint.TimelineEvent `json:"timelineEvent"`
}

type detailResponse struct {
	Complaint *complaint.Complaint       `json:"complaint"`
	Timeline  []*complaint.TimelineEvent `json:"timeline"`
}

type listResponse struct {
	Complaints []*complaint.Complaint `json:"complaints"`
	Count      int                    `json:"count"`
}

type voteResponse struct {
	ID    string `json:"id"`
	Votes int64  `json:"votes"`
}

type categorizeRequest struct {
	Text string `json:"text"`
}

func (a *API) handleCreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, "create complaint", err)
		return
	}

	sub := complaint.Submission{
		Title:       req.Title,
		Description: req.Description,
		SubCategory: strings.TrimSpace(req.SubCategory),
		Priority:    complaint.Priority(strings.ToLower(strings.TrimSpace(req.Priority))),
		Location:    strings.TrimSpace(req.Location),
		IsAnonymous: req.IsAnonymous,
		OwnerID:     authmw.FromContext(r.Context()).ActorID,
	}
	if strings.TrimSpace(req.Category) != "" {
		c, ok := complaint.ParseCategory(req.Category)
		if !ok {
			a.writeError(w, r, "create complaint", &complaint.ValidationError{Field: "category", Reason: "is not a known category"})
			return
		}
		sub.Category = c
	}

	res, err := a.svc.Create(r.Context(), sub)
	if err != nil {
		a.writeError(w, r, "create complaint", err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("grievance.complaint.id", res.Complaint.ID),
		attribute.String("grievance.complaint.category", string(res.Complaint.Category)),
	)

	warnings := make([]duplicateWarning, 0, len(res.DuplicateWarnings))
	for _, d := range res.DuplicateWarnings {
		warnings = append(warnings, duplicateWarning{
			ComplaintID:     d.ComplaintID,
			Title:           d.Title,
			SimilarityScore: complaint.RoundScore(d.SimilarityScore),
		})
	}

	writeJSON(w, http.StatusCreated, createResponse{
		Message:           "Complaint submitted successfully",
		Complaint:         res.Complaint.View(viewerFrom(r.Context())),
		DuplicateWarnings: warnings,
		Categorization:    res.Categorization,
	})
}

func (a *API) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("grievance.complaint.id", id))

	d, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.writeError(w, r, "get complaint", err)
		return
	}

	v := viewerFrom(r.Context())
	timeline := make([]*complaint.TimelineEvent, 0, len(d.Timeline))
	for _, e := range d.Timeline {
		timeline = append(timeline, e.View(d.Complaint, v))
	}

	writeJSON(w, http.StatusOK, detailResponse{
		Complaint: d.Complaint.View(v),
		Timeline:  timeline,
	})
}

func (a *API) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f complaint.Filter

	if s := q.Get("category"); s != "" {
		c, ok := complaint.ParseCategory(s)
		if !ok {
			a.writeError(w, r, "list complaints", &complaint.ValidationError{Field: "category", Reason: "is not a known category"})
			return
		}
		f.Category = c
	}
	if s := q.Get("status"); s != "" {
		st, ok := complaint.ParseStatus(s)
		if !ok {
			a.writeError(w, r, "list complaints", &complaint.ValidationError{Field: "status", Reason: "is not a known status"})
			return
		}
		f.Status = st
	}
	if q.Get("mine") == "true" {
		f.OwnerID = authmw.FromContext(r.Context()).ActorID
		if f.OwnerID == "" {
			a.writeError(w, r, "list complaints", &complaint.ValidationError{Field: "mine", Reason: "requires " + authmw.ActorHeader})
			return
		}
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		a.writeError(w, r, "list complaints", err)
		return
	}
	if f.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		a.writeError(w, r, "list complaints", err)
		return
	}

	cs, err := a.svc.List(r.Context(), f)
	if err != nil {
		a.writeError(w, r, "list complaints", err)
		return
	}

	v := viewerFrom(r.Context())
	out := make([]*complaint.Complaint, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.View(v))
	}
	writeJSON(w, http.StatusOK, listResponse{Complaints: out, Count: len(out)})
}

func intParam(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &complaint.ValidationError{Field: field, Reason: "must be an integer"}
	}
	return n, nil
}

func (a *API) handleTransition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, "transition", err)
		return
	}
	target, ok := complaint.ParseStatus(req.Status)
	if !ok {
		a.writeError(w, r, "transition", &complaint.ValidationError{Field: "status", Reason: "is not a known status"})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("grievance.complaint.id", id),
		attribute.String("grievance.complaint.target_status", string(target)),
	)

	res, err := a.svc.Transition(r.Context(), id, target, authmw.FromContext(r.Context()).ActorID)
	if err != nil {
		a.writeError(w, r, "transition", err)
		return
	}

	writeJSON(w, http.StatusOK, transitionResponse{
		Complaint:     res.Complaint.View(viewerFrom(r.Context())),
		TimelineEvent: res.Event,
	})
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	votes, err := a.svc.Vote(r.Context(), id)
	if err != nil {
		a.writeError(w, r, "vote", err)
		return
	}
	writeJSON(w, http.StatusOK, voteResponse{ID: id, Votes: votes})
}

func (a *API) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, "categorize", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		a.writeError(w, r, "categorize", &complaint.ValidationError{Field: "text", Reason: "is required"})
		return
	}
	writeJSON(w, http.StatusOK, complaint.Categorize(req.Text))
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.svc.Summary(r.Context())
	if err != nil {
		a.writeError(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type trendsResponse struct {
	Months []complaint.MonthCount `json:"months"`
}

func (a *API) handleTrends(w http.ResponseWriter, r *http.Request) {
	months, err := a.svc.Trends(r.Context())
	if err != nil {
		a.writeError(w, r, "trends", err)
		return
	}
	if months == nil {
		months = []complaint.MonthCount{}
	}
	writeJSON(w, http.StatusOK, trendsResponse{Months: months})
}
