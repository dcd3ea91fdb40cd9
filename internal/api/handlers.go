package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darvall/gistcal/internal/apperr"
	"github.com/darvall/gistcal/internal/eventservice"
	"github.com/darvall/gistcal/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *eventservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *eventservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListEvents handles GET /api/events.
//
//	@Summary		List events inside the publication window
//	@Tags			events
//	@Produce		json
//	@Param			all	query		bool	false	"Return every stored event instead of the window"
//	@Success		200	{object}	EventListResponse
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	now := time.Now()

	events, err := h.svc.List(r.Context(), all, now)
	if err != nil {
		slog.Error("list events failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := EventListResponse{Events: toEventDTOs(events), Total: len(events)}
	if !all {
		from, to := h.svc.Window(now)
		resp.From = from.Format(models.TimeLayout)
		resp.To = to.Format(models.TimeLayout)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetEvent handles GET /api/events/{uid}.
//
//	@Summary		Get a single event by UID
//	@Tags			events
//	@Produce		json
//	@Param			uid	path		string	true	"Event UID"
//	@Success		200	{object}	EventDTO
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events/{uid} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	ev, err := h.svc.Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get event failed", slog.String("uid", uid), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(*ev))
}

// ClearEvents handles DELETE /api/events.
//
//	@Summary		Remove every stored event
//	@Tags			events
//	@Produce		json
//	@Success		200	{object}	ClearResponse
//	@Security		BearerAuth
//	@Router			/events [delete]
func (h *Handler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Clear(r.Context())
	if err != nil {
		slog.Error("clear events failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Deleted: n})
}

// Search handles GET /api/search.
//
//	@Summary		Search event subjects and descriptions
//	@Tags			events
//	@Produce		json
//	@Param			q		query		string	true	"Substring to look for"
//	@Param			limit	query		int		false	"Max results (default 20)"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := params.Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, _ := strconv.Atoi(params.Get("limit"))

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("event search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: toEventDTOs(results)})
}

// Publish handles POST /api/publish.
//
//	@Summary		Render the current window and publish it
//	@Tags			publish
//	@Produce		json
//	@Success		200	{object}	PublishReport
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.PublishCalendar(r.Context(), time.Now())
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrPublishDisabled):
			writeError(w, http.StatusConflict, "publishing disabled")
		case errors.Is(err, apperr.ErrPublish):
			slog.Error("publish failed", slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			slog.Error("publish failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Status handles GET /api/status.
//
//	@Summary		Pipeline status
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), time.Now())
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// CalendarHandler serves the rendered window at GET /calendar.ics. It is
// mounted outside the auth group: subscription clients cannot attach
// custom headers, and the published gist is public anyway.
func CalendarHandler(svc *eventservice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cal, err := svc.BuildCalendar(r.Context(), time.Now())
		if err != nil {
			slog.Error("build calendar failed", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(cal.Document))
	}
}
