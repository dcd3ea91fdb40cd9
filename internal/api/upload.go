package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/darvall/gistcal/internal/apperr"
)

const maxUploadBytes = 10 << 20 // 10 MB

// Upload handles POST /api/upload (multipart/form-data, field "file").
//
//	@Summary		Ingest an Outlook CSV export and publish the refreshed window
//	@Tags			ingest
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"CSV export"
//	@Param			publish	query		bool	false	"Set to false to ingest without publishing"
//	@Success		200		{object}	SyncReport
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid multipart")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' field in multipart form")
		return
	}
	defer file.Close()

	doPublish := r.URL.Query().Get("publish") != "false"

	report, err := h.svc.Sync(r.Context(), file, time.Now(), doPublish)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidHeader):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, apperr.ErrPublish):
			// The batch is committed; hand back the report alongside
			// the upstream failure.
			slog.Error("upload publish failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, map[string]any{
				"error":  err.Error(),
				"report": report,
			})
		default:
			slog.Error("upload failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}
