package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const jsonContentType = "application/json; charset=utf-8"

// writeJSON marshals v up front so an encoding failure can still become a
// clean 500 instead of a truncated body with a success status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal response", slog.String("error", err.Error()))
		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// errResponse is the uniform error envelope every failing endpoint returns.
type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResponse{Error: msg})
}
