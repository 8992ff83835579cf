package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"sanfish/fishdata"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// badRequest is a malformed request caught before it reaches the service.
type badRequest string

func (e badRequest) Error() string { return string(e) }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func statusOf(err error) int {
	var br badRequest
	if errors.As(err, &br) {
		return http.StatusBadRequest
	}
	switch fishdata.KindOf(err) {
	case fishdata.ErrValidation:
		return http.StatusBadRequest
	case fishdata.ErrNotFound:
		return http.StatusNotFound
	case fishdata.ErrForbidden:
		return http.StatusForbidden
	case fishdata.ErrConflict:
		return http.StatusConflict
	case fishdata.ErrTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes the error envelope. The cause is only exposed in development.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := fishdata.Message(err)
	var br badRequest
	if errors.As(err, &br) {
		msg = string(br)
	}
	if status >= http.StatusInternalServerError {
		a.log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	body := envelope{Success: false, Message: msg}
	if a.cfg.isDevelopment() {
		body.Error = err.Error()
	}
	writeJSON(w, status, body)
}
