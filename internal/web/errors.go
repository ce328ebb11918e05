package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with the technical detail and the request id
//   - mapped to a core.UserMessage with a support code
//   - rendered as JSON for API clients and as an HTML page otherwise

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/rollup/internal/core"
	"github.com/JonMunkholm/rollup/internal/logging"
	"github.com/JonMunkholm/rollup/internal/web/templates"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errFileTooLarge = errors.New("file too large")
)

// requestError is a malformed or invalid request.
type requestError struct {
	detail string
}

func (e *requestError) Error() string { return "invalid request: " + e.detail }

func invalidRequest(detail string) error { return &requestError{detail: detail} }

// ErrorResponse is the JSON body of an API error.
// Error is the full display string; Message, Action and Code are its parts.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var (
		reqErr   *requestError
		unread   *core.UnreadableWorkbookError
		sheetErr *core.SheetNotFoundError
		cfgErr   *core.ConfigurationError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, errFileTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDatasetNotFound), errors.Is(err, core.ErrRunNotFound):
		return http.StatusNotFound
	case errors.As(err, &unread),
		errors.As(err, &sheetErr),
		errors.As(err, &cfgErr),
		errors.Is(err, core.ErrNoHeaderRow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyRuns), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing error response.
// A zero statusCode is derived from the error.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userErr := core.NewUserError(err)
	userMsg := userErr.User

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", userErr.Technical.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if statusCode == http.StatusServiceUnavailable && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		resp := ErrorResponse{
			Error:   core.FormatUserError(userErr),
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		}
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			resp.Details = strings.Split(reqErr.detail, "; ")
		}
		render.Status(r, statusCode)
		render.JSON(w, r, resp)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = templates.ErrorPage(statusCode, userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}
