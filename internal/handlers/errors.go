package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/inkdrop/inkdrop/internal/service"
)

// ErrMessageInternal is the generic message for 500 responses. Do not expose internal details to clients.
const ErrMessageInternal = "Internal server error"

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FieldError is one failed input rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the 400 body for rejected input.
type ValidationErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details"`
}

// JSONError sends {error, message} with status.
func JSONError(w http.ResponseWriter, r *http.Request, status int, name, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: name, Message: message})
}

// JSONValidationError sends 400 {error:"Validation failed", details}.
func JSONValidationError(w http.ResponseWriter, r *http.Request, details []FieldError) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ValidationErrorResponse{Error: "Validation failed", Details: details})
}

// statusFor maps a service outcome to its HTTP status and error name.
func statusFor(kind service.Kind) (int, string) {
	switch kind {
	case service.KindConflict:
		return http.StatusConflict, "Conflict"
	case service.KindAuthFailed:
		return http.StatusUnauthorized, "Authentication failed"
	case service.KindForbidden:
		return http.StatusForbidden, "Forbidden"
	case service.KindNotFound:
		return http.StatusNotFound, "Not Found"
	case service.KindBadRequest:
		return http.StatusBadRequest, "Bad Request"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// serviceError writes err as an {error, message} response. Raw postgres constraint
// errors that reach this point are still reported as 409 or 400. Internal causes are
// logged with the request ID and never sent to the client.
func serviceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var se *service.Error
	switch {
	case errors.As(err, &se) && se.Kind != service.KindInternal:
		status, name := statusFor(se.Kind)
		JSONError(w, r, status, name, se.Message)
	case service.IsUniqueViolation(err):
		JSONError(w, r, http.StatusConflict, "Conflict", "Resource already exists")
	case service.IsForeignKeyViolation(err):
		JSONError(w, r, http.StatusBadRequest, "Bad Request", "Referenced resource does not exist")
	default:
		log.Error("request failed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err)
		JSONError(w, r, http.StatusInternalServerError, "Internal Server Error", ErrMessageInternal)
	}
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSONError(w, r, http.StatusNotFound, "Not Found", fmt.Sprintf("Route %s %s not found", r.Method, r.URL.Path))
}
