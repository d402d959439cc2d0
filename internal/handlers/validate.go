package handlers

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9-]+$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// decodeAndValidate reads a JSON body into dst (a pointer to struct) and runs its
// validate tags. An empty body decodes as {}. Each field's `msg` tag is the client-facing message for any rule
// it fails. It writes the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil && !errors.Is(err, io.EOF) {
		JSONError(w, r, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return false
	}
	if t, ok := dst.(interface{ trim() }); ok {
		t.trim()
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			JSONError(w, r, http.StatusBadRequest, "Bad Request", err.Error())
			return false
		}
		JSONValidationError(w, r, fieldErrors(dst, verrs))
		return false
	}
	return true
}

func fieldErrors(dst interface{}, verrs validator.ValidationErrors) []FieldError {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := ""
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			msg = sf.Tag.Get("msg")
		}
		if msg == "" {
			msg = fe.Field() + " failed " + fe.Tag() + " validation"
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

// pathUUID parses the {id} route parameter and writes a validation error when it is not a UUID.
func pathUUID(w http.ResponseWriter, r *http.Request, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		JSONValidationError(w, r, []FieldError{{Field: "id", Message: message}})
		return uuid.Nil, false
	}
	return id, true
}

// Pagination defaults and bounds for the public feed.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// pagination reads limit and offset from the query string. Absent values take
// the defaults; present values must be integers within bounds.
func pagination(r *http.Request) (limit, offset int, details []FieldError) {
	limit, offset = DefaultLimit, 0
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			details = append(details, FieldError{Field: "limit", Message: "Limit must be between 1 and 100"})
		} else {
			limit = n
		}
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			details = append(details, FieldError{Field: "offset", Message: "Offset must be non-negative"})
		} else {
			offset = n
		}
	}
	return limit, offset, details
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
