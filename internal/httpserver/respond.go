package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"teamhub/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"status"`
	Issues  []domain.Issue `json:"issues,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type dataResponse struct {
	Data any `json:"data"`
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, dataResponse{Data: v})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// writeError is the single place domain errors become HTTP responses.
// Anything that is not a *domain.Error is a 500, logged and reported.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		logFrom(r).WithError(err).Error("request failed")
		report(r, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    domain.CodeInternal,
			Message: "internal server error",
			Status:  http.StatusInternalServerError,
		}})
		return
	}

	status := de.Status
	if status == 0 {
		status = statusOf(de.Kind)
	}
	if status >= http.StatusInternalServerError {
		logFrom(r).WithError(err).Error("request failed")
		report(r, err)
	}
	writeJSON(w, status, errorResponse{Error: errorBody{
		Code:    de.Code,
		Message: de.Message,
		Status:  status,
		Issues:  de.Issues,
	}})
}

func statusOf(k domain.Kind) int {
	switch k {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func report(r *http.Request, err error) {
	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("method", r.Method)
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			scope.SetTag("route", rctx.RoutePattern())
		}
		scope.SetExtra("request_id", middleware.GetReqID(r.Context()))
		hub.CaptureException(err)
	})
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.BadRequest("request body is required")
		}
		return domain.BadRequest("invalid JSON body")
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}
	issues := make([]domain.Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, domain.Issue{Field: fe.Field(), Rule: fe.Tag(), Message: issueMessage(fe)})
	}
	return domain.Validation(domain.CodeValidation, "invalid request", issues...)
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " long"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.BadRequest("invalid " + name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, domain.BadRequest("invalid " + name)
	}
	return n, nil
}
