package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"timesheet/apperror"
	"timesheet/middleware"
	"timesheet/models"

	"go.uber.org/zap"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindState, apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError maps service errors onto a status and a {code, message} body.
// Anything that is not an apperror is logged and reported as a 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, errUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "Unauthorized"})
		return
	case errors.Is(err, errForbidden):
		forbidden(w)
		return
	}
	if e, ok := apperror.As(err); ok {
		if e.Kind == apperror.KindDependency {
			log.Warn("dependency failure", zap.Error(err))
		}
		writeJSON(w, statusFor(e.Kind), errorResponse{Code: e.Code(), Message: e.Message})
		return
	}
	log.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Code:    "TIMESHEET_INTERNAL_SERVER_ERROR",
		Message: "Internal server error",
	})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Code: apperror.CodeValidation, Message: message})
}

func forbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, errorResponse{Code: "FORBIDDEN", Message: "Forbidden"})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("Invalid request body: %v", err)
	}
	return nil
}

func parseDate(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperror.Validation("%s is required", name)
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, apperror.Validation("Invalid %s: expected yyyy-MM-dd", name)
	}
	return d, nil
}

func parseYearMonth(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		return 0, 0, apperror.Validation("Invalid year")
	}
	month, err = strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, apperror.Validation("Invalid month")
	}
	return year, month, nil
}

// optionalInt returns nil when the query parameter is absent.
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperror.Validation("Invalid %s", name)
	}
	return &v, nil
}

// employeeParam resolves the employee a request is about. It defaults to
// the caller; other employees need one of the given roles.
func employeeParam(r *http.Request, raw string, roles ...models.Role) (string, error) {
	p := middleware.GetUserFromContext(r.Context())
	if p == nil {
		return "", errUnauthenticated
	}
	if raw == "" {
		return p.EmployeeCode, nil
	}
	if p.CanActFor(raw) || (len(roles) > 0 && p.HasRole(roles...)) {
		return raw, nil
	}
	return "", errForbidden
}

var (
	errUnauthenticated = errors.New("unauthenticated")
	errForbidden       = errors.New("forbidden")
)
