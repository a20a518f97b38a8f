// internal/controller/response.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	appErrors "github.com/kplanner/kplanner-backend/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps the error taxonomy onto HTTP statuses: not found is 404,
// validation is 400, everything else is a 500 with a generic message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": err.Error()})
	case appErrors.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
	}
}

func writeInvalidBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
}

// queryInt reads an integer query parameter, 0 when absent or malformed.
func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// queryIntPtr reads an optional integer query parameter.
func queryIntPtr(r *http.Request, key string) *int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// queryBoolPtr reads an optional boolean query parameter.
func queryBoolPtr(r *http.Request, key string) *bool {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// queryTimePtr reads an optional RFC 3339 or date-only query parameter.
func queryTimePtr(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	return nil
}
