package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
// detail may be empty; when present it carries operator-facing context that is
// already redacted.
func ErrorResponse(w http.ResponseWriter, statusCode int, message, detail string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := map[string]string{"error": message}
	if detail != "" {
		body["detail"] = detail
	}
	return json.NewEncoder(w).Encode(body)
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}
