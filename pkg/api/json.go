package api

import (
	"encoding/json"
	"net/http"
)

// JSONWrite writes v as a JSON response with the given status.
func JSONWrite(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError writes a JSON error body with the given status.
func JSONError(w http.ResponseWriter, msg string, status int) {
	JSONWrite(w, status, map[string]any{"error": msg})
}
