package server

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response wrapper of the cart API. success=false
// with a message is the sole error signal clients consume.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func respondData(w http.ResponseWriter, code int, data any) {
	env := Envelope{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
		env.Data = raw
	}
	writeJSON(w, code, env)
}

func respondError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, Envelope{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
