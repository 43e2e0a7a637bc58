// Package api is the thin HTTP dispatch surface spec.md §1 names as an
// external-collaborator concern: it wires the routes of spec §6 to the
// procedure layers, the load generator, and the reset coordinator, without
// reimplementing any of their logic.
package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the {ok, data|error} wire shape every route returns (spec §6).
type envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func respondOK(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{OK: true, Data: data})
}

func respondError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{OK: false, Error: message})
}
