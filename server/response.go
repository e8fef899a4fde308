package server

import (
	"encoding/json"
	"net/http"

	"Melodia/logger"
)

// envelope is the JSON shape every /api route answers with.
type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("[HTTP] failed to encode response", logger.ErrorField(err))
	}
}

func writeData(w http.ResponseWriter, status int, data interface{}, message string) {
	body := envelope{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{"success": false, "error": msg})
}
