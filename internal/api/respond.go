// Tasteworlds - Personalized Taste Modeling and Playlist Generation
// Copyright 2026 M. Vance (mvance)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mvance/tasteworlds

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mvance/tasteworlds/internal/logging"
)

// apiResponse is the envelope for every API response.
type apiResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata metadata    `json:"metadata"`
	Error    *apiError   `json:"error,omitempty"`
}

type metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// apiError carries a machine-readable code alongside the human message.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, response *apiResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API error")
	}

	respondJSON(w, status, &apiResponse{
		Status:   "error",
		Metadata: metadata{Timestamp: time.Now()},
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	})
}
