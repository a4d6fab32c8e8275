// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/robertalv/audit-log/internal/audit"
	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/validation"
)

// apiError is the wire shape of every error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// sanitizeLogValue replaces control characters so request-derived strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			b.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeJSON sends data as a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	body, err := json.Marshal(data)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// respondServiceError maps an engine error onto the HTTP taxonomy:
// validation failures reject with 400, everything else is a 500.
func respondServiceError(w http.ResponseWriter, err error) {
	var ve *audit.ValidationError
	if errors.As(err, &ve) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", ve.Error())
		return
	}
	logging.Error().Str("error", sanitizeLogValue(err.Error())).Msg("Request failed")
	respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
}

// decodeJSON parses a request body into v, rejecting unknown shapes early.
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}

// respondInvalid writes a 400 carrying every failed field of the request.
func respondInvalid(w http.ResponseWriter, verr *validation.RequestValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  apiError{Code: "VALIDATION_ERROR", Message: verr.Error()},
		"fields": verr.Fields(),
	})
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// queryInt64 parses an int64 query parameter.
func queryInt64(r *http.Request, name string, fallback int64) int64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
