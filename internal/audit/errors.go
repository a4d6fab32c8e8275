// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"errors"
	"fmt"

	"github.com/robertalv/audit-log/internal/metrics"
	"github.com/robertalv/audit-log/internal/models"
)

// ValidationError rejects a write synchronously, before anything is stored.
// Lookups for unknown ids are not errors; they resolve to nil.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// rejectErr is validationErr for event writes; rejected writes are counted.
func rejectErr(field, reason string) error {
	metrics.EventsRejected.WithLabelValues(field).Inc()
	return validationErr(field, reason)
}

// validateBase checks the fields every event write requires.
func validateBase(action string, severity models.Severity) error {
	if action == "" {
		return rejectErr("action", "must not be empty")
	}
	if !severity.Valid() {
		return rejectErr("severity", fmt.Sprintf("unknown value %q", severity))
	}
	return nil
}
