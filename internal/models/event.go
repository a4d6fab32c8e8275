// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package models defines the event record and configuration shapes shared by
// the store, aggregate index, and service layers.
package models

import (
	"github.com/goccy/go-json"
)

// Severity classifies the impact of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Severities returns all valid severity values in display order
// (info < warning < error < critical).
func Severities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}
}

// Valid reports whether s is one of the four known severity values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}

// Event is one immutable audit entry. Once stored, an event never changes;
// the only permitted mutation is wholesale deletion by the retention engine.
type Event struct {
	// ID is an opaque unique identifier assigned at insert. Never reused.
	ID string `json:"id"`

	// Action describes what was done, conventionally dot-namespaced
	// (e.g. "user.login"). Required.
	Action string `json:"action"`

	// ActorID identifies who or what performed the action.
	ActorID string `json:"actor_id,omitempty"`

	// Timestamp is milliseconds since epoch, assigned by the store at insert.
	Timestamp int64 `json:"timestamp"`

	// ResourceType and ResourceID identify the affected entity. Both must be
	// present for the event to appear in resource-ordered scans.
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Severity is required and must be a valid Severity value.
	Severity Severity `json:"severity"`

	// Metadata is an arbitrary structured payload, opaque to the store.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	// Before, After, and Diff are present only for change-tracking events.
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
	Diff   string          `json:"diff,omitempty"`

	// Request context fields.
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Tags is an unordered set of classification strings.
	Tags []string `json:"tags,omitempty"`

	// RetentionCategory selects a differentiated deletion policy.
	RetentionCategory string `json:"retention_category,omitempty"`
}

// HasResource reports whether both resource fields are set. Events missing
// either field are excluded from the resource ordering.
func (e *Event) HasResource() bool {
	return e.ResourceType != "" && e.ResourceID != ""
}

// HasTag reports whether the event carries the given tag.
func (e *Event) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the event carries at least one of the given tags.
func (e *Event) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}
