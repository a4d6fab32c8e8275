// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package models

// Settings is the singleton configuration record for the audit engine:
// retention defaults plus the sampling and PII policy. Exactly one instance
// exists at a time. It is created lazily with DefaultSettings on first write.
type Settings struct {
	// DefaultRetentionDays applies to events without a more specific policy.
	DefaultRetentionDays int `json:"default_retention_days"`

	// CriticalRetentionDays applies to critical-severity events.
	CriticalRetentionDays int `json:"critical_retention_days"`

	// PIIFieldsToRedact lists metadata field names an external redactor
	// should strip before events reach the store.
	PIIFieldsToRedact []string `json:"pii_fields_to_redact"`

	// SamplingEnabled turns on probabilistic dropping of info-severity events.
	SamplingEnabled bool `json:"sampling_enabled"`

	// SamplingRate is the probability in [0,1] that a sampled event is kept.
	SamplingRate float64 `json:"sampling_rate"`

	// CustomRetention maps a retention category to its retention in days.
	CustomRetention map[string]int `json:"custom_retention"`
}

// DefaultSettings returns the fixed defaults used when no settings record
// exists yet.
func DefaultSettings() *Settings {
	return &Settings{
		DefaultRetentionDays:  90,
		CriticalRetentionDays: 365,
		PIIFieldsToRedact:     []string{},
		SamplingEnabled:       false,
		SamplingRate:          1.0,
		CustomRetention:       map[string]int{},
	}
}

// SettingsPatch is a partial settings update. Nil fields are left untouched.
type SettingsPatch struct {
	DefaultRetentionDays  *int            `json:"default_retention_days,omitempty"`
	CriticalRetentionDays *int            `json:"critical_retention_days,omitempty"`
	PIIFieldsToRedact     []string        `json:"pii_fields_to_redact,omitempty"`
	SamplingEnabled       *bool           `json:"sampling_enabled,omitempty"`
	SamplingRate          *float64        `json:"sampling_rate,omitempty" validate:"omitempty,min=0,max=1"`
	CustomRetention       map[string]int  `json:"custom_retention,omitempty"`
}

// Apply merges the patch into s, modifying only the supplied fields.
func (p *SettingsPatch) Apply(s *Settings) {
	if p.DefaultRetentionDays != nil {
		s.DefaultRetentionDays = *p.DefaultRetentionDays
	}
	if p.CriticalRetentionDays != nil {
		s.CriticalRetentionDays = *p.CriticalRetentionDays
	}
	if p.PIIFieldsToRedact != nil {
		s.PIIFieldsToRedact = p.PIIFieldsToRedact
	}
	if p.SamplingEnabled != nil {
		s.SamplingEnabled = *p.SamplingEnabled
	}
	if p.SamplingRate != nil {
		s.SamplingRate = *p.SamplingRate
	}
	if p.CustomRetention != nil {
		s.CustomRetention = p.CustomRetention
	}
}
