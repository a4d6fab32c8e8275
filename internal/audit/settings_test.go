// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/robertalv/audit-log/internal/models"
)

func TestSettings_DefaultsBeforeFirstWrite(t *testing.T) {
	s := newTestService(t)

	cfg := s.Settings()
	if cfg.DefaultRetentionDays != 90 {
		t.Errorf("default_retention_days = %d, want 90", cfg.DefaultRetentionDays)
	}
	if cfg.CriticalRetentionDays != 365 {
		t.Errorf("critical_retention_days = %d, want 365", cfg.CriticalRetentionDays)
	}
	if cfg.SamplingEnabled {
		t.Error("sampling is off by default")
	}
	if cfg.SamplingRate != 1.0 {
		t.Errorf("sampling_rate = %v, want 1.0", cfg.SamplingRate)
	}
	if len(cfg.PIIFieldsToRedact) != 0 {
		t.Errorf("pii_fields_to_redact should default empty, got %v", cfg.PIIFieldsToRedact)
	}
}

func TestUpdateSettings_PatchMerge(t *testing.T) {
	s := newTestService(t)

	days := 30
	updated, err := s.UpdateSettings(models.SettingsPatch{DefaultRetentionDays: &days})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.DefaultRetentionDays != 30 {
		t.Errorf("default_retention_days = %d, want 30", updated.DefaultRetentionDays)
	}
	// Untouched fields keep their defaults.
	if updated.CriticalRetentionDays != 365 {
		t.Errorf("critical_retention_days = %d, patch must not reset it", updated.CriticalRetentionDays)
	}

	// A second patch leaves the first change in place.
	enabled := true
	rate := 0.5
	updated, err = s.UpdateSettings(models.SettingsPatch{SamplingEnabled: &enabled, SamplingRate: &rate})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if updated.DefaultRetentionDays != 30 {
		t.Errorf("earlier patch lost: default_retention_days = %d", updated.DefaultRetentionDays)
	}
	if !updated.SamplingEnabled || updated.SamplingRate != 0.5 {
		t.Errorf("sampling patch not applied: %+v", updated)
	}
}

func TestUpdateSettings_PersistsAcrossRestart(t *testing.T) {
	s := newTestService(t)

	days := 14
	if _, err := s.UpdateSettings(models.SettingsPatch{DefaultRetentionDays: &days}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A second service over the same store sees the persisted record.
	reopened, err := New(s.store)
	if err != nil {
		t.Fatalf("reopen service: %v", err)
	}
	if got := reopened.Settings().DefaultRetentionDays; got != 14 {
		t.Errorf("reloaded default_retention_days = %d, want 14", got)
	}
}

func TestUpdateSettings_Validation(t *testing.T) {
	s := newTestService(t)

	bad := 1.5
	if _, err := s.UpdateSettings(models.SettingsPatch{SamplingRate: &bad}); !IsValidation(err) {
		t.Errorf("rate above 1 should be rejected, got %v", err)
	}

	neg := -0.1
	if _, err := s.UpdateSettings(models.SettingsPatch{SamplingRate: &neg}); !IsValidation(err) {
		t.Errorf("negative rate should be rejected, got %v", err)
	}

	zero := 0
	if _, err := s.UpdateSettings(models.SettingsPatch{DefaultRetentionDays: &zero}); !IsValidation(err) {
		t.Errorf("zero retention should be rejected, got %v", err)
	}

	if _, err := s.UpdateSettings(models.SettingsPatch{CustomRetention: map[string]int{"debug": 0}}); !IsValidation(err) {
		t.Errorf("zero custom retention should be rejected, got %v", err)
	}

	// Failed updates change nothing.
	if got := s.Settings().SamplingRate; got != 1.0 {
		t.Errorf("failed update leaked: sampling_rate = %v", got)
	}
}

type uppercaseRedactor struct{}

func (uppercaseRedactor) Redact(payload json.RawMessage, fields []string) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload
	}
	for _, f := range fields {
		if _, ok := m[f]; ok {
			m[f] = "[REDACTED]"
		}
	}
	out, err := json.Marshal(m)
	if err != nil {
		return payload
	}
	return out
}

func TestRedactor_AppliedToMetadata(t *testing.T) {
	s := newTestService(t)
	s.redactor = uppercaseRedactor{}

	if _, err := s.UpdateSettings(models.SettingsPatch{
		PIIFieldsToRedact: []string{"email"},
	}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	id := mustLog(t, s, LogRequest{
		Action:   "user.signup",
		Severity: models.SeverityInfo,
		Metadata: json.RawMessage(`{"email":"a@example.com","plan":"pro"}`),
	})

	e, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(e.Metadata, &m); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if m["email"] != "[REDACTED]" {
		t.Errorf("email should be redacted, got %v", m["email"])
	}
	if m["plan"] != "pro" {
		t.Errorf("non-PII field must pass through, got %v", m["plan"])
	}
}
