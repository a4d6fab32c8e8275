// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"fmt"

	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/models"
)

// Settings returns the current configuration record. When none has been
// persisted yet the fixed defaults are returned.
func (s *Service) Settings() *models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := *s.currentSettings()
	return &out
}

// UpdateSettings merges the patch into the current settings (creating the
// record from defaults on first write), persists the result, and returns it.
// Omitted fields keep their values.
func (s *Service) UpdateSettings(patch models.SettingsPatch) (*models.Settings, error) {
	if patch.SamplingRate != nil && (*patch.SamplingRate < 0 || *patch.SamplingRate > 1) {
		return nil, validationErr("sampling_rate", fmt.Sprintf("must be in [0, 1], got %v", *patch.SamplingRate))
	}
	if patch.DefaultRetentionDays != nil && *patch.DefaultRetentionDays < 1 {
		return nil, validationErr("default_retention_days", "must be at least 1")
	}
	if patch.CriticalRetentionDays != nil && *patch.CriticalRetentionDays < 1 {
		return nil, validationErr("critical_retention_days", "must be at least 1")
	}
	for category, days := range patch.CustomRetention {
		if days < 1 {
			return nil, validationErr("custom_retention", fmt.Sprintf("category %q must retain at least 1 day", category))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.currentSettings()
	updated := *cfg
	patch.Apply(&updated)

	if err := s.store.SaveSettings(&updated); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.settings = &updated

	logging.Info().Msg("Audit settings updated")
	out := updated
	return &out, nil
}

// currentSettings returns the cached record or the defaults. Caller holds
// at least the read lock.
func (s *Service) currentSettings() *models.Settings {
	if s.settings != nil {
		return s.settings
	}
	return models.DefaultSettings()
}

// sampledOut applies the sampling policy. Only info-severity events are
// candidates for dropping; warnings and above are always kept. Caller holds
// the write lock.
func (s *Service) sampledOut(severity models.Severity) bool {
	cfg := s.currentSettings()
	if !cfg.SamplingEnabled || severity != models.SeverityInfo {
		return false
	}
	return s.sample() >= cfg.SamplingRate
}
