// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"github.com/robertalv/audit-log/internal/aggindex"
	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/metrics"
)

// AnomalyPattern declares a frequency rule: flag when an action occurs at
// least Threshold times within the trailing window.
type AnomalyPattern struct {
	Action        string `json:"action" validate:"required"`
	Threshold     int    `json:"threshold" validate:"required,min=1"`
	WindowMinutes int    `json:"window_minutes" validate:"required,min=1"`
}

// Anomaly is one triggered pattern.
type Anomaly struct {
	Action        string `json:"action"`
	Count         int    `json:"count"`
	Threshold     int    `json:"threshold"`
	WindowMinutes int    `json:"window_minutes"`
	DetectedAt    int64  `json:"detected_at"`
}

// DetectAnomalies evaluates each pattern against the action aggregate. No
// events are read; each pattern costs one O(log n) range count. Patterns
// that do not trigger produce nothing.
func (s *Service) DetectAnomalies(patterns []AnomalyPattern) ([]Anomaly, error) {
	now := s.now()

	for i := range patterns {
		p := &patterns[i]
		if p.Action == "" {
			return nil, validationErr("action", "must not be empty")
		}
		if p.Threshold < 1 {
			return nil, validationErr("threshold", "must be at least 1")
		}
		if p.WindowMinutes < 1 {
			return nil, validationErr("window_minutes", "must be at least 1")
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]Anomaly, 0)
	for _, p := range patterns {
		windowStart := now - int64(p.WindowMinutes)*60_000
		count := s.actIdx.Count(p.Action, aggindex.Since(windowStart))
		if count < p.Threshold {
			continue
		}

		found = append(found, Anomaly{
			Action:        p.Action,
			Count:         count,
			Threshold:     p.Threshold,
			WindowMinutes: p.WindowMinutes,
			DetectedAt:    now,
		})
		metrics.AnomaliesDetected.WithLabelValues(p.Action).Inc()
		logging.Warn().
			Str("action", p.Action).
			Int("count", count).
			Int("threshold", p.Threshold).
			Int("window_minutes", p.WindowMinutes).
			Msg("Anomaly pattern triggered")
	}
	return found, nil
}
