// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/metrics"
	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/store"
)

const (
	// DefaultCleanupDays is the age threshold when a cleanup names none.
	DefaultCleanupDays = 90
	// DefaultCleanupBatch bounds one cleanup pass. Callers loop until a
	// pass deletes nothing to drain a large backlog.
	DefaultCleanupBatch = 100

	dayMillis = 24 * 60 * 60 * 1000
)

// CleanupOptions configures one retention pass.
type CleanupOptions struct {
	// OlderThanDays selects events older than this many days.
	// <= 0 means DefaultCleanupDays.
	OlderThanDays int `json:"older_than_days,omitempty"`

	// PreserveSeverity exempts events of the listed severities.
	PreserveSeverity []models.Severity `json:"preserve_severity,omitempty"`

	// RetentionCategory, when set, restricts deletion to events carrying
	// exactly this category.
	RetentionCategory string `json:"retention_category,omitempty"`

	// BatchSize bounds the number of candidates examined in this pass.
	// <= 0 means DefaultCleanupBatch.
	BatchSize int `json:"batch_size,omitempty"`
}

// Cleanup deletes old events in one bounded pass and returns how many were
// removed. Exempted candidates count against the batch but survive; a
// return of 0 with a non-empty log means everything old enough is exempt
// or nothing has aged out yet.
func (s *Service) Cleanup(opts CleanupOptions) (int, error) {
	days := opts.OlderThanDays
	if days <= 0 {
		days = DefaultCleanupDays
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultCleanupBatch
	}

	cutoff := s.now() - int64(days)*dayMillis
	if cutoff <= 1 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Oldest first, strictly older than the cutoff.
	candidates, err := s.store.Scan(store.ScanOptions{
		Ordering: store.ByTime,
		To:       cutoff - 1,
		Limit:    batch,
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for i := range candidates {
		c := &candidates[i]
		if severityIn(c.Severity, opts.PreserveSeverity) {
			continue
		}
		if opts.RetentionCategory != "" && c.RetentionCategory != opts.RetentionCategory {
			continue
		}

		removed, err := s.deleteLocked(c.ID)
		if err != nil {
			return deleted, err
		}
		if removed != nil {
			deleted++
		}
	}

	if deleted > 0 {
		metrics.EventsDeleted.Add(float64(deleted))
		logging.Info().
			Int("deleted", deleted).
			Int("examined", len(candidates)).
			Int("older_than_days", days).
			Msg("Retention pass completed")
	}
	return deleted, nil
}

// BackfillOptions configures one reconciliation batch.
type BackfillOptions struct {
	// Cursor resumes after the given event id. Empty starts from the
	// oldest event; an invalid cursor also starts from the oldest.
	Cursor string `json:"cursor,omitempty"`

	// BatchSize bounds the events examined. <= 0 means DefaultCleanupBatch.
	BatchSize int `json:"batch_size,omitempty"`
}

// BackfillResult reports one batch's progress.
type BackfillResult struct {
	Processed int    `json:"processed"`
	Repaired  int    `json:"repaired"`
	Cursor    string `json:"cursor,omitempty"`
	IsDone    bool   `json:"is_done"`
}

// Backfill walks one batch of the primary log and inserts any aggregate
// entries the indexes are missing. Re-running over the same range changes
// nothing, so interrupted runs can simply restart.
func (s *Service) Backfill(opts BackfillOptions) (*BackfillResult, error) {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultCleanupBatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Read one past the batch to learn whether anything remains.
	events, err := s.store.Scan(store.ScanOptions{
		Ordering: store.ByTime,
		Limit:    batch + 1,
		AfterID:  opts.Cursor,
	})
	if err != nil {
		return nil, err
	}

	more := len(events) > batch
	if more {
		events = events[:batch]
	}

	repaired := 0
	for i := range events {
		e := &events[i]
		if s.sevIdx.InsertIfAbsent(string(e.Severity), e.Timestamp, e.ID) {
			repaired++
		}
		if s.actIdx.InsertIfAbsent(e.Action, e.Timestamp, e.ID) {
			repaired++
		}
	}

	metrics.BackfillProcessed.Add(float64(len(events)))
	if repaired > 0 {
		metrics.BackfillRepaired.Add(float64(repaired))
	}

	res := &BackfillResult{
		Processed: len(events),
		Repaired:  repaired,
		IsDone:    !more,
	}
	if len(events) > 0 {
		res.Cursor = events[len(events)-1].ID
	}
	return res, nil
}

// BackfillAll drains Backfill to completion. Run at startup so counts are
// exact before the first query arrives.
func (s *Service) BackfillAll(batchSize int) (int, error) {
	total := 0
	cursor := ""
	for {
		res, err := s.Backfill(BackfillOptions{Cursor: cursor, BatchSize: batchSize})
		if err != nil {
			return total, err
		}
		total += res.Processed
		if res.IsDone {
			return total, nil
		}
		cursor = res.Cursor
	}
}
