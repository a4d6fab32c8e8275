// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package services

import (
	"context"
	"time"

	"github.com/robertalv/audit-log/internal/audit"
	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/metrics"
	"github.com/robertalv/audit-log/internal/models"
)

// RetentionService periodically applies the retention policy from the
// current settings record. Each tick runs three kinds of passes:
//
//  1. the default pass, deleting events past the default retention while
//     preserving critical ones
//  2. the critical pass, deleting anything past the critical retention
//  3. one pass per custom retention category
//
// Each pass drains in bounded batches so a large backlog cannot hold the
// engine's write lock for long stretches.
type RetentionService struct {
	svc       *audit.Service
	interval  time.Duration
	batchSize int
}

// NewRetentionService builds the sweeper. interval <= 0 disables ticking
// entirely (Serve blocks until canceled); batchSize <= 0 uses the engine
// default.
func NewRetentionService(svc *audit.Service, interval time.Duration, batchSize int) *RetentionService {
	return &RetentionService{svc: svc, interval: interval, batchSize: batchSize}
}

// Serve implements suture.Service.
func (s *RetentionService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *RetentionService) sweep(ctx context.Context) error {
	cfg := s.svc.Settings()
	total := 0

	passes := []audit.CleanupOptions{
		{
			OlderThanDays:    cfg.DefaultRetentionDays,
			PreserveSeverity: []models.Severity{models.SeverityCritical},
			BatchSize:        s.batchSize,
		},
		{
			OlderThanDays: cfg.CriticalRetentionDays,
			BatchSize:     s.batchSize,
		},
	}
	for category, days := range cfg.CustomRetention {
		passes = append(passes, audit.CleanupOptions{
			OlderThanDays:     days,
			RetentionCategory: category,
			BatchSize:         s.batchSize,
		})
	}

	for _, opts := range passes {
		n, err := s.drain(ctx, opts)
		if err != nil {
			return err
		}
		total += n
	}

	metrics.RetentionSweeps.Inc()
	if total > 0 {
		logging.Info().Int("deleted", total).Msg("Retention sweep completed")
	}
	return nil
}

// drain repeats one cleanup pass until a batch deletes nothing or the
// context ends.
func (s *RetentionService) drain(ctx context.Context, opts audit.CleanupOptions) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.svc.Cleanup(opts)
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
	}
}

// String identifies the service in supervisor logs.
func (s *RetentionService) String() string {
	return "retention-sweeper"
}
