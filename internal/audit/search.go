// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"time"

	"github.com/robertalv/audit-log/internal/metrics"
	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/store"
)

const (
	// DefaultPageSize applies when a page request carries no limit.
	DefaultPageSize = 50
	// MaxPageSize caps any single page.
	MaxPageSize = 1000

	// searchBatchFactor sizes the underlying scan batches relative to the
	// page limit, so selective filters do not force one scan per match.
	searchBatchFactor = 4
)

// SearchFilter selects events by any combination of criteria. Values within
// one field are ORed; fields are ANDed together. Zero-valued fields match
// everything.
type SearchFilter struct {
	Severities    []models.Severity `json:"severities,omitempty"`
	Actions       []string          `json:"actions,omitempty"`
	ResourceTypes []string          `json:"resource_types,omitempty"`
	ActorIDs      []string          `json:"actor_ids,omitempty"`
	Tags          []string          `json:"tags,omitempty"`

	// From and To bound the timestamp window, inclusive. To <= 0 means "now".
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`
}

// PageRequest carries pagination state. An empty cursor starts from the
// newest event; an invalid cursor silently does the same.
type PageRequest struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// SearchResult is one page of matches, newest first.
type SearchResult struct {
	Items   []models.Event `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// Search walks the time ordering newest-first and returns the next page of
// events matching the filter. The same filter and cursor always yield the
// same page against an unchanged log.
func (s *Service) Search(filter SearchFilter, page PageRequest) (*SearchResult, error) {
	start := time.Now()
	defer func() { metrics.RecordSearch(time.Since(start)) }()

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	to := filter.To
	if to <= 0 {
		to = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]models.Event, 0, limit)
	cursor := page.Cursor
	batch := limit * searchBatchFactor
	hasMore := false

scan:
	for {
		events, err := s.store.Scan(store.ScanOptions{
			Ordering: store.ByTime,
			From:     filter.From,
			To:       to,
			Reverse:  true,
			Limit:    batch,
			AfterID:  cursor,
		})
		if err != nil {
			return nil, err
		}

		for i := range events {
			if !matchesFilter(&events[i], &filter) {
				continue
			}
			if len(matched) == limit {
				hasMore = true
				break scan
			}
			matched = append(matched, events[i])
		}

		if len(events) < batch {
			break
		}
		cursor = events[len(events)-1].ID
	}

	res := &SearchResult{Items: matched, HasMore: hasMore}
	if hasMore && len(matched) > 0 {
		res.Cursor = matched[len(matched)-1].ID
	}
	return res, nil
}

func matchesFilter(e *models.Event, f *SearchFilter) bool {
	if len(f.Severities) > 0 && !severityIn(e.Severity, f.Severities) {
		return false
	}
	if len(f.Actions) > 0 && !stringIn(e.Action, f.Actions) {
		return false
	}
	if len(f.ResourceTypes) > 0 && !stringIn(e.ResourceType, f.ResourceTypes) {
		return false
	}
	if len(f.ActorIDs) > 0 && !stringIn(e.ActorID, f.ActorIDs) {
		return false
	}
	if len(f.Tags) > 0 && !e.HasAnyTag(f.Tags) {
		return false
	}
	return true
}

func severityIn(s models.Severity, set []models.Severity) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func stringIn(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
