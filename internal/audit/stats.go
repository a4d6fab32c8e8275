// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"sort"

	"github.com/robertalv/audit-log/internal/aggindex"
	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/store"
)

const (
	// statsSampleCap bounds the number of records inspected for the top-N
	// lists. Severity counts are exact; top lists are approximate beyond
	// the cap and the response says how many records fed them.
	statsSampleCap = 1000
	statsTopN     = 10

	defaultStatsWindow = 24 * 60 * 60 * 1000 // ms
)

// NameCount pairs a name with its occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats summarizes activity within a time window.
type Stats struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`

	// TotalCount and BySeverity are exact, answered from the severity
	// aggregate without touching the primary log.
	TotalCount int                     `json:"total_count"`
	BySeverity map[models.Severity]int `json:"by_severity"`

	// TopActions and TopActors rank the most frequent values among the
	// SampleSize most recent records in the window.
	TopActions []NameCount `json:"top_actions"`
	TopActors  []NameCount `json:"top_actors"`
	SampleSize int         `json:"sample_size"`
}

// GetStats computes window statistics. A zero From defaults to 24 hours
// before now; a zero To means unbounded above.
func (s *Service) GetStats(from, to int64) (*Stats, error) {
	if from <= 0 {
		from = s.now() - defaultStatsWindow
	}

	bounds := aggindex.Since(from)
	if to > 0 {
		bounds = aggindex.Between(from, to)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Stats{
		From:       from,
		To:         to,
		BySeverity: make(map[models.Severity]int, 4),
	}
	for _, sev := range models.Severities() {
		n := s.sevIdx.Count(string(sev), bounds)
		st.BySeverity[sev] = n
		st.TotalCount += n
	}

	sample, err := s.store.Scan(store.ScanOptions{
		Ordering: store.ByTime,
		From:     from,
		To:       to,
		Reverse:  true,
		Limit:    statsSampleCap,
	})
	if err != nil {
		return nil, err
	}
	st.SampleSize = len(sample)

	actions := make([]string, 0, len(sample))
	actors := make([]string, 0, len(sample))
	for i := range sample {
		actions = append(actions, sample[i].Action)
		if sample[i].ActorID != "" {
			actors = append(actors, sample[i].ActorID)
		}
	}
	st.TopActions = topN(actions, statsTopN)
	st.TopActors = topN(actors, statsTopN)

	return st, nil
}

// topN tallies values and returns the n most frequent. Ties rank in
// first-seen order so repeated calls over the same data agree.
func topN(values []string, n int) []NameCount {
	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	ranked := make([]NameCount, 0, len(order))
	for _, v := range order {
		ranked = append(ranked, NameCount{Name: v, Count: counts[v]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
