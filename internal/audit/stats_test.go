// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"testing"

	"github.com/robertalv/audit-log/internal/models"
)

func TestGetStats_SeverityCountsExact(t *testing.T) {
	s := newTestService(t)

	for i := int64(0); i < 5; i++ {
		mustLog(t, s, LogRequest{Action: "a.info", Severity: models.SeverityInfo, Timestamp: testNow - 1000 - i})
	}
	for i := int64(0); i < 3; i++ {
		mustLog(t, s, LogRequest{Action: "a.err", Severity: models.SeverityError, Timestamp: testNow - 2000 - i})
	}
	mustLog(t, s, LogRequest{Action: "a.crit", Severity: models.SeverityCritical, Timestamp: testNow - 3000})

	// One event outside the window.
	mustLog(t, s, LogRequest{Action: "a.old", Severity: models.SeverityInfo, Timestamp: testNow - defaultStatsWindow - 1000})

	st, err := s.GetStats(0, 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if st.TotalCount != 9 {
		t.Errorf("total = %d, want 9", st.TotalCount)
	}
	if st.BySeverity[models.SeverityInfo] != 5 {
		t.Errorf("info = %d, want 5", st.BySeverity[models.SeverityInfo])
	}
	if st.BySeverity[models.SeverityError] != 3 {
		t.Errorf("error = %d, want 3", st.BySeverity[models.SeverityError])
	}
	if st.BySeverity[models.SeverityCritical] != 1 {
		t.Errorf("critical = %d, want 1", st.BySeverity[models.SeverityCritical])
	}
	if st.BySeverity[models.SeverityWarning] != 0 {
		t.Errorf("warning = %d, want 0", st.BySeverity[models.SeverityWarning])
	}
	if st.From != testNow-defaultStatsWindow {
		t.Errorf("default window start = %d, want %d", st.From, testNow-defaultStatsWindow)
	}
}

func TestGetStats_TopLists(t *testing.T) {
	s := newTestService(t)

	emit := func(action, actor string, n int) {
		for i := 0; i < n; i++ {
			mustLog(t, s, LogRequest{Action: action, ActorID: actor, Severity: models.SeverityInfo,
				Timestamp: testNow - int64(1000+i)})
		}
	}
	emit("user.login", "alice", 6)
	emit("file.read", "bob", 4)
	emit("file.write", "", 2) // actorless, counts for actions only

	st, err := s.GetStats(0, 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if len(st.TopActions) != 3 {
		t.Fatalf("expected 3 ranked actions, got %d", len(st.TopActions))
	}
	if st.TopActions[0].Name != "user.login" || st.TopActions[0].Count != 6 {
		t.Errorf("top action = %+v, want user.login x6", st.TopActions[0])
	}
	if st.TopActions[1].Name != "file.read" {
		t.Errorf("second action = %+v, want file.read", st.TopActions[1])
	}

	if len(st.TopActors) != 2 {
		t.Fatalf("actorless events must not rank as actors, got %d entries", len(st.TopActors))
	}
	if st.TopActors[0].Name != "alice" || st.TopActors[0].Count != 6 {
		t.Errorf("top actor = %+v, want alice x6", st.TopActors[0])
	}

	if st.SampleSize != 12 {
		t.Errorf("sample size = %d, want 12", st.SampleSize)
	}
}

func TestGetStats_ExplicitWindow(t *testing.T) {
	s := newTestService(t)

	mustLog(t, s, LogRequest{Action: "a", Severity: models.SeverityInfo, Timestamp: 1000})
	mustLog(t, s, LogRequest{Action: "a", Severity: models.SeverityInfo, Timestamp: 2000})
	mustLog(t, s, LogRequest{Action: "a", Severity: models.SeverityInfo, Timestamp: 3000})

	st, err := s.GetStats(1500, 2500)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalCount != 1 {
		t.Errorf("windowed total = %d, want 1", st.TotalCount)
	}
	if st.SampleSize != 1 {
		t.Errorf("windowed sample = %d, want 1", st.SampleSize)
	}
}

func TestTopN_TieBreakIsFirstSeen(t *testing.T) {
	values := []string{"b", "a", "b", "a", "c"}

	ranked := topN(values, 10)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(ranked))
	}
	// b and a tie at 2; b was seen first.
	if ranked[0].Name != "b" || ranked[1].Name != "a" {
		t.Errorf("tie should rank first-seen value first, got %+v", ranked)
	}

	if got := topN(values, 2); len(got) != 2 {
		t.Errorf("topN should truncate to n, got %d", len(got))
	}
}
