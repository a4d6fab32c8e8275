// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package store

import (
	"testing"

	"github.com/robertalv/audit-log/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsert(t *testing.T, s *Store, e *models.Event) string {
	t.Helper()
	id, err := s.Insert(e)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return id
}

func TestStore_InsertGet(t *testing.T) {
	s := newTestStore(t)

	id := mustInsert(t, s, &models.Event{
		Action:   "user.login",
		ActorID:  "alice",
		Severity: models.SeverityInfo,
	})
	if id == "" {
		t.Fatal("insert should assign an id")
	}

	e, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil {
		t.Fatal("expected event, got nil")
	}
	if e.Action != "user.login" || e.ActorID != "alice" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Timestamp == 0 {
		t.Error("insert should assign a timestamp")
	}
}

func TestStore_GetUnknownIsNil(t *testing.T) {
	s := newTestStore(t)

	e, err := s.Get("00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("get unknown id should not error: %v", err)
	}
	if e != nil {
		t.Errorf("expected nil, got %+v", e)
	}
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)

	id := mustInsert(t, s, &models.Event{
		Action:   "doc.update",
		ActorID:  "bob",
		Severity: models.SeverityWarning,
	})

	deleted, err := s.Delete(id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted == nil || deleted.ID != id {
		t.Fatalf("delete should return the removed event")
	}

	if e, _ := s.Get(id); e != nil {
		t.Error("event should be gone after delete")
	}

	// Index entries must be gone too: the actor scan finds nothing.
	events, err := s.Scan(ScanOptions{Ordering: ByActor, Dims: []string{"bob"}, Reverse: true, Limit: 10})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("actor scan after delete returned %d events", len(events))
	}

	// Deleting again is a no-op.
	again, err := s.Delete(id)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if again != nil {
		t.Error("second delete should return nil")
	}
}

func TestStore_ScanOrderings(t *testing.T) {
	s := newTestStore(t)

	mustInsert(t, s, &models.Event{Action: "a.one", ActorID: "alice", Severity: models.SeverityInfo,
		ResourceType: "doc", ResourceID: "d1", Timestamp: 1000})
	mustInsert(t, s, &models.Event{Action: "a.two", ActorID: "bob", Severity: models.SeverityError,
		ResourceType: "doc", ResourceID: "d1", Timestamp: 2000})
	mustInsert(t, s, &models.Event{Action: "a.one", ActorID: "alice", Severity: models.SeverityInfo,
		Timestamp: 3000})

	tests := []struct {
		name string
		opts ScanOptions
		want int
	}{
		{"time all", ScanOptions{Ordering: ByTime}, 3},
		{"time window", ScanOptions{Ordering: ByTime, From: 1500, To: 2500}, 1},
		{"actor alice", ScanOptions{Ordering: ByActor, Dims: []string{"alice"}}, 2},
		{"actor bob", ScanOptions{Ordering: ByActor, Dims: []string{"bob"}}, 1},
		{"action a.one", ScanOptions{Ordering: ByAction, Dims: []string{"a.one"}}, 2},
		{"resource d1", ScanOptions{Ordering: ByResource, Dims: []string{"doc", "d1"}}, 2},
		{"severity info", ScanOptions{Ordering: BySeverity, Dims: []string{string(models.SeverityInfo)}}, 2},
		{"severity critical", ScanOptions{Ordering: BySeverity, Dims: []string{string(models.SeverityCritical)}}, 0},
		{"limit", ScanOptions{Ordering: ByTime, Limit: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := s.Scan(tt.opts)
			if err != nil {
				t.Fatalf("scan: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("got %d events, want %d", len(events), tt.want)
			}
		})
	}
}

func TestStore_ScanDirection(t *testing.T) {
	s := newTestStore(t)

	for _, ts := range []int64{1000, 2000, 3000} {
		mustInsert(t, s, &models.Event{Action: "x", Severity: models.SeverityInfo, Timestamp: ts})
	}

	asc, err := s.Scan(ScanOptions{Ordering: ByTime})
	if err != nil {
		t.Fatalf("scan asc: %v", err)
	}
	desc, err := s.Scan(ScanOptions{Ordering: ByTime, Reverse: true})
	if err != nil {
		t.Fatalf("scan desc: %v", err)
	}

	if len(asc) != 3 || len(desc) != 3 {
		t.Fatalf("got %d asc, %d desc, want 3 each", len(asc), len(desc))
	}
	for i := range asc {
		if asc[i].Timestamp != desc[len(desc)-1-i].Timestamp {
			t.Errorf("descending scan is not the reverse of ascending")
			break
		}
	}
	if desc[0].Timestamp != 3000 {
		t.Errorf("descending scan should start at newest, got %d", desc[0].Timestamp)
	}
}

func TestStore_MissingDimensionExcluded(t *testing.T) {
	s := newTestStore(t)

	// No actor, and resource type without id: excluded from those orderings.
	mustInsert(t, s, &models.Event{Action: "system.tick", Severity: models.SeverityInfo, ResourceType: "job"})

	events, err := s.Scan(ScanOptions{Ordering: ByActor, Dims: []string{""}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Error("actorless event must not appear in actor ordering")
	}

	events, err = s.Scan(ScanOptions{Ordering: ByResource, Dims: []string{"job", ""}})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 0 {
		t.Error("event without resource id must not appear in resource ordering")
	}

	// Still visible in the time ordering.
	events, err = s.Scan(ScanOptions{Ordering: ByTime})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("time ordering should contain the event, got %d", len(events))
	}
}

func TestStore_ScanAfterID(t *testing.T) {
	s := newTestStore(t)

	var ids []string
	for _, ts := range []int64{1000, 2000, 3000, 4000} {
		ids = append(ids, mustInsert(t, s, &models.Event{Action: "x", Severity: models.SeverityInfo, Timestamp: ts}))
	}

	// Descending resume after the ts=3000 event skips it and everything newer.
	events, err := s.Scan(ScanOptions{Ordering: ByTime, Reverse: true, AfterID: ids[2]})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Timestamp != 2000 || events[1].Timestamp != 1000 {
		t.Errorf("resume returned wrong window: %d, %d", events[0].Timestamp, events[1].Timestamp)
	}

	// Ascending resume after ts=2000.
	events, err = s.Scan(ScanOptions{Ordering: ByTime, AfterID: ids[1]})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 2 || events[0].Timestamp != 3000 {
		t.Errorf("ascending resume wrong: %+v", events)
	}

	// Unknown cursor starts from the beginning.
	events, err = s.Scan(ScanOptions{Ordering: ByTime, Reverse: true, AfterID: "not-a-real-id"})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("unknown cursor should scan from the start, got %d events", len(events))
	}
}

func TestStore_Settings(t *testing.T) {
	s := newTestStore(t)

	cfg, err := s.LoadSettings()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != nil {
		t.Fatal("fresh store should have no settings record")
	}

	want := models.DefaultSettings()
	want.DefaultRetentionDays = 30
	if err := s.SaveSettings(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	cfg, err = s.LoadSettings()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg == nil || cfg.DefaultRetentionDays != 30 {
		t.Errorf("settings round trip failed: %+v", cfg)
	}
}
