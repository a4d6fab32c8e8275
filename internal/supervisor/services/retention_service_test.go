// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robertalv/audit-log/internal/audit"
	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/store"
)

func newRetentionFixture(t *testing.T) *audit.Service {
	t.Helper()
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc, err := audit.New(st)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func logAgedEvent(t *testing.T, svc *audit.Service, action string, sev models.Severity, category string, ageDays int64) string {
	t.Helper()
	id, err := svc.Log(audit.LogRequest{
		Action:            action,
		Severity:          sev,
		RetentionCategory: category,
		Timestamp:         time.Now().UnixMilli() - ageDays*24*60*60*1000,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	return id
}

func TestRetentionService_SweepAppliesPolicy(t *testing.T) {
	svc := newRetentionFixture(t)

	// Custom policy: "debug" events live 7 days.
	if _, err := svc.UpdateSettings(models.SettingsPatch{
		CustomRetention: map[string]int{"debug": 7},
	}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	oldInfo := logAgedEvent(t, svc, "a.old", models.SeverityInfo, "", 120)
	oldCritical := logAgedEvent(t, svc, "a.crit", models.SeverityCritical, "", 120)
	ancientCritical := logAgedEvent(t, svc, "a.ancient", models.SeverityCritical, "", 400)
	oldDebug := logAgedEvent(t, svc, "a.debug", models.SeverityInfo, "debug", 10)
	fresh := logAgedEvent(t, svc, "a.fresh", models.SeverityInfo, "", 1)

	rs := NewRetentionService(svc, time.Hour, 50)
	if err := rs.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	checks := []struct {
		id   string
		want bool
		desc string
	}{
		{oldInfo, false, "info past default retention is deleted"},
		{oldCritical, true, "critical within critical retention survives the default pass"},
		{ancientCritical, false, "critical past critical retention is deleted"},
		{oldDebug, false, "custom category past its retention is deleted"},
		{fresh, true, "fresh event survives"},
	}
	for _, c := range checks {
		e, err := svc.Get(c.id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if (e != nil) != c.want {
			t.Errorf("%s: present=%v", c.desc, e != nil)
		}
	}
}

func TestRetentionService_DrainsBacklog(t *testing.T) {
	svc := newRetentionFixture(t)

	for i := 0; i < 12; i++ {
		logAgedEvent(t, svc, "a.old", models.SeverityInfo, "", 100)
	}

	// Batch size 5 forces multiple cleanup passes within one sweep.
	rs := NewRetentionService(svc, time.Hour, 5)
	if err := rs.sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	res, err := svc.Search(audit.SearchFilter{}, audit.PageRequest{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("backlog not drained, %d events remain", len(res.Items))
	}
}

func TestRetentionService_StopsOnCancel(t *testing.T) {
	svc := newRetentionFixture(t)
	rs := NewRetentionService(svc, 5*time.Millisecond, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rs.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestRetentionService_String(t *testing.T) {
	if got := NewRetentionService(nil, 0, 0).String(); got != "retention-sweeper" {
		t.Errorf("String() = %q", got)
	}
}
