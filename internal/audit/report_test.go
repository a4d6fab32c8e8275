// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/robertalv/audit-log/internal/models"
)

func seedReportEvents(t *testing.T, s *Service, n int64) {
	t.Helper()
	for i := int64(0); i < n; i++ {
		sev := models.SeverityInfo
		if i%2 == 0 {
			sev = models.SeverityWarning
		}
		mustLog(t, s, LogRequest{
			Action:    "report.seed",
			ActorID:   "auditor",
			Severity:  sev,
			Timestamp: testNow - (i+1)*1000,
		})
	}
}

func TestGenerateReport_JSON(t *testing.T) {
	s := newTestService(t)
	seedReportEvents(t, s, 3)

	rep, err := s.GenerateReport(ReportOptions{Format: FormatJSON})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Format != FormatJSON || rep.RecordCount != 3 || rep.Truncated {
		t.Fatalf("unexpected report shape: %+v", rep)
	}

	var doc struct {
		Records []map[string]any `json:"records"`
	}
	if err := json.Unmarshal([]byte(rep.Content), &doc); err != nil {
		t.Fatalf("report content is not valid JSON: %v", err)
	}
	if len(doc.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(doc.Records))
	}
	for _, f := range []string{"id", "timestamp", "action", "severity"} {
		if _, ok := doc.Records[0][f]; !ok {
			t.Errorf("default projection missing field %q", f)
		}
	}
	if _, ok := doc.Records[0]["metadata"]; ok {
		t.Error("metadata is not part of the default projection")
	}
}

func TestGenerateReport_CSV(t *testing.T) {
	s := newTestService(t)
	seedReportEvents(t, s, 2)

	rep, err := s.GenerateReport(ReportOptions{
		Format: FormatCSV,
		Fields: []string{"id", "action", "severity"},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(rep.Content)).ReadAll()
	if err != nil {
		t.Fatalf("report content is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[0][1] != "action" || rows[0][2] != "severity" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "report.seed" {
		t.Errorf("unexpected action cell: %v", rows[1])
	}
}

func TestGenerateReport_GroupBy(t *testing.T) {
	s := newTestService(t)
	seedReportEvents(t, s, 4)

	rep, err := s.GenerateReport(ReportOptions{Format: FormatJSON, GroupBy: "severity"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	var doc struct {
		GroupBy string                      `json:"group_by"`
		Groups  map[string][]map[string]any `json:"groups"`
	}
	if err := json.Unmarshal([]byte(rep.Content), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.GroupBy != "severity" {
		t.Errorf("group_by = %q", doc.GroupBy)
	}
	if len(doc.Groups["info"]) != 2 || len(doc.Groups["warning"]) != 2 {
		t.Errorf("unexpected grouping: info=%d warning=%d",
			len(doc.Groups["info"]), len(doc.Groups["warning"]))
	}
}

func TestGenerateReport_Truncation(t *testing.T) {
	s := newTestService(t)
	seedReportEvents(t, s, 8)

	rep, err := s.GenerateReport(ReportOptions{Format: FormatJSON, MaxRecords: 5})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.RecordCount != 5 {
		t.Errorf("record count = %d, want 5", rep.RecordCount)
	}
	if !rep.Truncated {
		t.Error("report over the cap must be flagged truncated")
	}

	full, err := s.GenerateReport(ReportOptions{Format: FormatJSON, MaxRecords: 8})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if full.Truncated {
		t.Error("report exactly at the cap is not truncated")
	}
}

func TestGenerateReport_Validation(t *testing.T) {
	s := newTestService(t)

	if _, err := s.GenerateReport(ReportOptions{Format: "xml"}); !IsValidation(err) {
		t.Errorf("unknown format should be rejected, got %v", err)
	}
	if _, err := s.GenerateReport(ReportOptions{Format: FormatJSON, Fields: []string{"password"}}); !IsValidation(err) {
		t.Errorf("unknown field should be rejected, got %v", err)
	}
	if _, err := s.GenerateReport(ReportOptions{Format: FormatJSON, GroupBy: "nope"}); !IsValidation(err) {
		t.Errorf("unknown group_by should be rejected, got %v", err)
	}
}

func TestGenerateReport_Window(t *testing.T) {
	s := newTestService(t)

	mustLog(t, s, LogRequest{Action: "in", Severity: models.SeverityInfo, Timestamp: 2000})
	mustLog(t, s, LogRequest{Action: "out", Severity: models.SeverityInfo, Timestamp: 5000})

	rep, err := s.GenerateReport(ReportOptions{Format: FormatJSON, From: 1000, To: 3000})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.RecordCount != 1 {
		t.Errorf("windowed report has %d records, want 1", rep.RecordCount)
	}
	if !strings.Contains(rep.Content, `"in"`) || strings.Contains(rep.Content, `"out"`) {
		t.Errorf("wrong events exported: %s", rep.Content)
	}
}
