// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/store"
)

// ReportMaxRecords caps any single export.
const ReportMaxRecords = 10000

// Report formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var reportDefaultFields = []string{
	"id", "timestamp", "action", "actor_id",
	"resource_type", "resource_id", "severity",
}

var reportAllowedFields = map[string]bool{
	"id": true, "timestamp": true, "action": true, "actor_id": true,
	"resource_type": true, "resource_id": true, "severity": true,
	"ip_address": true, "user_agent": true, "session_id": true,
	"tags": true, "retention_category": true, "diff": true, "metadata": true,
}

// ReportOptions configures a compliance export.
type ReportOptions struct {
	// From and To bound the window, inclusive. To <= 0 means "now".
	From int64 `json:"from,omitempty"`
	To   int64 `json:"to,omitempty"`

	// Format is "json" or "csv".
	Format string `json:"format" validate:"required,oneof=json csv"`

	// Fields selects and orders the exported columns. Empty means the
	// default projection.
	Fields []string `json:"fields,omitempty"`

	// GroupBy, when set, partitions records by that field's value.
	GroupBy string `json:"group_by,omitempty"`

	// MaxRecords caps the export. <= 0 or above the cap means the cap.
	MaxRecords int `json:"max_records,omitempty"`
}

// Report is a rendered export.
type Report struct {
	Format      string `json:"format"`
	Content     string `json:"content"`
	RecordCount int    `json:"record_count"`
	Truncated   bool   `json:"truncated"`
}

// GenerateReport exports the window's events, newest first, in the chosen
// format. When the window holds more records than the cap, the report
// carries the newest ones and is flagged truncated.
func (s *Service) GenerateReport(opts ReportOptions) (*Report, error) {
	if opts.Format != FormatJSON && opts.Format != FormatCSV {
		return nil, validationErr("format", fmt.Sprintf("must be %q or %q", FormatJSON, FormatCSV))
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = reportDefaultFields
	}
	for _, f := range fields {
		if !reportAllowedFields[f] {
			return nil, validationErr("fields", fmt.Sprintf("unknown field %q", f))
		}
	}
	if opts.GroupBy != "" && !reportAllowedFields[opts.GroupBy] {
		return nil, validationErr("group_by", fmt.Sprintf("unknown field %q", opts.GroupBy))
	}

	max := opts.MaxRecords
	if max <= 0 || max > ReportMaxRecords {
		max = ReportMaxRecords
	}

	to := opts.To
	if to <= 0 {
		to = s.now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// One extra record tells us whether the window overflowed the cap.
	events, err := s.store.Scan(store.ScanOptions{
		Ordering: store.ByTime,
		From:     opts.From,
		To:       to,
		Reverse:  true,
		Limit:    max + 1,
	})
	if err != nil {
		return nil, err
	}

	truncated := len(events) > max
	if truncated {
		events = events[:max]
	}

	var content string
	switch opts.Format {
	case FormatJSON:
		content, err = renderJSON(events, fields, opts.GroupBy)
	case FormatCSV:
		content, err = renderCSV(events, fields, opts.GroupBy)
	}
	if err != nil {
		return nil, err
	}

	return &Report{
		Format:      opts.Format,
		Content:     content,
		RecordCount: len(events),
		Truncated:   truncated,
	}, nil
}

func renderJSON(events []models.Event, fields []string, groupBy string) (string, error) {
	project := func(e *models.Event) map[string]any {
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			row[f] = fieldValue(e, f)
		}
		return row
	}

	var doc any
	if groupBy == "" {
		records := make([]map[string]any, 0, len(events))
		for i := range events {
			records = append(records, project(&events[i]))
		}
		doc = map[string]any{"records": records}
	} else {
		groups := make(map[string][]map[string]any)
		for i := range events {
			key := fieldString(&events[i], groupBy)
			groups[key] = append(groups[key], project(&events[i]))
		}
		doc = map[string]any{"group_by": groupBy, "groups": groups}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func renderCSV(events []models.Event, fields []string, groupBy string) (string, error) {
	columns := fields
	if groupBy != "" && !stringIn(groupBy, fields) {
		columns = append([]string{groupBy}, fields...)
	}

	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(columns))
	for i := range events {
		for j, col := range columns {
			row[j] = fieldString(&events[i], col)
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return buf.String(), nil
}

// fieldValue returns the field in its natural JSON type.
func fieldValue(e *models.Event, field string) any {
	switch field {
	case "id":
		return e.ID
	case "timestamp":
		return e.Timestamp
	case "action":
		return e.Action
	case "actor_id":
		return e.ActorID
	case "resource_type":
		return e.ResourceType
	case "resource_id":
		return e.ResourceID
	case "severity":
		return string(e.Severity)
	case "ip_address":
		return e.IPAddress
	case "user_agent":
		return e.UserAgent
	case "session_id":
		return e.SessionID
	case "tags":
		return e.Tags
	case "retention_category":
		return e.RetentionCategory
	case "diff":
		return e.Diff
	case "metadata":
		if e.Metadata == nil {
			return nil
		}
		return e.Metadata
	}
	return nil
}

// fieldString renders the field as a single CSV cell or group key.
func fieldString(e *models.Event, field string) string {
	switch field {
	case "timestamp":
		return fmt.Sprintf("%d", e.Timestamp)
	case "tags":
		return strings.Join(e.Tags, ";")
	case "metadata":
		return string(e.Metadata)
	}
	if v := fieldValue(e, field); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}
