// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package diff produces human-readable structural diffs between two arbitrary
// values for change-tracking audit events. It is pure and holds no state.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// Generate compares before and after and returns a textual diff.
//
// When both values are structured (JSON objects or string-keyed maps), the
// output is one line per difference: removed keys, added keys, and changed
// values. Line order is deterministic (sorted keys) but callers should treat
// it as a presentation detail, not a contract. Identical values produce an
// empty string.
//
// When either value is not structured, the whole change is summarized as
// "Changed from X to Y" using each value's canonical JSON form.
func Generate(before, after any) string {
	bm, bok := structured(before)
	am, aok := structured(after)
	if !bok || !aok {
		return fmt.Sprintf("Changed from %s to %s", canonical(before), canonical(after))
	}

	var lines []string
	for _, k := range sortedKeys(bm) {
		av, ok := am[k]
		if !ok {
			lines = append(lines, fmt.Sprintf("Removed %s: %s", k, canonical(bm[k])))
			continue
		}
		if oldText, newText := canonical(bm[k]), canonical(av); oldText != newText {
			lines = append(lines, fmt.Sprintf("Changed %s: %s -> %s", k, oldText, newText))
		}
	}
	for _, k := range sortedKeys(am) {
		if _, ok := bm[k]; !ok {
			lines = append(lines, fmt.Sprintf("Added %s: %s", k, canonical(am[k])))
		}
	}

	return strings.Join(lines, "\n")
}

// structured attempts to view v as a string-keyed map. Raw JSON is accepted
// when it encodes an object.
func structured(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return m, true
	case json.RawMessage:
		return structuredJSON(m)
	case []byte:
		return structuredJSON(m)
	}
	return nil, false
}

func structuredJSON(raw []byte) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// canonical renders a value in its canonical textual (JSON) form.
func canonical(v any) string {
	switch raw := v.(type) {
	case nil:
		return "null"
	case json.RawMessage:
		return compact(raw)
	case []byte:
		return compact(raw)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func compact(raw []byte) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(data)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
