// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package store

import (
	"encoding/binary"

	"github.com/robertalv/audit-log/internal/models"
)

// Ordering selects one of the five secondary orderings of the primary log.
type Ordering int

const (
	// ByTime orders all events by timestamp.
	ByTime Ordering = iota
	// ByActor orders events by (actor_id, timestamp). Events without an
	// actor are excluded.
	ByActor
	// ByAction orders events by (action, timestamp).
	ByAction
	// ByResource orders events by (resource_type, resource_id, timestamp).
	// Events missing either field are excluded.
	ByResource
	// BySeverity orders events by (severity, timestamp).
	BySeverity
)

// Key layout. Every index key ends with the 8-byte big-endian timestamp
// followed by the fixed-width event id, so lexicographic key order is
// (dimension..., timestamp) order and the id is recoverable from the key
// without a value read. Dimension values are joined with a NUL byte;
// values must not contain NUL.
const (
	eventKeyPrefix = "evt:"
	settingsKey    = "cfg:settings"

	timePrefix     = "ix:t:"
	actorPrefix    = "ix:u:"
	actionPrefix   = "ix:a:"
	resourcePrefix = "ix:r:"
	severityPrefix = "ix:s:"

	dimSep = byte(0)

	// idLen is the length of a canonical UUID string.
	idLen = 36
	tsLen = 8
)

func eventKey(id string) []byte {
	return append([]byte(eventKeyPrefix), id...)
}

// indexPrefix builds the key prefix for an ordering and its dimension values.
// The prefix covers everything before the timestamp.
func indexPrefix(o Ordering, dims ...string) []byte {
	var head string
	switch o {
	case ByTime:
		head = timePrefix
	case ByActor:
		head = actorPrefix
	case ByAction:
		head = actionPrefix
	case ByResource:
		head = resourcePrefix
	case BySeverity:
		head = severityPrefix
	}

	key := []byte(head)
	for _, d := range dims {
		key = append(key, d...)
		key = append(key, dimSep)
	}
	return key
}

// indexKey builds the full index key for an event under an ordering, or nil
// when the event lacks the ordering's dimension.
func indexKey(o Ordering, e *models.Event) []byte {
	var prefix []byte
	switch o {
	case ByTime:
		prefix = indexPrefix(ByTime)
	case ByActor:
		if e.ActorID == "" {
			return nil
		}
		prefix = indexPrefix(ByActor, e.ActorID)
	case ByAction:
		prefix = indexPrefix(ByAction, e.Action)
	case ByResource:
		if !e.HasResource() {
			return nil
		}
		prefix = indexPrefix(ByResource, e.ResourceType, e.ResourceID)
	case BySeverity:
		prefix = indexPrefix(BySeverity, string(e.Severity))
	}

	key := append(prefix, encodeTS(e.Timestamp)...)
	return append(key, e.ID...)
}

func encodeTS(ts int64) []byte {
	var buf [tsLen]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ts))
	return buf[:]
}

// decodeIndexKey extracts the timestamp and event id from an index key with
// the given prefix length.
func decodeIndexKey(key []byte, prefixLen int) (int64, string, bool) {
	if len(key) < prefixLen+tsLen+idLen {
		return 0, "", false
	}
	ts := int64(binary.BigEndian.Uint64(key[prefixLen : prefixLen+tsLen]))
	id := string(key[len(key)-idLen:])
	return ts, id, true
}

// allOrderings lists the five orderings for insert/delete fan-out.
var allOrderings = []Ordering{ByTime, ByActor, ByAction, ByResource, BySeverity}
