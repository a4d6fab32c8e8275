// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package audit is the engine behind the audit log: it validates and records
// events, keeps the counting aggregates synchronized with the primary log,
// and answers queries, searches, statistics, anomaly, retention, backfill,
// and report requests.
//
// The engine holds a single RWMutex across each write so the store
// transaction and the in-memory aggregate mutations behave as one logical
// operation. The primary log is authoritative; if a crash leaves the
// aggregates behind, Backfill restores them from the log.
package audit
