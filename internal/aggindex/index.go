// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package aggindex implements the counting aggregate used to answer
// "how many events of dimension X occurred in [a, b]" without scanning the
// primary log. One Index covers one dimension (severity or action); each
// namespace value within the dimension gets its own size-augmented treap
// keyed by event timestamp, giving O(log n) insert, delete, and range count.
//
// The index is an in-memory structure. The primary log remains authoritative;
// after a crash the index is reconciled via backfill rather than persisted
// independently.
package aggindex

import "sync"

// Bounds describes a key (timestamp) range for Count. Each bound is
// independently inclusive or exclusive; the upper bound is optional and
// HasUpper=false means unbounded above.
type Bounds struct {
	Lower          int64
	LowerExclusive bool
	Upper          int64
	HasUpper       bool
	UpperExclusive bool
}

// Since returns bounds covering [lower, +inf).
func Since(lower int64) Bounds {
	return Bounds{Lower: lower}
}

// Between returns bounds covering [lower, upper], both inclusive.
func Between(lower, upper int64) Bounds {
	return Bounds{Lower: lower, Upper: upper, HasUpper: true}
}

// Index is a thread-safe counting aggregate over one dimension.
type Index struct {
	mu         sync.RWMutex
	namespaces map[string]*node
}

// New creates an empty Index.
func New() *Index {
	return &Index{namespaces: make(map[string]*node)}
}

// Insert adds an entry for (namespace, key, ref). Duplicate timestamps are
// retained as distinct entries and both are counted.
func (ix *Index) Insert(namespace string, key int64, ref string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.namespaces[namespace] = insert(ix.namespaces[namespace], key, ref)
}

// InsertIfAbsent adds an entry unless an identical one already exists.
// It reports whether an entry was inserted. Used by backfill to reconcile
// the index with the primary log without double-counting.
func (ix *Index) InsertIfAbsent(namespace string, key int64, ref string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	root := ix.namespaces[namespace]
	if contains(root, key, ref) {
		return false
	}
	ix.namespaces[namespace] = insert(root, key, ref)
	return true
}

// Delete removes the entry for (namespace, key, ref). Deleting an entry that
// is not present is a no-op, not an error, so retries and backfill repair
// stay safe. It reports whether an entry was removed.
func (ix *Index) Delete(namespace string, key int64, ref string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	root, ok := remove(ix.namespaces[namespace], key, ref)
	if root == nil {
		delete(ix.namespaces, namespace)
	} else {
		ix.namespaces[namespace] = root
	}
	return ok
}

// Count returns the exact number of entries in the namespace whose key falls
// within the bounds. O(log n) in the namespace's entry count.
func (ix *Index) Count(namespace string, b Bounds) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	root := ix.namespaces[namespace]
	if root == nil {
		return 0
	}

	upper := root.count()
	if b.HasUpper {
		if b.UpperExclusive {
			upper = countBelow(root, b.Upper)
		} else {
			upper = countAtOrBelow(root, b.Upper)
		}
	}

	var lower int
	if b.LowerExclusive {
		lower = countAtOrBelow(root, b.Lower)
	} else {
		lower = countBelow(root, b.Lower)
	}

	if upper <= lower {
		return 0
	}
	return upper - lower
}

// Len returns the total number of entries in the namespace.
func (ix *Index) Len(namespace string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.namespaces[namespace].count()
}

// Size returns the total number of entries across all namespaces.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	total := 0
	for _, root := range ix.namespaces {
		total += root.count()
	}
	return total
}
