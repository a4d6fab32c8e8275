// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package aggindex

import "math/rand/v2"

// node is a treap node augmented with subtree size, which is what makes
// logarithmic range counting possible. Entries are ordered by (key, ref) so
// duplicate keys (equal timestamps) are retained as distinct entries.
type node struct {
	key   int64
	ref   string
	prio  uint64
	size  int
	left  *node
	right *node
}

func (n *node) count() int {
	if n == nil {
		return 0
	}
	return n.size
}

func (n *node) update() {
	n.size = 1 + n.left.count() + n.right.count()
}

// entryLess orders entries by key, breaking ties by ref.
func entryLess(aKey int64, aRef string, bKey int64, bRef string) bool {
	if aKey != bKey {
		return aKey < bKey
	}
	return aRef < bRef
}

// split partitions the tree into entries < (key, ref) and entries >= (key, ref).
func split(n *node, key int64, ref string) (*node, *node) {
	if n == nil {
		return nil, nil
	}
	if entryLess(n.key, n.ref, key, ref) {
		l, r := split(n.right, key, ref)
		n.right = l
		n.update()
		return n, r
	}
	l, r := split(n.left, key, ref)
	n.left = r
	n.update()
	return l, n
}

// merge joins two trees where every entry of l precedes every entry of r.
func merge(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if l.prio >= r.prio {
		l.right = merge(l.right, r)
		l.update()
		return l
	}
	r.left = merge(l, r.left)
	r.update()
	return r
}

func insert(root *node, key int64, ref string) *node {
	l, r := split(root, key, ref)
	n := &node{key: key, ref: ref, prio: rand.Uint64(), size: 1}
	return merge(merge(l, n), r)
}

// remove deletes the entry (key, ref) if present. It reports whether an
// entry was actually removed, so callers can treat deletion as idempotent.
func remove(root *node, key int64, ref string) (*node, bool) {
	if root == nil {
		return nil, false
	}
	if root.key == key && root.ref == ref {
		return merge(root.left, root.right), true
	}
	if entryLess(key, ref, root.key, root.ref) {
		l, ok := remove(root.left, key, ref)
		root.left = l
		root.update()
		return root, ok
	}
	r, ok := remove(root.right, key, ref)
	root.right = r
	root.update()
	return root, ok
}

func contains(n *node, key int64, ref string) bool {
	for n != nil {
		if n.key == key && n.ref == ref {
			return true
		}
		if entryLess(key, ref, n.key, n.ref) {
			n = n.left
		} else {
			n = n.right
		}
	}
	return false
}

// countBelow returns the number of entries with key strictly less than k.
// Single root-to-leaf walk, O(log n) expected.
func countBelow(n *node, k int64) int {
	total := 0
	for n != nil {
		if n.key < k {
			total += n.left.count() + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return total
}

// countAtOrBelow returns the number of entries with key <= k.
func countAtOrBelow(n *node, k int64) int {
	total := 0
	for n != nil {
		if n.key <= k {
			total += n.left.count() + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return total
}
