// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

// Package store implements the primary log: an append-only, BadgerDB-backed
// store of audit events supporting point lookup, deletion, and ordered range
// scans along five orderings (time, actor+time, action+time, resource+time,
// severity+time). Each write is a single Badger transaction, so a record's
// event body and all of its index entries appear or disappear together.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/robertalv/audit-log/internal/models"
)

// Store is the primary log over a Badger database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the primary log at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an ephemeral store. Used by tests and dev mode.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert assigns the event an id and timestamp and writes the record plus its
// index entries in one transaction. A pre-set Timestamp is honored (used by
// historical imports and tests); the zero value means "now".
func (s *Store) Insert(e *models.Event) (string, error) {
	e.ID = uuid.NewString()
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(e.ID), data); err != nil {
			return fmt.Errorf("set event: %w", err)
		}
		for _, o := range allOrderings {
			key := indexKey(o, e)
			if key == nil {
				continue
			}
			if err := txn.Set(key, nil); err != nil {
				return fmt.Errorf("set index entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

// Get retrieves an event by id. An unknown id resolves to (nil, nil), never
// an error.
func (s *Store) Get(id string) (*models.Event, error) {
	var event *models.Event

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		return item.Value(func(val []byte) error {
			var e models.Event
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("unmarshal event: %w", err)
			}
			event = &e
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes the event and every index entry it was stored under, in one
// transaction. It returns the removed event so callers can unwind dependent
// structures, or nil if the id was unknown.
func (s *Store) Delete(id string) (*models.Event, error) {
	var deleted *models.Event

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(eventKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		var e models.Event
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		}); err != nil {
			return fmt.Errorf("unmarshal event: %w", err)
		}

		if err := txn.Delete(eventKey(id)); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		for _, o := range allOrderings {
			key := indexKey(o, &e)
			if key == nil {
				continue
			}
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete index entry: %w", err)
			}
		}

		deleted = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ScanOptions configures a range scan over one ordering.
type ScanOptions struct {
	// Ordering selects the index to walk.
	Ordering Ordering

	// Dims are the dimension values for the ordering: actor id for ByActor,
	// action for ByAction, resource type and id for ByResource, severity for
	// BySeverity. Empty for ByTime.
	Dims []string

	// From and To bound the timestamp window, both inclusive. To <= 0 means
	// unbounded above.
	From int64
	To   int64

	// Reverse walks the ordering time-descending.
	Reverse bool

	// Limit caps the number of returned events. <= 0 means no cap.
	Limit int

	// AfterID resumes the scan strictly after the given event in scan
	// direction. An unknown id, or an event outside this ordering, is
	// ignored and the scan starts from the beginning.
	AfterID string
}

// Scan walks one ordering within a timestamp window and returns the matching
// events in scan order, never more than Limit. Records with equal timestamps
// appear in a stable but unspecified relative order; callers must not depend
// on insertion order among ties.
func (s *Store) Scan(opts ScanOptions) ([]models.Event, error) {
	prefix := indexPrefix(opts.Ordering, opts.Dims...)

	seek, afterKey, err := s.seekKey(prefix, opts)
	if err != nil {
		return nil, err
	}

	var events []models.Event
	err = s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.PrefetchValues = false
		itOpts.Reverse = opts.Reverse
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ts, id, ok := decodeIndexKey(key, len(prefix))
			if !ok {
				continue
			}

			if opts.Reverse {
				if ts < opts.From {
					break
				}
			} else if opts.To > 0 && ts > opts.To {
				break
			}

			if afterKey != nil && bytes.Equal(key, afterKey) {
				afterKey = nil
				continue
			}

			e, err := getEvent(txn, id)
			if err != nil {
				return err
			}
			if e == nil {
				// Dangling index entry; repaired by backfill, skip here.
				continue
			}

			events = append(events, *e)
			if opts.Limit > 0 && len(events) >= opts.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// seekKey computes the iterator start position and, when resuming from a
// cursor, the exact index key to skip.
func (s *Store) seekKey(prefix []byte, opts ScanOptions) (seek, afterKey []byte, err error) {
	if opts.AfterID != "" {
		after, err := s.Get(opts.AfterID)
		if err != nil {
			return nil, nil, err
		}
		if after != nil {
			key := indexKey(opts.Ordering, after)
			if key != nil && bytes.HasPrefix(key, prefix) {
				return key, key, nil
			}
		}
		// Unknown cursor: fall through and start from the beginning.
	}

	if opts.Reverse {
		to := opts.To
		if to <= 0 {
			to = int64(^uint64(0) >> 1)
		}
		seek = append(append([]byte{}, prefix...), encodeTS(to)...)
		// Place the seek position after every id at the upper timestamp.
		for i := 0; i < idLen; i++ {
			seek = append(seek, 0xff)
		}
		return seek, nil, nil
	}

	seek = append(append([]byte{}, prefix...), encodeTS(opts.From)...)
	return seek, nil, nil
}

func getEvent(txn *badger.Txn, id string) (*models.Event, error) {
	item, err := txn.Get(eventKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	var e models.Event
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	return &e, nil
}

// LoadSettings reads the configuration record, or (nil, nil) if none exists.
func (s *Store) LoadSettings() (*models.Settings, error) {
	var settings *models.Settings

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(settingsKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}
		return item.Value(func(val []byte) error {
			var cfg models.Settings
			if err := json.Unmarshal(val, &cfg); err != nil {
				return fmt.Errorf("unmarshal settings: %w", err)
			}
			settings = &cfg
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings persists the configuration record, replacing any previous one.
func (s *Store) SaveSettings(cfg *models.Settings) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(settingsKey), data)
	})
}
