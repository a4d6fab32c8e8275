// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package audit

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/robertalv/audit-log/internal/aggindex"
	"github.com/robertalv/audit-log/internal/diff"
	"github.com/robertalv/audit-log/internal/logging"
	"github.com/robertalv/audit-log/internal/metrics"
	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/store"
)

// Redactor strips sensitive metadata fields before an event reaches the
// store. The default implementation is a pass-through; deployments plug in
// their own.
type Redactor interface {
	Redact(payload json.RawMessage, fields []string) json.RawMessage
}

// Service is the audit engine. All writes go through it so the primary log
// and the counting aggregates stay consistent.
type Service struct {
	mu     sync.RWMutex
	store  *store.Store
	sevIdx *aggindex.Index
	actIdx *aggindex.Index

	redactor Redactor
	settings *models.Settings

	// now and sample are replaceable seams for deterministic tests.
	now    func() int64
	sample func() float64
}

// Option configures a Service at construction.
type Option func(*Service)

// WithRedactor installs a metadata redactor.
func WithRedactor(r Redactor) Option {
	return func(s *Service) { s.redactor = r }
}

// New builds a Service over an opened store. Settings are loaded eagerly;
// a missing record means defaults apply until the first update.
func New(st *store.Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:  st,
		sevIdx: aggindex.New(),
		actIdx: aggindex.New(),
		now:    func() int64 { return time.Now().UnixMilli() },
		sample: rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := st.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	s.settings = cfg
	return s, nil
}

// LogRequest describes one plain event write.
type LogRequest struct {
	Action            string          `json:"action" validate:"required"`
	ActorID           string          `json:"actor_id,omitempty"`
	ResourceType      string          `json:"resource_type,omitempty"`
	ResourceID        string          `json:"resource_id,omitempty"`
	Severity          models.Severity `json:"severity" validate:"required,severity"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	IPAddress         string          `json:"ip_address,omitempty"`
	UserAgent         string          `json:"user_agent,omitempty"`
	SessionID         string          `json:"session_id,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	RetentionCategory string          `json:"retention_category,omitempty"`

	// Timestamp overrides the store clock when non-zero. Historical imports
	// only; normal writes leave it zero.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Log validates and records one event, returning its assigned id. A sampled
// out event returns an empty id and no error.
func (s *Service) Log(req LogRequest) (string, error) {
	if err := validateBase(req.Action, req.Severity); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sampledOut(req.Severity) {
		metrics.EventsSampledOut.Inc()
		return "", nil
	}

	e := s.eventFromRequest(&req)
	return s.insertLocked(e)
}

// ChangeRequest describes a change-tracking event write. Both resource
// fields are required.
type ChangeRequest struct {
	Action            string          `json:"action" validate:"required"`
	ActorID           string          `json:"actor_id,omitempty"`
	ResourceType      string          `json:"resource_type" validate:"required"`
	ResourceID        string          `json:"resource_id" validate:"required"`
	Severity          models.Severity `json:"severity" validate:"required,severity"`
	Before            json.RawMessage `json:"before,omitempty"`
	After             json.RawMessage `json:"after,omitempty"`
	GenerateDiff      bool            `json:"generate_diff,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	IPAddress         string          `json:"ip_address,omitempty"`
	UserAgent         string          `json:"user_agent,omitempty"`
	SessionID         string          `json:"session_id,omitempty"`
	Tags              []string        `json:"tags,omitempty"`
	RetentionCategory string          `json:"retention_category,omitempty"`
}

// LogChange records a change-tracking event carrying before/after snapshots.
// A diff is generated only when requested and both snapshots are present.
func (s *Service) LogChange(req ChangeRequest) (string, error) {
	if err := validateBase(req.Action, req.Severity); err != nil {
		return "", err
	}
	if req.ResourceType == "" || req.ResourceID == "" {
		return "", rejectErr("resource", "change events require resource_type and resource_id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sampledOut(req.Severity) {
		metrics.EventsSampledOut.Inc()
		return "", nil
	}

	e := s.eventFromRequest(&LogRequest{
		Action:            req.Action,
		ActorID:           req.ActorID,
		ResourceType:      req.ResourceType,
		ResourceID:        req.ResourceID,
		Severity:          req.Severity,
		Metadata:          req.Metadata,
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		SessionID:         req.SessionID,
		Tags:              req.Tags,
		RetentionCategory: req.RetentionCategory,
	})
	e.Before = req.Before
	e.After = req.After
	if req.GenerateDiff && req.Before != nil && req.After != nil {
		e.Diff = diff.Generate(req.Before, req.After)
	}

	return s.insertLocked(e)
}

// LogBulk records many events in request order. Each item is atomic on its
// own; on the first failure the already-written prefix stays in place and
// the returned ids cover exactly that prefix. Sampled out items contribute
// an empty id.
func (s *Service) LogBulk(reqs []LogRequest) ([]string, error) {
	ids := make([]string, 0, len(reqs))
	for i := range reqs {
		id, err := s.Log(reqs[i])
		if err != nil {
			return ids, fmt.Errorf("bulk item %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Get retrieves one event by id, or nil when unknown.
func (s *Service) Get(id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Get(id)
}

// QueryOptions bound a dimension query.
type QueryOptions struct {
	// Limit caps the result. <= 0 means the default page size.
	Limit int
	// From is an inclusive lower timestamp bound; zero means unbounded.
	From int64
}

// QueryByActor returns the actor's events, newest first.
func (s *Service) QueryByActor(actorID string, opts QueryOptions) ([]models.Event, error) {
	return s.queryDim(store.ByActor, []string{actorID}, opts)
}

// QueryByAction returns the action's events, newest first.
func (s *Service) QueryByAction(action string, opts QueryOptions) ([]models.Event, error) {
	return s.queryDim(store.ByAction, []string{action}, opts)
}

// QueryByResource returns the resource's events, newest first.
func (s *Service) QueryByResource(resourceType, resourceID string, opts QueryOptions) ([]models.Event, error) {
	return s.queryDim(store.ByResource, []string{resourceType, resourceID}, opts)
}

// QueryBySeverity returns events of one severity, newest first.
func (s *Service) QueryBySeverity(severity models.Severity, opts QueryOptions) ([]models.Event, error) {
	if !severity.Valid() {
		return nil, validationErr("severity", fmt.Sprintf("unknown value %q", severity))
	}
	return s.queryDim(store.BySeverity, []string{string(severity)}, opts)
}

func (s *Service) queryDim(o store.Ordering, dims []string, opts QueryOptions) ([]models.Event, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.Scan(store.ScanOptions{
		Ordering: o,
		Dims:     dims,
		From:     opts.From,
		Reverse:  true,
		Limit:    limit,
	})
}

// eventFromRequest builds the stored event, applying the redaction policy.
// Caller holds the write lock.
func (s *Service) eventFromRequest(req *LogRequest) *models.Event {
	e := &models.Event{
		Action:            req.Action,
		ActorID:           req.ActorID,
		Timestamp:         req.Timestamp,
		ResourceType:      req.ResourceType,
		ResourceID:        req.ResourceID,
		Severity:          req.Severity,
		Metadata:          req.Metadata,
		IPAddress:         req.IPAddress,
		UserAgent:         req.UserAgent,
		SessionID:         req.SessionID,
		Tags:              req.Tags,
		RetentionCategory: req.RetentionCategory,
	}
	if s.redactor != nil && e.Metadata != nil {
		if fields := s.currentSettings().PIIFieldsToRedact; len(fields) > 0 {
			e.Metadata = s.redactor.Redact(e.Metadata, fields)
		}
	}
	return e
}

// insertLocked writes the event to the primary log and both aggregates.
// Caller holds the write lock.
func (s *Service) insertLocked(e *models.Event) (string, error) {
	id, err := s.store.Insert(e)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	s.sevIdx.Insert(string(e.Severity), e.Timestamp, e.ID)
	s.actIdx.Insert(e.Action, e.Timestamp, e.ID)

	metrics.EventsLogged.WithLabelValues(string(e.Severity)).Inc()
	metrics.AggregateIndexSize.WithLabelValues("severity").Set(float64(s.sevIdx.Size()))
	metrics.AggregateIndexSize.WithLabelValues("action").Set(float64(s.actIdx.Size()))

	logging.Debug().
		Str("event_id", id).
		Str("action", e.Action).
		Str("severity", string(e.Severity)).
		Msg("Event recorded")
	return id, nil
}

// deleteLocked removes the event from the primary log and both aggregates.
// Caller holds the write lock. Returns nil when the id was unknown.
func (s *Service) deleteLocked(id string) (*models.Event, error) {
	e, err := s.store.Delete(id)
	if err != nil {
		return nil, fmt.Errorf("delete event: %w", err)
	}
	if e == nil {
		return nil, nil
	}
	s.sevIdx.Delete(string(e.Severity), e.Timestamp, e.ID)
	s.actIdx.Delete(e.Action, e.Timestamp, e.ID)
	return e, nil
}
