// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robertalv/audit-log/internal/audit"
	"github.com/robertalv/audit-log/internal/models"
	"github.com/robertalv/audit-log/internal/validation"
)

// handleLogEvent handles POST /api/v1/events.
func (rt *Router) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var req audit.LogRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondInvalid(w, verr)
		return
	}

	id, err := rt.svc.Log(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// A sampled out event is accepted but never stored; the empty id tells
	// the caller which happened.
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleLogChange handles POST /api/v1/events/change.
func (rt *Router) handleLogChange(w http.ResponseWriter, r *http.Request) {
	var req audit.ChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondInvalid(w, verr)
		return
	}

	id, err := rt.svc.LogChange(req)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type bulkResponse struct {
	IDs []string `json:"ids"`
	// Failed carries the index and reason of the first rejected item, when
	// the batch stopped early.
	Failed *bulkFailure `json:"failed,omitempty"`
}

type bulkFailure struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// handleLogBulk handles POST /api/v1/events/bulk. Items are written in
// order; the first invalid item stops the batch and the response names it,
// with the already-written prefix preserved.
func (rt *Router) handleLogBulk(w http.ResponseWriter, r *http.Request) {
	var reqs []audit.LogRequest
	if err := decodeJSON(r, &reqs); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "bulk request must contain at least one event")
		return
	}

	ids, err := rt.svc.LogBulk(reqs)
	if err != nil {
		if audit.IsValidation(err) {
			writeJSON(w, http.StatusMultiStatus, bulkResponse{
				IDs:    ids,
				Failed: &bulkFailure{Index: len(ids), Message: err.Error()},
			})
			return
		}
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bulkResponse{IDs: ids})
}

// handleGetEvent handles GET /api/v1/events/{id}.
func (rt *Router) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	e, err := rt.svc.Get(id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if e == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no event with that id")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (rt *Router) queryOptions(r *http.Request) audit.QueryOptions {
	return audit.QueryOptions{
		Limit: queryInt(r, "limit", rt.cfg.DefaultPageSize),
		From:  queryInt64(r, "from", 0),
	}
}

func (rt *Router) handleQueryByActor(w http.ResponseWriter, r *http.Request) {
	events, err := rt.svc.QueryByActor(chi.URLParam(r, "actorID"), rt.queryOptions(r))
	rt.respondEvents(w, events, err)
}

func (rt *Router) handleQueryByAction(w http.ResponseWriter, r *http.Request) {
	events, err := rt.svc.QueryByAction(chi.URLParam(r, "action"), rt.queryOptions(r))
	rt.respondEvents(w, events, err)
}

func (rt *Router) handleQueryByResource(w http.ResponseWriter, r *http.Request) {
	events, err := rt.svc.QueryByResource(
		chi.URLParam(r, "resourceType"), chi.URLParam(r, "resourceID"), rt.queryOptions(r))
	rt.respondEvents(w, events, err)
}

func (rt *Router) handleQueryBySeverity(w http.ResponseWriter, r *http.Request) {
	sev := models.Severity(chi.URLParam(r, "severity"))
	events, err := rt.svc.QueryBySeverity(sev, rt.queryOptions(r))
	rt.respondEvents(w, events, err)
}

func (rt *Router) respondEvents(w http.ResponseWriter, events []models.Event, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": events})
}

type searchBody struct {
	Filter audit.SearchFilter `json:"filter"`
	Page   audit.PageRequest  `json:"page"`
}

// handleSearch handles POST /api/v1/events/search.
func (rt *Router) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body searchBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	if body.Page.Limit <= 0 {
		body.Page.Limit = rt.cfg.DefaultPageSize
	}
	if body.Page.Limit > rt.cfg.MaxPageSize {
		body.Page.Limit = rt.cfg.MaxPageSize
	}

	res, err := rt.svc.Search(body.Filter, body.Page)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type detectBody struct {
	Patterns []audit.AnomalyPattern `json:"patterns"`
}

// handleDetectAnomalies handles POST /api/v1/anomalies/detect.
func (rt *Router) handleDetectAnomalies(w http.ResponseWriter, r *http.Request) {
	var body detectBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(body.Patterns) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "at least one pattern is required")
		return
	}

	anomalies, err := rt.svc.DetectAnomalies(body.Patterns)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"anomalies": anomalies})
}

// handleStats handles GET /api/v1/stats.
func (rt *Router) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.svc.GetStats(queryInt64(r, "from", 0), queryInt64(r, "to", 0))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleReport handles POST /api/v1/reports.
func (rt *Router) handleReport(w http.ResponseWriter, r *http.Request) {
	var opts audit.ReportOptions
	if err := decodeJSON(r, &opts); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	rep, err := rt.svc.GenerateReport(opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleCleanup handles POST /api/v1/retention/cleanup.
func (rt *Router) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var opts audit.CleanupOptions
	if err := decodeJSON(r, &opts); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	deleted, err := rt.svc.Cleanup(opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

// handleBackfill handles POST /api/v1/backfill.
func (rt *Router) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var opts audit.BackfillOptions
	if err := decodeJSON(r, &opts); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	res, err := rt.svc.Backfill(opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetSettings handles GET /api/v1/config.
func (rt *Router) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.svc.Settings())
}

// handleUpdateSettings handles PATCH /api/v1/config.
func (rt *Router) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	updated, err := rt.svc.UpdateSettings(patch)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
