// Audit Log - Compliance-Grade Event Recording and Querying
// Copyright 2026 Robert Alv (robertalv)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/robertalv/audit-log

package validation

import (
	"strings"
	"testing"
)

type sampleRequest struct {
	Action   string `validate:"required"`
	Severity string `validate:"required,severity"`
	Limit    int    `validate:"min=0,max=1000"`
}

func TestValidateStruct_Valid(t *testing.T) {
	req := sampleRequest{Action: "user.login", Severity: "info", Limit: 50}
	if verr := ValidateStruct(&req); verr != nil {
		t.Errorf("expected valid, got %v", verr)
	}
}

func TestValidateStruct_MissingRequired(t *testing.T) {
	req := sampleRequest{Severity: "info"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(verr.Error(), "Action is required") {
		t.Errorf("unexpected message: %s", verr.Error())
	}
}

func TestValidateStruct_SeverityValidator(t *testing.T) {
	req := sampleRequest{Action: "x", Severity: "urgent"}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error for unknown severity")
	}
	if !strings.Contains(verr.Error(), "info, warning, error, critical") {
		t.Errorf("unexpected message: %s", verr.Error())
	}
}

func TestValidateStruct_MultipleFields(t *testing.T) {
	req := sampleRequest{Limit: 5000}
	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Fields()) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(verr.Fields()), verr)
	}
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator must return the same instance")
	}
}
