package bind

import (
	"net/http/httptest"
	"strings"
	"testing"

	perr "challengeutils/internal/platform/errors"
)

type payload struct {
	Project string `json:"project" validate:"required,synid"`
	Status  string `json:"status" validate:"omitempty,oneof=RECEIVED VALIDATED SCORED INVALID"`
}

func TestParseJSONValidPayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"project": "syn123", "status": "SCORED"}`))
	got, err := ParseJSON[payload](r)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.Project != "syn123" || got.Status != "SCORED" {
		t.Fatalf("payload = %+v", got)
	}
}

func TestParseJSONRejectsBadSynID(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"project": "123"}`))
	_, err := ParseJSON[payload](r)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "project") {
		t.Fatalf("message should name the json field: %v", err)
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"project": "syn123", "bogus": 1}`))
	_, err := ParseJSON[payload](r)
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want json error, got %v", err)
	}
}

func TestParseJSONEmptyBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(""))
	_, err := ParseJSON[payload](r)
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want json error, got %v", err)
	}
}

func TestParseJSONTrailingData(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"project": "syn123"} {}`))
	_, err := ParseJSON[payload](r)
	if !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("want json error, got %v", err)
	}
}
