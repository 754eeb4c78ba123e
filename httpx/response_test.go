package httpx

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"name": "Acme"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["name"] != "Acme" {
		t.Errorf("body = %v", body)
	}
}

func TestJSON_NilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, nil)
	if rec.Body.String() != "null" {
		t.Errorf("body = %q, want null", rec.Body.String())
	}
}

func TestJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, math.NaN())
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusBadRequest, "validation_failed", map[string]string{"name": "required"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if resp.Error != "validation_failed" {
		t.Errorf("error = %q, want validation_failed", resp.Error)
	}
	details, ok := resp.Details.(map[string]any)
	if !ok || details["name"] != "required" {
		t.Errorf("details = %v", resp.Details)
	}
}

func TestJSONError_NoDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusNotFound, "not_found", nil)
	if rec.Body.String() != `{"error":"not_found"}` {
		t.Errorf("body = %q, want details omitted", rec.Body.String())
	}
}
