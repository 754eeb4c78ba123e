package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creatorflow/creatorflow/internal/models"
)

func TestAuth_RegisterLoginLogout(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)

	rec := httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/auth/register", 0, 0, map[string]string{
		"email":    "Maya@Example.com",
		"password": "hunter22",
		"name":     "Maya",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register status = %d, want 201", rec.Code)
	}
	var user models.User
	decodeBody(t, rec, &user)
	if user.Email != "maya@example.com" {
		t.Errorf("email = %q, want normalized maya@example.com", user.Email)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("Register did not set a session cookie")
	}
	if strings.Contains(rec.Body.String(), "hunter22") {
		t.Error("response leaked the password")
	}

	// Duplicate email is rejected.
	rec = httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/auth/register", 0, 0, map[string]string{
		"email":    "maya@example.com",
		"password": "other",
	}))
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate Register status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "email_taken" {
		t.Errorf("error = %q, want email_taken", code)
	}

	// Wrong password.
	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/auth/login", 0, 0, map[string]string{
		"email":    "maya@example.com",
		"password": "wrong",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad Login status = %d, want 401", rec.Code)
	}

	// Correct password.
	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/auth/login", 0, 0, map[string]string{
		"email":    "maya@example.com",
		"password": "hunter22",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("Login status = %d, want 200", rec.Code)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("Login did not set a session cookie")
	}

	rec = httptest.NewRecorder()
	h.Logout(rec, newRequest(t, http.MethodPost, "/auth/logout", 0, 0, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Logout status = %d, want 200", rec.Code)
	}
}

func TestAuth_RegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db)

	rec := httptest.NewRecorder()
	h.Register(rec, newRequest(t, http.MethodPost, "/auth/register", 0, 0, map[string]string{
		"email": "no-password@example.com",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Register status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec); code != "validation_failed" {
		t.Errorf("error = %q, want validation_failed", code)
	}

	// Unknown user on login gets the same credentials error as a bad password.
	rec = httptest.NewRecorder()
	h.Login(rec, newRequest(t, http.MethodPost, "/auth/login", 0, 0, map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Login status = %d, want 401", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_credentials" {
		t.Errorf("error = %q, want invalid_credentials", code)
	}
}
