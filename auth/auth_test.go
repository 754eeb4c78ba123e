package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateSession(rec, 42)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies set = %d, want 1", len(cookies))
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie is not HttpOnly")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	uid, ok := ParseSession(r)
	if !ok || uid != 42 {
		t.Errorf("ParseSession() = %d, %v, want 42, true", uid, ok)
	}
}

func TestParseSession_Tampered(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateSession(rec, 42)
	cookie := rec.Result().Cookies()[0]

	// Swap the user id while keeping the signature.
	parts := strings.SplitN(cookie.Value, ".", 2)
	cookie.Value = "43." + parts[1]

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	if _, ok := ParseSession(r); ok {
		t.Error("tampered session accepted")
	}
}

func TestParseSession_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ParseSession(r); ok {
		t.Error("missing cookie accepted")
	}
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithUserID(r.Context(), 7))
	rec = httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Errorf("authenticated status = %d, want 204", rec.Code)
	}
}

func TestRequireAuth_VerifierRejects(t *testing.T) {
	SetUserVerifier(func(_ context.Context, _ uint) bool { return false })
	t.Cleanup(func() { SetUserVerifier(nil) })

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithUserID(r.Context(), 7))
	rec := httptest.NewRecorder()
	RequireAuth(next).ServeHTTP(rec, r)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 when the verifier rejects", rec.Code)
	}
}
