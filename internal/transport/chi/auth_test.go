package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authRequest(t *testing.T, mw func(http.Handler) http.Handler, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestBearerAuth_ValidKey(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"secret-key"})
	rec := authRequest(t, mw, "/v1/conversations", "Bearer secret-key")
	if rec.Code != http.StatusOK {
		t.Errorf("valid key rejected: %d", rec.Code)
	}
}

func TestBearerAuth_SecondConfiguredKey(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"key-a", "key-b"})
	rec := authRequest(t, mw, "/v1/conversations", "Bearer key-b")
	if rec.Code != http.StatusOK {
		t.Errorf("second key rejected: %d", rec.Code)
	}
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"secret-key"})
	rec := authRequest(t, mw, "/v1/conversations", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != CodeUnauthorized {
		t.Errorf("code = %q", body.Code)
	}
}

func TestBearerAuth_WrongScheme(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"secret-key"})
	rec := authRequest(t, mw, "/v1/conversations", "Basic c2VjcmV0")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuth_InvalidKey(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"secret-key"})
	rec := authRequest(t, mw, "/v1/conversations", "Bearer wrong-key")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestBearerAuth_ExemptPaths(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"secret-key"})
	for _, path := range []string{"/health", "/metrics"} {
		rec := authRequest(t, mw, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s should bypass auth, got %d", path, rec.Code)
		}
	}
}

func TestBearerAuth_Disabled(t *testing.T) {
	mw := BearerAuthMiddleware(nil)
	rec := authRequest(t, mw, "/v1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Errorf("disabled auth should pass through, got %d", rec.Code)
	}
}

func TestBearerAuth_EmptyKeysIgnored(t *testing.T) {
	mw := BearerAuthMiddleware([]string{"", ""})
	rec := authRequest(t, mw, "/v1/conversations", "")
	if rec.Code != http.StatusOK {
		t.Errorf("blank keys mean auth disabled, got %d", rec.Code)
	}
}

func TestKeyMatches_LengthMismatch(t *testing.T) {
	if keyMatches([]string{"short"}, "a-much-longer-token") {
		t.Error("length mismatch must not match")
	}
}
