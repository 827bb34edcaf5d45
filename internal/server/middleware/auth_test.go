package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	sessionservice "session-control-plane/internal/session/service"
)

// mockAuthenticator implements Authenticator for tests.
type mockAuthenticator struct {
	identity *sessionservice.Identity
	err      error
	gotToken string
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, accessToken string) (*sessionservice.Identity, error) {
	m.gotToken = accessToken
	if m.err != nil {
		return nil, m.err
	}
	return m.identity, nil
}

func doRequest(t *testing.T, auth Authenticator, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/v1/me", func(c echo.Context) error {
		id := Identity(c)
		if id == nil {
			t.Fatal("Identity not set after RequireAuth")
		}
		return c.JSON(http.StatusOK, map[string]string{"subjectId": id.SubjectID})
	}, RequireAuth(auth))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_Success(t *testing.T) {
	auth := &mockAuthenticator{identity: &sessionservice.Identity{SubjectID: "u1", SessionID: "s1", CorrelationID: "c1"}}
	rec := doRequest(t, auth, "Bearer some-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if auth.gotToken != "some-token" {
		t.Errorf("token passed to authenticator = %q", auth.gotToken)
	}
	if !strings.Contains(rec.Body.String(), "u1") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	rec := doRequest(t, &mockAuthenticator{}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no_credential") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireAuth_NotBearer(t *testing.T) {
	rec := doRequest(t, &mockAuthenticator{}, "Basic dXNlcjpwYXNz")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_ExpiredCredential(t *testing.T) {
	rec := doRequest(t, &mockAuthenticator{err: sessionservice.ErrExpiredCredential}, "Bearer stale")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "expired_credential") {
		t.Errorf("expired credential must be distinguishable, body = %s", rec.Body.String())
	}
}

func TestRequireAuth_SessionInvalid(t *testing.T) {
	rec := doRequest(t, &mockAuthenticator{err: sessionservice.ErrSessionInvalid}, "Bearer revoked")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	// Revoked and malformed collapse into the same generic body.
	if !strings.Contains(rec.Body.String(), "unauthorized") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequireAuth_StoreUnavailable(t *testing.T) {
	rec := doRequest(t, &mockAuthenticator{err: sessionservice.ErrStoreUnavailable}, "Bearer token")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"Bearer", ""},
		{"Token abc", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
