package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuth("test-secret")
	good, err := auth.GenerateToken("u-1", "Ravi", "supervisor", []string{"crusher:*"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	stale := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           "u-1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	expired, _ := stale.SignedString([]byte("test-secret"))
	foreign, _ := NewAuth("other-secret").GenerateToken("u-1", "Ravi", "supervisor", nil, time.Hour)
	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "u-1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer " + good, http.StatusNoContent},
		{"lowercase scheme", "bearer " + good, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + good, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"other secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized},
	}
	h := auth.Middleware(http.HandlerFunc(okHandler))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/materials", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized && decodeBody(t, rec)["error"] == "" {
				t.Error("401 without an error message")
			}
		})
	}
}

func TestAuthClaimsReachHandler(t *testing.T) {
	auth := NewAuth("test-secret")
	token, _ := auth.GenerateToken("u-7", "Asha", "operator", []string{"crusher:write"}, time.Hour)

	var got *Claims
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaims(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/crusher/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.UserID != "u-7" || got.Role != "operator" {
		t.Fatalf("claims = %+v", got)
	}
	if GetUserID(req) != "" {
		t.Error("original request should not carry claims")
	}
}

func TestRequirePermission(t *testing.T) {
	auth := NewAuth("test-secret")
	tests := []struct {
		name   string
		perms  []string
		status int
	}{
		{"exact", []string{"crusher:write"}, http.StatusNoContent},
		{"wildcard", []string{"crusher:*"}, http.StatusNoContent},
		{"superuser", []string{"*:*"}, http.StatusNoContent},
		{"other permission", []string{"report:read"}, http.StatusForbidden},
		{"none", nil, http.StatusForbidden},
	}
	h := auth.Middleware(auth.RequirePermission("crusher:write")(http.HandlerFunc(okHandler)))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := auth.GenerateToken("u-1", "Ravi", "operator", tt.perms, time.Hour)
			req := httptest.NewRequest(http.MethodPost, "/api/crusher/dispatches", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}

	t.Run("no claims", func(t *testing.T) {
		rec := httptest.NewRecorder()
		auth.RequirePermission("crusher:write")(http.HandlerFunc(okHandler)).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	auth := NewAuth("")
	if auth.Enabled() {
		t.Fatal("empty secret should disable auth")
	}
	h := auth.Middleware(auth.RequirePermission("crusher:write")(http.HandlerFunc(okHandler)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/crusher/runs", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestRecoverer(t *testing.T) {
	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	logger.SetFormatter(&logrus.JSONFormatter{})

	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/crusher/runs", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decodeBody(t, rec)["message"]; got != "internal server error" {
		t.Errorf("message = %q", got)
	}
	if !bytes.Contains(logs.Bytes(), []byte("panic: boom")) {
		t.Errorf("panic not logged: %s", logs.String())
	}
}

func TestRequestLoggerRecordsStatusAndUser(t *testing.T) {
	var logs bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&logs)
	logger.SetFormatter(&logrus.JSONFormatter{})

	auth := NewAuth("test-secret")
	token, _ := auth.GenerateToken("u-9", "Kiran", "operator", nil, time.Hour)
	h := RequestLogger(logger)(auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/crusher/dispatches", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("decode log %q: %v", logs.String(), err)
	}
	if entry["status"] != float64(http.StatusConflict) {
		t.Errorf("status = %v, want 409", entry["status"])
	}
	if entry["userId"] != "u-9" {
		t.Errorf("userId = %v, want u-9", entry["userId"])
	}
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want warning", entry["level"])
	}
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/crusher/dispatches/x", nil))
	if rec.Code != http.StatusOK || called {
		t.Fatalf("preflight status = %d, handler called = %v", rec.Code, called)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !bytes.Contains([]byte(got), []byte("PATCH")) {
		t.Errorf("allowed methods %q lack PATCH", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.1.1.1:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.3"}, "1.1.1.1:80", "10.0.0.3"},
		{"remote", nil, "192.168.1.5:5555", "192.168.1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
