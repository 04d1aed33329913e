package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestSessionToken_RoundTrip(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	id := uuid.New()

	token, err := auth.GenerateSessionToken(id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	parsed, err := auth.ParseSessionToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if parsed != id {
		t.Fatalf("expected session %s, got %s", id, parsed)
	}
}

func TestParseSessionToken_Rejects(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	id := uuid.New()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": id.String(),
		"exp":        time.Now().Add(-time.Hour).Unix(),
	})
	expiredStr, _ := expired.SignedString(auth.Secret)

	otherKey, _ := NewJWTAuth("other-secret").GenerateSessionToken(id)

	noSession := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": id.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	noSessionStr, _ := noSession.SignedString(auth.Secret)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"expired", expiredStr, ErrTokenExpired},
		{"wrong key", otherKey, ErrInvalidToken},
		{"no session claim", noSessionStr, ErrInvalidToken},
		{"garbage", "not-a-token", ErrInvalidToken},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.ParseSessionToken(tc.token)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestMiddleware_AttachesSessionID(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	id := uuid.New()
	token, _ := auth.GenerateSessionToken(id)

	var got uuid.UUID
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quiz/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if got != id {
		t.Fatalf("expected session %s in context, got %s", id, got)
	}
}

func TestMiddleware_Unauthorized(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next handler should not run")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"invalid token", "Bearer abc"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/quiz/session", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
			}
			var body map[string]map[string]interface{}
			json.NewDecoder(rr.Body).Decode(&body)
			if body["error"]["code"] != "UNAUTHORIZED" {
				t.Fatalf("expected UNAUTHORIZED code, got %v", body["error"]["code"])
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen == "" || rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated request id to be echoed, got %q / %q", seen, rr.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get(RequestIDHeader) != "client-id" {
		t.Fatalf("expected client request id to be kept, got %q", rr.Header().Get(RequestIDHeader))
	}
}

func TestCORS(t *testing.T) {
	handler := CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/quiz/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code >= 300 {
		t.Fatalf("expected successful preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header")
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("expected no CORS header for unknown origin")
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("expected request to pass through, got %d", rr.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Now()
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatalf("expected first two requests to pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("expected other clients to be unaffected")
	}

	now = now.Add(2 * time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatalf("expected limit to reset after the window")
	}
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quiz/sessions", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("request %d: expected status %d, got %d", i, want, rr.Code)
		}
	}
}

func TestRateLimiter_MiddlewareIgnoresClientPort(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	addrs := []string{"1.2.3.4:5001", "1.2.3.4:5002", "1.2.3.4:5003", "[::1]:6000", "unix-socket"}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK, http.StatusOK}

	for i, addr := range addrs {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/quiz/sessions", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != want[i] {
			t.Fatalf("request from %s: expected status %d, got %d", addr, want[i], rr.Code)
		}
	}
}
