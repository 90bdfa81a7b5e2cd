package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	r := newEngine()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	// No inbound id: one is generated.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("no X-Request-ID generated")
	}

	// Inbound id: echoed back unchanged.
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("X-Request-ID = %q, want fixed-id", got)
	}
}

func TestRecovery_PanicsBecomeJSON500(t *testing.T) {
	r := newEngine()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestRateLimiter_Enforces429(t *testing.T) {
	r := newEngine()
	rl := NewRateLimiter(0.0001, 2, KeyByUserOrIP()) // effectively 2 requests, then dry
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("burst requests rejected: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", codes[2])
	}
}

func TestRateLimiter_KeysByDeclaredUser(t *testing.T) {
	r := newEngine()
	rl := NewRateLimiter(0.0001, 1, KeyByUserOrIP())
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	get := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		if user != "" {
			req.Header.Set("X-User-ID", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if get("alice") != http.StatusOK {
		t.Fatal("alice's first request rejected")
	}
	if get("alice") != http.StatusTooManyRequests {
		t.Fatal("alice's second request allowed")
	}
	// A different identity has its own bucket.
	if get("bob") != http.StatusOK {
		t.Fatal("bob throttled by alice's bucket")
	}
}

func TestIdempotencyValidator(t *testing.T) {
	seen := map[string]bool{}
	r := newEngine()
	r.Use(IdempotencyValidator(IdempotencyOptions{}, func(key string) bool { return seen[key] }))
	r.POST("/sessions/:id/messages", func(c *gin.Context) {
		if IsReplay(c) {
			c.String(http.StatusOK, "replay")
			return
		}
		if key, ok := GetIdempotencyKey(c); ok {
			seen[ReplayKey("alice", c.Param("id"), key)] = true
		}
		c.String(http.StatusCreated, "created")
	})

	post := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions/room/messages", nil)
		req.Header.Set("X-User-ID", "alice")
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := post("key-1"); w.Code != http.StatusCreated {
		t.Fatalf("first post = %d", w.Code)
	}
	if w := post("key-1"); w.Code != http.StatusOK || w.Body.String() != "replay" {
		t.Fatalf("second post = %d %q, want replay", w.Code, w.Body.String())
	}
	if w := post("key-2"); w.Code != http.StatusCreated {
		t.Fatalf("fresh key = %d", w.Code)
	}
	// Malformed keys are rejected outright.
	if w := post("bad key with spaces"); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed key = %d", w.Code)
	}
	// No key at all is a plain request.
	if w := post(""); w.Code != http.StatusCreated {
		t.Fatalf("keyless post = %d", w.Code)
	}
}

func TestMaskSessionPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/v1/sessions/secret-room/messages", "/api/v1/sessions/[REDACTED:session]/messages"},
		{"/join/secret-room.png", "/join/[REDACTED:session]"},
		{"/api/v1/users/alice", "/api/v1/users/alice"},
		{"/health", "/health"},
	}
	for _, tc := range cases {
		if got := maskSessionPath(tc.in); got != tc.want {
			t.Fatalf("maskSessionPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := newEngine()
	r.Use(SecurityHeaders(SecurityOptions{EnablePolicy: true}))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q", got)
	}
	// HSTS never set for plain HTTP.
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS set on HTTP: %q", got)
	}
}
