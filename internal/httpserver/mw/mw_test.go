package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"marks.example.com", "marks.example.com", true},
		{"a.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"evil-example.com", "*.example.com", false},
		{"other.com", "marks.example.com", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"Marks.Example.com", "*.lan"}, logger.Nop())(ok)

	tests := []struct {
		host string
		want int
	}{
		{"marks.example.com", http.StatusOK},
		{"marks.example.com:8443", http.StatusOK},
		{"box.lan", http.StatusOK},
		{"attacker.test", http.StatusMisdirectedRequest},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Host = tt.host
		if got := serve(h, r).Code; got != tt.want {
			t.Errorf("Host %q = %d, want %d", tt.host, got, tt.want)
		}
	}

	passthrough := EnforceHost(nil, logger.Nop())(ok)
	if got := serve(passthrough, httptest.NewRequest(http.MethodGet, "/", nil)).Code; got != http.StatusOK {
		t.Errorf("passthrough = %d", got)
	}
}

func TestAllowOnlyCIDRS(t *testing.T) {
	h := AllowOnlyCIDRS([]string{"10.0.0.0/8", "192.168.1.7"}, true, logger.Nop())(ok)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       int
	}{
		{"cidr", "10.2.3.4:1111", "", http.StatusOK},
		{"exact", "192.168.1.7:1111", "", http.StatusOK},
		{"outside", "203.0.113.9:1111", "", http.StatusForbidden},
		{"proxied inside", "127.0.0.1:1111", "10.9.9.9, 127.0.0.1", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/infra", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := serve(h, r).Code; got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Now:               func() time.Time { return now },
	})(ok)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
		return serve(h, r)
	}

	if w := req(); w.Code != http.StatusOK || w.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("first = %d remaining=%q", w.Code, w.Header().Get("X-RateLimit-Remaining"))
	}
	if w := req(); w.Code != http.StatusOK {
		t.Fatalf("second = %d", w.Code)
	}
	w := req()
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("third = %d retry=%q", w.Code, w.Header().Get("Retry-After"))
	}

	now = now.Add(time.Second)
	if w := req(); w.Code != http.StatusOK {
		t.Errorf("after refill = %d", w.Code)
	}
}

func TestRequireSession(t *testing.T) {
	sessions := auth.NewSessions("0123456789abcdef0123456789abcdef", time.Hour, false, nil)
	id, _ := domain.NewIdentity("fake", "s", "alice@example.com", "")
	token, _, _ := sessions.Issue(id)

	var seen *domain.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.IdentityFrom(r.Context())
	})
	h := RequireSession(sessions, Unauthorized(), logger.Nop())(next)

	if w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil)); w.Code != http.StatusUnauthorized {
		t.Errorf("no session = %d, want 401", w.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	serve(h, r)
	if seen == nil || seen.ID != id.ID {
		t.Errorf("identity in context = %+v", seen)
	}

	redirect := RequireSession(sessions, RedirectTo("/"), logger.Nop())(next)
	if w := serve(redirect, httptest.NewRequest(http.MethodGet, "/dashboard", nil)); w.Code != http.StatusSeeOther {
		t.Errorf("redirect = %d, want 303", w.Code)
	}
}

func TestLogKeepsFlusher(t *testing.T) {
	flushed := false
	h := Log(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := http.NewResponseController(w).Flush(); err == nil {
			flushed = true
		}
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !flushed || !w.Flushed {
		t.Errorf("flush through Log middleware failed")
	}
}
