package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/newsletter/internal/requestinfo"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestSecurityHeadersPresent(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{
		"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options",
		"X-Content-Type-Options", "Referrer-Policy", "Permissions-Policy",
	} {
		if rec.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		name    string
		enabled bool
		host    string
		tls     bool
		proto   string
		want    int
	}{
		{"disabled", false, "news.example.com", false, "", http.StatusTeapot},
		{"plain http", true, "news.example.com", false, "", http.StatusPermanentRedirect},
		{"tls", true, "news.example.com", true, "", http.StatusTeapot},
		{"proxy https", true, "news.example.com", false, "https", http.StatusTeapot},
		{"localhost", true, "localhost:8000", false, "", http.StatusTeapot},
		{"loopback ip", true, "127.0.0.1:8000", false, "", http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm?subscription_token=x", nil)
			r.Host = tc.host
			if tc.tls {
				r.TLS = &tls.ConnectionState{}
			}
			if tc.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rec := httptest.NewRecorder()
			ForceHTTPS(tc.enabled)(ok).ServeHTTP(rec, r)

			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			if tc.want == http.StatusPermanentRedirect {
				want := "https://news.example.com/subscriptions/confirm?subscription_token=x"
				if loc := rec.Header().Get("Location"); loc != want {
					t.Fatalf("Location = %q, want %q", loc, want)
				}
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e, err := requestinfo.NewEnricher("", nil)
	if err != nil {
		t.Fatal(err)
	}

	h := e.Middleware(RequestLogger(zap.New(core))(ok))
	r := httptest.NewRequest(http.MethodPost, "/subscriptions", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "POST" || fields["path"] != "/subscriptions" || fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if fields["client_ip"] != "192.0.2.1" {
		t.Fatalf("client_ip = %v", fields["client_ip"])
	}
}
