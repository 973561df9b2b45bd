// internal/emailclient/client_test.go
//
// Unit-tests for the provider client against an httptest server.
//
// Context
// -------
// The fake provider records every request so tests can assert on the
// exact wire shape: path, method, bearer header, and JSON body.  Failure
// tests cover non-2xx responses, slow responses beyond the timeout, and
// an unreachable host.

package emailclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/yanizio/newsletter/internal/domain"
	"github.com/yanizio/newsletter/internal/secret"
)

const testToken = "provider-token-123"

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

type fakeProvider struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	delay    time.Duration
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{r.Method, r.URL.Path, r.Header.Clone(), b})
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	w.WriteHeader(f.status)
}

func (f *fakeProvider) snapshot() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func mustEmail(t *testing.T, raw string) domain.SubscriberEmail {
	t.Helper()
	e, err := domain.ParseSubscriberEmail(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return e
}

func newClient(t *testing.T, baseURL string, timeout time.Duration) *Client {
	t.Helper()
	return New(baseURL, mustEmail(t, "newsletter@example.com"), secret.New(testToken), timeout, zaptest.NewLogger(t))
}

func TestSendEmailFiresRequestToBaseURL(t *testing.T) {
	fp := &fakeProvider{status: http.StatusOK}
	srv := httptest.NewServer(fp)
	defer srv.Close()

	c := newClient(t, srv.URL+"/", time.Second)
	err := c.SendEmail(context.Background(), mustEmail(t, "ursula@domain.com"),
		"Subject", "text/plain", "Body text")
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}

	reqs := fp.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("provider saw %d requests, want 1", len(reqs))
	}
	got := reqs[0]
	if got.method != http.MethodPost || got.path != "/v3/mail/send" {
		t.Fatalf("request = %s %s", got.method, got.path)
	}
	if h := got.header.Get("Authorization"); h != "Bearer "+testToken {
		t.Fatalf("Authorization = %q", h)
	}
	if h := got.header.Get("Content-Type"); h != "application/json" {
		t.Fatalf("Content-Type = %q", h)
	}

	var body struct {
		From struct {
			Email string `json:"email"`
		} `json:"from"`
		Personalizations []struct {
			To []struct {
				Email string `json:"email"`
			} `json:"to"`
			Subject string `json:"subject"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	if err := json.Unmarshal(got.body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.From.Email != "newsletter@example.com" ||
		len(body.Personalizations) != 1 ||
		len(body.Personalizations[0].To) != 1 ||
		body.Personalizations[0].To[0].Email != "ursula@domain.com" ||
		body.Personalizations[0].Subject != "Subject" ||
		len(body.Content) != 1 ||
		body.Content[0].Type != "text/plain" ||
		body.Content[0].Value != "Body text" {
		t.Fatalf("unexpected body: %s", got.body)
	}
}

func TestSendEmailFailsOnNon2xx(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
		fp := &fakeProvider{status: status}
		srv := httptest.NewServer(fp)

		c := newClient(t, srv.URL, time.Second)
		err := c.SendEmail(context.Background(), mustEmail(t, "a@b.com"), "s", "text/plain", "c")
		srv.Close()

		if !errors.Is(err, ErrDelivery) {
			t.Fatalf("status %d: err = %v, want ErrDelivery", status, err)
		}
		if strings.Contains(err.Error(), testToken) {
			t.Fatalf("error leaked credential: %v", err)
		}
	}
}

func TestSendEmailTimesOut(t *testing.T) {
	fp := &fakeProvider{status: http.StatusOK, delay: 3 * time.Second}
	srv := httptest.NewServer(fp)
	defer srv.Close()

	c := newClient(t, srv.URL, 200*time.Millisecond)
	start := time.Now()
	err := c.SendEmail(context.Background(), mustEmail(t, "a@b.com"), "s", "text/plain", "c")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v, want ErrDelivery", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("timeout not enforced: took %v", elapsed)
	}
}

func TestSendEmailUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newClient(t, url, time.Second)
	err := c.SendEmail(context.Background(), mustEmail(t, "a@b.com"), "s", "text/plain", "c")
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("err = %v, want ErrDelivery", err)
	}
}

func TestSendConfirmationEmailEmbedsOneLink(t *testing.T) {
	fp := &fakeProvider{status: http.StatusOK}
	srv := httptest.NewServer(fp)
	defer srv.Close()

	link := "http://127.0.0.1:8000/subscriptions/confirm?subscription_token=abc"
	c := newClient(t, srv.URL, time.Second)
	if err := c.SendConfirmationEmail(context.Background(), mustEmail(t, "a@b.com"), link); err != nil {
		t.Fatalf("SendConfirmationEmail: %v", err)
	}

	var body struct {
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	if err := json.Unmarshal(fp.snapshot()[0].body, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	links := regexp.MustCompile(`https?://[^"'\s<>]+`).FindAllString(body.Content[0].Value, -1)
	if len(links) != 1 || links[0] != link {
		t.Fatalf("links = %v, want [%s]", links, link)
	}
	if body.Content[0].Type != "text/html" {
		t.Fatalf("content type = %q", body.Content[0].Type)
	}
}
