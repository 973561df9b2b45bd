package server

import (
	"net/http"
	"testing"

	"github.com/yanizio/newsletter/internal/emailclient"
)

func TestNewSetsTimeouts(t *testing.T) {
	srv := New(":0", http.NotFoundHandler())
	if srv.ReadHeaderTimeout == 0 || srv.ReadTimeout == 0 || srv.IdleTimeout == 0 {
		t.Fatalf("timeouts not set: %+v", srv)
	}
	if srv.WriteTimeout <= emailclient.DefaultTimeout {
		t.Fatalf("WriteTimeout %v must exceed email timeout %v", srv.WriteTimeout, emailclient.DefaultTimeout)
	}
}
