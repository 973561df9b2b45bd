// components/subscriptions/subscriptions.go
//
// Subscriptions Component – double opt-in HTTP surface.
//
//	POST /subscriptions            form: name, email
//	GET  /subscriptions/confirm    ?subscription_token=… (alias: token)
//
// Status codes come from statusFor; bodies are empty.
package subscriptions

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/newsletter/internal/component"
	"github.com/yanizio/newsletter/internal/subscription"
)

// compile-time assertion
var _ component.Component = (*Component)(nil)

// maxFormBytes caps the submitted form body.
const maxFormBytes = 64 << 10

// Workflow is the part of subscription.Service the handlers call.
type Workflow interface {
	Subscribe(ctx context.Context, rawName, rawEmail string) (uuid.UUID, error)
	Confirm(ctx context.Context, token string) error
}

type Component struct {
	wf  Workflow
	log *zap.Logger
}

func New(wf Workflow, log *zap.Logger) *Component {
	if log == nil {
		log = zap.NewNop()
	}
	return &Component{wf: wf, log: log}
}

func (c *Component) Name() string { return "subscriptions" }

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/subscriptions", c.subscribe)
	r.Get(subscription.ConfirmPath, c.confirm)
	return r
}

func (c *Component) subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		c.log.Info("unreadable subscription form", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	_, err := c.wf.Subscribe(r.Context(), r.PostForm.Get("name"), r.PostForm.Get("email"))
	w.WriteHeader(statusFor(err))
}

func (c *Component) confirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tok := q.Get(subscription.TokenParam)
	if tok == "" {
		tok = q.Get("token")
	}
	if tok == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(statusFor(c.wf.Confirm(r.Context(), tok)))
}

// statusFor maps workflow failure kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, subscription.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, subscription.ErrTokenNotFound):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
