// components/health/health.go
//
// Health Component – liveness probe.
//
// GET /health_check answers 200 with an empty body while the database
// responds to a ping, 503 otherwise.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/newsletter/internal/component"
)

var _ component.Component = (*Component)(nil)

// PingTimeout bounds the database probe.
const PingTimeout = 2 * time.Second

// Pinger is satisfied by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Component struct {
	db  Pinger
	log *zap.Logger
}

// New builds the component.  A nil db skips the probe.
func New(db Pinger, log *zap.Logger) *Component {
	if log == nil {
		log = zap.NewNop()
	}
	return &Component{db: db, log: log}
}

func (c *Component) Name() string { return "health" }

func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health_check", c.check)
	return r
}

func (c *Component) check(w http.ResponseWriter, r *http.Request) {
	if c.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), PingTimeout)
		defer cancel()
		if err := c.db.Ping(ctx); err != nil {
			c.log.Warn("health check: database unreachable", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}
