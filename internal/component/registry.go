// internal/component/registry.go
//
// Component registry.
//
// Each concrete component lives under components/<name>.  Components carry
// injected dependencies (workflow, store, logger), so cmd/web constructs
// them and hands them to Mount rather than relying on init() side effects.
// Every route of every component is registered on the root router, so two
// components may share a path prefix.

package component

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Component contract.
//
// Routes() returns a router holding the component's endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Post("/subscriptions", c.subscribe)
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
}

// Mount registers the routes of every component on r and returns the
// component names in sorted order.  A later component with the same name
// replaces an earlier one.
func Mount(r chi.Router, log *zap.Logger, comps ...Component) ([]string, error) {
	byName := make(map[string]Component, len(comps))
	for _, c := range comps {
		byName[c.Name()] = c
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		walk := func(method, route string, h http.Handler, mws ...func(http.Handler) http.Handler) error {
			r.With(mws...).Method(method, route, h)
			log.Debug("route mounted",
				zap.String("component", n),
				zap.String("method", method),
				zap.String("route", route))
			return nil
		}
		if err := chi.Walk(byName[n].Routes(), walk); err != nil {
			return nil, fmt.Errorf("mount %s: %w", n, err)
		}
	}
	return names, nil
}
