// README: API gateway; owns the gin engine and the HTTP server lifecycle.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"londa/internal/http/handlers"
	"londa/internal/http/middleware"
	"londa/internal/infra"
	"londa/internal/maps"
	"londa/internal/modules/analytics"
	"londa/internal/modules/driver"
	"londa/internal/modules/identity"
	"londa/internal/modules/matching"
	"londa/internal/modules/notification"
	"londa/internal/modules/payment"
	"londa/internal/modules/ride"
	"londa/internal/modules/subscription"
	"londa/internal/modules/user"
)

const shutdownTimeout = 15 * time.Second

type ServerDeps struct {
	Verifier      infra.TokenVerifier
	Identity      *identity.Service
	Users         *user.Service
	Drivers       *driver.Service
	Rides         *ride.Service
	Matching      *matching.Service
	Payments      *payment.Service
	Subscriptions *subscription.Service
	Analytics     *analytics.Service
	Notifications *notification.Service
	Routes        *maps.RouteService
	Places        *maps.PlacesService
	// Optional collaborators; nil disables the feature they back.
	History     handlers.EventHistory
	Updates     handlers.UpdateFeed
	Idempotency middleware.ResponseCache
	NewRelic    *newrelic.Application
}

type Server struct {
	srv *http.Server
}

func NewServer(addr string, deps ServerDeps) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
