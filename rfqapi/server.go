// Package rfqapi implements the RFQ server's external surface (spec.md
// §4.9, §6): a standalone HTTP+WebSocket service dedicated to price
// discovery, separate from the coordinator's swap-lifecycle API (`api`) so
// that a flood of quote requests can never starve swap settlement traffic.
// Built the same way `api` is — go-chi/chi/v5 routing, gorilla/websocket
// for the MM side — grounded on the same peterzen-dcrdex manifest
// reference.
package rfqapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/otcauth"
	"github.com/otcnet/coordinator/rfqagg"
)

// Server is the RFQ server's HTTP/WS surface.
type Server struct {
	registry  *mmregistry.Registry
	rfq       *rfqagg.Aggregator
	whitelist *otcauth.Whitelist

	router chi.Router
}

// New builds a Server over its own mmregistry.Registry and rfqagg.Aggregator
// — independent of the coordinator's, since this process only ever needs
// to see quote traffic, not swap or deposit state.
func New(whitelist *otcauth.Whitelist) *Server {
	registry := mmregistry.NewRegistry()
	s := &Server{
		registry:  registry,
		rfq:       rfqagg.New(registry),
		whitelist: whitelist,
	}
	s.router = s.routes()
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/status", s.handleStatus)
	r.Post("/api/v1/quotes/request", s.handleRequestQuotes)
	r.Get("/api/v1/market-makers/connected", s.handleConnectedMarketMakers)
	r.Get("/ws/mm", s.handleMMWebSocket)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
