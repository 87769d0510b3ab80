package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/mmregistry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// MMHub owns the registry and the inbound-message dispatch for connected
// market makers: the registry only knows how to send; MMHub is where
// arriving validation_response frames get routed back into mmregistry
// (spec.md §4.6, §6 — WS handshake and protocol framing). Quote
// solicitation (quote_request/quote_offer) is the RFQ server's concern
// (package rfqapi), not the coordinator's.
type MMHub struct {
	registry *mmregistry.Registry
}

// NewMMHub builds an MMHub over registry.
func NewMMHub(registry *mmregistry.Registry) *MMHub {
	return &MMHub{registry: registry}
}

func (s *Server) handleMMWebSocket(w http.ResponseWriter, r *http.Request) {
	keyIDHeader := r.Header.Get("X-API-Key-ID")
	apiKey := r.Header.Get("X-API-Key")

	keyID, err := uuid.Parse(keyIDHeader)
	if err != nil {
		writeError(w, http.StatusUnauthorized, errkind.ErrAuthFailure)
		return
	}

	entry, err := s.whitelist.Authenticate(keyID, apiKey)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mmHub.registry.Register(entry.MarketMaker, conn)
	go s.mmHub.readLoop(entry.MarketMaker, conn)
}

// readLoop dispatches inbound frames from marketMaker's connection until it
// closes, at which point the session is unregistered.
func (h *MMHub) readLoop(marketMaker string, conn *websocket.Conn) {
	defer h.registry.Unregister(marketMaker, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env mmregistry.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		if env.Type == mmregistry.MsgValidationResponse {
			var payload mmregistry.ValidationResponsePayload
			if json.Unmarshal(env.Payload, &payload) == nil {
				h.registry.HandleValidationResponse(env.RequestID, payload)
			}
		}
	}
}
