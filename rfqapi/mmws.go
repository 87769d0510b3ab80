package rfqapi

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

	s.registry.Register(entry.MarketMaker, conn)
	go s.readLoop(entry.MarketMaker, conn)
}

// readLoop dispatches inbound quote_offer frames from marketMaker's
// connection into the aggregator until the connection closes.
func (s *Server) readLoop(marketMaker string, conn *websocket.Conn) {
	defer s.registry.Unregister(marketMaker, conn)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env mmregistry.Envelope
		if json.Unmarshal(raw, &env) != nil {
			continue
		}
		if env.Type != mmregistry.MsgQuoteOffer {
			continue
		}
		var payload mmregistry.QuoteOfferPayload
		if json.Unmarshal(env.Payload, &payload) == nil {
			s.rfq.Offer(payload.RequestID, payload.Quote)
		}
	}
}
