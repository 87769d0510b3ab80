package rfqapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/holiman/uint256"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
	"github.com/otcnet/coordinator/rfqagg"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConnectedMarketMakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"market_makers": s.registry.ConnectedMarketMakers(),
	})
}

type requestQuotesRequest struct {
	From        requestLot   `json:"from"`
	ToChain     models.Chain `json:"to_chain"`
	ToToken     requestToken `json:"to_token"`
	ToDecimals  uint8        `json:"to_decimals"`
	ExactOutput bool         `json:"exact_output"`
}

type requestLot struct {
	Chain    models.Chain `json:"chain"`
	Token    requestToken `json:"token"`
	Decimals uint8        `json:"decimals"`
	Amount   string       `json:"amount"`
}

type requestToken struct {
	Kind    models.TokenKind `json:"kind"`
	Address string           `json:"address"`
}

func (s *Server) handleRequestQuotes(w http.ResponseWriter, r *http.Request) {
	var req requestQuotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errkind.ErrInvalidData)
		return
	}

	amount, err := uint256.FromDecimal(req.From.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, errkind.ErrInvalidData)
		return
	}

	dir := rfqagg.ExactInput
	if req.ExactOutput {
		dir = rfqagg.ExactOutput
	}

	quote, err := s.rfq.RequestQuotes(r.Context(), rfqagg.Request{
		From: models.Lot{
			Currency: models.Currency{
				Chain:    req.From.Chain,
				Token:    models.Token{Kind: req.From.Token.Kind, Address: req.From.Token.Address},
				Decimals: req.From.Decimals,
			},
			Amount: amount,
		},
		ToChain:    req.ToChain,
		ToToken:    models.Token{Kind: req.ToToken.Kind, Address: req.ToToken.Address},
		ToDecimals: req.ToDecimals,
		Direction:  dir,
	})
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errkind.ErrInvalidData), errors.Is(err, errkind.ErrInvalidCurrency):
		return http.StatusBadRequest
	case errors.Is(err, errkind.ErrNoMarketMakersConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, errkind.ErrNoQuotesReceived):
		return http.StatusGatewayTimeout
	case errors.Is(err, errkind.ErrAuthFailure):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
