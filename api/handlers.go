package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/swapmanager"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSwapRequest struct {
	QuoteID                string `json:"quote_id"`
	MarketMakerID          string `json:"market_maker_id"`
	MarketMakerName        string `json:"market_maker_name"`
	UserDestinationAddress string `json:"user_destination_address"`
	UserRefundAddress      string `json:"user_refund_address"`
}

func (s *Server) handleCreateSwap(w http.ResponseWriter, r *http.Request) {
	var req createSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errkind.ErrInvalidData)
		return
	}

	quoteID, err := parseUUID(req.QuoteID)
	if err != nil {
		writeError(w, http.StatusBadRequest, errkind.ErrInvalidData)
		return
	}
	mmID, err := parseUUID(req.MarketMakerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, errkind.ErrInvalidData)
		return
	}

	swap, err := s.swaps.CreateSwap(r.Context(), swapmanager.CreateSwapRequest{
		QuoteID:                quoteID,
		CallerMarketMakerID:    mmID,
		CallerMarketMakerName:  req.MarketMakerName,
		UserDestinationAddress: req.UserDestinationAddress,
		UserRefundAddress:      req.UserRefundAddress,
	})
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, swap)
}

func (s *Server) handleGetSwap(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, errkind.ErrInvalidData)
		return
	}
	swap, err := s.swaps.GetSwap(r.Context(), id)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, swap)
}

func (s *Server) handleConnectedMarketMakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"market_makers": s.mmHub.registry.ConnectedMarketMakers(),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errkind.ErrQuoteNotFound), errors.Is(err, errkind.ErrMissingData):
		return http.StatusNotFound
	case errors.Is(err, errkind.ErrQuoteExpired),
		errors.Is(err, errkind.ErrMarketMakerMismatch),
		errors.Is(err, errkind.ErrInvalidData),
		errors.Is(err, errkind.ErrInvalidAddress),
		errors.Is(err, errkind.ErrInvalidCurrency):
		return http.StatusBadRequest
	case errors.Is(err, errkind.ErrMarketMakerNotConnected),
		errors.Is(err, errkind.ErrNoMarketMakersConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, errkind.ErrMarketMakerValidationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, errkind.ErrMarketMakerRejected):
		return http.StatusConflict
	case errors.Is(err, errkind.ErrAuthFailure):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
