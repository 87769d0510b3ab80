package mmregistry

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/otcnet/coordinator/models"
)

// MessageType tags the envelope of every frame exchanged on the MM
// WebSocket connection (spec.md §4.6, §6).
type MessageType string

const (
	// Coordinator -> MM
	MsgValidateQuote  MessageType = "validate_quote"
	MsgQuoteRequest   MessageType = "quote_request"
	MsgSwapCreated    MessageType = "swap_created"
	MsgDepositUpdate  MessageType = "deposit_update"
	MsgPrivateKeySent MessageType = "private_key_sent"

	// MM -> Coordinator
	MsgValidationResponse MessageType = "validation_response"
	MsgQuoteOffer         MessageType = "quote_offer"
)

// Envelope is the wire shape of every frame: a tag plus an opaque payload,
// mirroring the tagged-union framing arcsign's session protocol and
// peterzen-dcrdex's msgjson both use over a websocket transport.
type Envelope struct {
	Type      MessageType     `json:"type"`
	RequestID uuid.UUID       `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// ValidateQuotePayload is sent to the quote's owning MM before a swap is
// created from it, asking the MM to reconfirm it still honors the quote
// (spec.md §4.6 — validate_quote).
type ValidateQuotePayload struct {
	Quote       models.Quote `json:"quote"`
	ContentHash string       `json:"content_hash"`
}

// ValidationResponsePayload is the MM's reply to a ValidateQuotePayload.
type ValidationResponsePayload struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// QuoteRequestPayload is broadcast to all connected MMs to solicit offers
// for a prospective swap (spec.md §4.9, C9).
type QuoteRequestPayload struct {
	RequestID    uuid.UUID     `json:"request_id"`
	From         models.Lot   `json:"from"`
	ToChain      models.Chain `json:"to_chain"`
	ExactOutput  bool         `json:"exact_output"`
}

// QuoteOfferPayload is an MM's reply to a QuoteRequestPayload.
type QuoteOfferPayload struct {
	RequestID uuid.UUID    `json:"request_id"`
	Quote     models.Quote `json:"quote"`
}

// SwapCreatedPayload notifies an MM that a swap has been created from one of
// its quotes.
type SwapCreatedPayload struct {
	SwapID             uuid.UUID `json:"swap_id"`
	UserDepositAddress string    `json:"user_deposit_address"`
	MMNonce            string    `json:"mm_nonce"`
}

// DepositUpdatePayload notifies an MM of a confirmation-depth change on
// either side of a swap it is party to.
type DepositUpdatePayload struct {
	SwapID        uuid.UUID         `json:"swap_id"`
	Status        models.SwapStatus `json:"status"`
	Confirmations uint64            `json:"confirmations"`
}

// PrivateKeySentPayload hands the user-deposit wallet's private key to the
// MM once its own deposit has confirmed (spec.md §4.5).
type PrivateKeySentPayload struct {
	SwapID     uuid.UUID `json:"swap_id"`
	PrivateKey string    `json:"private_key"`
}

func encodePayload(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		// Every payload type above is a plain struct of marshalable
		// fields; a failure here means a programming error, not a
		// runtime condition callers can act on.
		panic(err)
	}
	return b
}
