// Package rfqagg implements the RFQ aggregator (spec.md §4.9, C9):
// broadcast a quote request to every connected market maker, collect
// offers within a fixed deadline, and select a winner. Grounded on
// degeri-dcrlnd's routing/router fee-selection comparator pattern,
// generalized from picking a payment path to picking a quote.
package rfqagg

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/metrics"
	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/models"
)

// collectionWindow is how long the aggregator waits after broadcasting a
// request before selecting from whatever offers arrived (spec.md §4.9 —
// "500ms deadline race").
const collectionWindow = 500 * time.Millisecond

// Direction selects whether the request pins the input or output leg.
type Direction int

const (
	// ExactInput pins From.Amount; MMs quote however much To they'll pay.
	ExactInput Direction = iota
	// ExactOutput pins To.Amount; MMs quote however much From they require.
	ExactOutput
)

// Request parametrizes a quote solicitation.
type Request struct {
	From        models.Lot
	ToChain     models.Chain
	ToToken     models.Token
	ToDecimals  uint8
	Direction   Direction
}

// offer pairs a received quote with its arrival order, for the earliest-
// arrival tie-break spec.md §4.9 specifies.
type offer struct {
	quote    models.Quote
	sequence int
}

// Aggregator drives the broadcast/collect/select flow over a mmregistry.
type Aggregator struct {
	registry *mmregistry.Registry

	inboxMu sync.Mutex
	inboxes map[uuid.UUID]chan models.Quote
}

// New builds an Aggregator over registry.
func New(registry *mmregistry.Registry) *Aggregator {
	return &Aggregator{registry: registry, inboxes: make(map[uuid.UUID]chan models.Quote)}
}

// RequestQuotes broadcasts req to every connected MM, waits up to
// collectionWindow for offers, and returns the winning quote: for
// ExactInput the one offering the most of Request.ToToken, for ExactOutput
// the one requiring the least of Request.From; ties go to whichever arrived
// first (spec.md §4.9).
func (a *Aggregator) RequestQuotes(ctx context.Context, req Request) (models.Quote, error) {
	requestID := uuid.New()
	reached := a.registry.BroadcastQuoteRequest(mmregistry.QuoteRequestPayload{
		RequestID:   requestID,
		From:        req.From,
		ToChain:     req.ToChain,
		ExactOutput: req.Direction == ExactOutput,
	})
	if len(reached) == 0 {
		metrics.RFQRequestsTotal.WithLabelValues("no_market_makers").Inc()
		return models.Quote{}, errkind.ErrNoMarketMakersConnected
	}

	offers := a.collect(ctx, requestID)
	if len(offers) == 0 {
		metrics.RFQRequestsTotal.WithLabelValues("no_quotes").Inc()
		return models.Quote{}, errkind.ErrNoQuotesReceived
	}

	metrics.RFQRequestsTotal.WithLabelValues("won").Inc()
	return selectWinner(offers, req.Direction), nil
}

// collect accumulates QuoteOfferPayloads matching requestID for up to
// collectionWindow. In the real coordinator, offers arrive through the
// registry's inbound message dispatch, which calls Offer on this
// aggregator; here we just own the accumulation buffer and the deadline.
func (a *Aggregator) collect(ctx context.Context, requestID uuid.UUID) []offer {
	inbox := a.subscribe(requestID)
	defer a.unsubscribe(requestID)

	deadline := time.NewTimer(collectionWindow)
	defer deadline.Stop()

	var offers []offer
	seq := 0
	for {
		select {
		case q := <-inbox:
			offers = append(offers, offer{quote: q, sequence: seq})
			seq++
		case <-deadline.C:
			return offers
		case <-ctx.Done():
			return offers
		}
	}
}

func selectWinner(offers []offer, dir Direction) models.Quote {
	best := offers[0]
	for _, o := range offers[1:] {
		if better(o, best, dir) {
			best = o
		}
	}
	return best.quote
}

// better reports whether candidate beats current under dir, with an
// earliest-arrival tie-break.
func better(candidate, current offer, dir Direction) bool {
	var cmp int
	switch dir {
	case ExactInput:
		// More To for the same From wins.
		cmp = candidate.quote.To.Amount.Cmp(current.quote.To.Amount)
	case ExactOutput:
		// Less From for the same To wins.
		cmp = current.quote.From.Amount.Cmp(candidate.quote.From.Amount)
	}
	if cmp != 0 {
		return cmp > 0
	}
	return candidate.sequence < current.sequence
}
