package rfqagg

import (
	"github.com/google/uuid"

	"github.com/otcnet/coordinator/models"
)

// inboxCapacity bounds how many offers a single in-flight request can
// buffer; spec.md's MM fleet is small enough that this never fills under
// normal operation.
const inboxCapacity = 64

func (a *Aggregator) subscribe(requestID uuid.UUID) <-chan models.Quote {
	ch := make(chan models.Quote, inboxCapacity)
	a.inboxMu.Lock()
	a.inboxes[requestID] = ch
	a.inboxMu.Unlock()
	return ch
}

func (a *Aggregator) unsubscribe(requestID uuid.UUID) {
	a.inboxMu.Lock()
	ch, ok := a.inboxes[requestID]
	delete(a.inboxes, requestID)
	a.inboxMu.Unlock()
	if ok {
		close(ch)
	}
}

// Offer delivers an MM's quote offer for an in-flight request. Called by
// the WebSocket inbound dispatcher when a quote_offer frame arrives. An
// offer for an unknown or already-closed request (arrived after the
// collection window) is silently dropped.
func (a *Aggregator) Offer(requestID uuid.UUID, quote models.Quote) {
	a.inboxMu.Lock()
	ch, ok := a.inboxes[requestID]
	a.inboxMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- quote:
	default:
	}
}
