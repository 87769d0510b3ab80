// Package mmregistry implements the process-wide market-maker session
// registry (spec.md §4.6, C6): one multiplexed WebSocket connection per
// connected MM, keyed by market-maker name, supporting one-shot
// request/reply (ValidateQuote) and fire-and-forget notifications.
// Grounded on degeri-dcrlnd's peer-connection registry (peer.Brontide
// keyed by node pubkey in server.go) generalized from a P2P link to an
// MM-facing websocket, and on gorilla/websocket's connection-handling idiom
// as used across arcsign, peterzen-dcrdex, and the Klingon reference
// client.
package mmregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/otcnet/coordinator/errkind"
)

// validationDeadline is how long the registry waits for an MM to answer a
// ValidateQuote request before treating it as a timeout (spec.md §4.6).
const validationDeadline = 5 * time.Second

// broadcastRateLimit/broadcastBurst bound how often RFQ requests may be
// fanned out to every connected MM, guarding against a misbehaving or
// abusive caller flooding every MM session at once.
const (
	broadcastRateLimit = 20 // requests per second
	broadcastBurst     = 40
)

// Registry multiplexes all connected market-maker sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session

	pendingMu sync.Mutex
	pending   map[uuid.UUID]chan ValidationResponsePayload

	broadcastLimiter *rate.Limiter
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:         make(map[string]*session),
		pending:          make(map[uuid.UUID]chan ValidationResponsePayload),
		broadcastLimiter: rate.NewLimiter(rate.Limit(broadcastRateLimit), broadcastBurst),
	}
}

// Register adopts conn as marketMaker's live session, replacing and closing
// any prior session for the same MM (spec.md §4.6 — a new connection
// supersedes a stale one rather than being rejected).
func (r *Registry) Register(marketMaker string, conn *websocket.Conn) {
	s := newSession(marketMaker, conn)

	r.mu.Lock()
	old := r.sessions[marketMaker]
	r.sessions[marketMaker] = s
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	go s.writeLoop()
}

// Unregister drops marketMaker's session if it is still the current one for
// that name (a session that was already superseded does not unregister the
// replacement).
func (r *Registry) Unregister(marketMaker string, conn *websocket.Conn) {
	r.mu.Lock()
	s, ok := r.sessions[marketMaker]
	if ok && s.conn == conn {
		delete(r.sessions, marketMaker)
	} else {
		s = nil
	}
	r.mu.Unlock()

	if s != nil {
		s.close()
	}
}

// IsConnected reports whether marketMaker currently has a live session.
func (r *Registry) IsConnected(marketMaker string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[marketMaker]
	return ok
}

// ConnectedMarketMakers lists the names of all currently connected MMs.
func (r *Registry) ConnectedMarketMakers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		out = append(out, name)
	}
	return out
}

func (r *Registry) get(marketMaker string) (*session, error) {
	r.mu.RLock()
	s, ok := r.sessions[marketMaker]
	r.mu.RUnlock()
	if !ok {
		return nil, errkind.ErrMarketMakerNotConnected
	}
	return s, nil
}

func (r *Registry) sendEnvelope(marketMaker string, env Envelope) error {
	s, err := r.get(marketMaker)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("mmregistry: marshal envelope: %w", err)
	}
	if !s.enqueue(frame) {
		return fmt.Errorf("%w: send queue full or closed for %s", errkind.ErrEnqueueFailed, marketMaker)
	}
	return nil
}

// ValidateQuote sends a ValidateQuote request to marketMaker and blocks
// until it replies, ctx is done, or validationDeadline elapses (spec.md
// §4.6 — a 5-second one-shot request/reply).
func (r *Registry) ValidateQuote(ctx context.Context, marketMaker string, payload ValidateQuotePayload) (ValidationResponsePayload, error) {
	requestID := uuid.New()
	reply := make(chan ValidationResponsePayload, 1)

	r.pendingMu.Lock()
	r.pending[requestID] = reply
	r.pendingMu.Unlock()
	defer func() {
		r.pendingMu.Lock()
		delete(r.pending, requestID)
		r.pendingMu.Unlock()
	}()

	env := Envelope{Type: MsgValidateQuote, RequestID: requestID, Payload: encodePayload(payload)}
	if err := r.sendEnvelope(marketMaker, env); err != nil {
		return ValidationResponsePayload{}, err
	}

	deadline := time.NewTimer(validationDeadline)
	defer deadline.Stop()

	select {
	case resp := <-reply:
		return resp, nil
	case <-deadline.C:
		return ValidationResponsePayload{}, errkind.ErrMarketMakerValidationTimeout
	case <-ctx.Done():
		return ValidationResponsePayload{}, ctx.Err()
	}
}

// HandleValidationResponse delivers an MM's reply to the ValidateQuote call
// blocked on requestID, if any is still waiting. A response for an unknown
// or already-timed-out request is silently dropped.
func (r *Registry) HandleValidationResponse(requestID uuid.UUID, resp ValidationResponsePayload) {
	r.pendingMu.Lock()
	reply, ok := r.pending[requestID]
	r.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case reply <- resp:
	default:
	}
}

// NotifySwapCreated is a fire-and-forget notification to the MM that owns a
// newly created swap.
func (r *Registry) NotifySwapCreated(marketMaker string, payload SwapCreatedPayload) error {
	return r.sendEnvelope(marketMaker, Envelope{Type: MsgSwapCreated, Payload: encodePayload(payload)})
}

// NotifyDepositUpdate is a fire-and-forget confirmation-depth update.
func (r *Registry) NotifyDepositUpdate(marketMaker string, payload DepositUpdatePayload) error {
	return r.sendEnvelope(marketMaker, Envelope{Type: MsgDepositUpdate, Payload: encodePayload(payload)})
}

// NotifyPrivateKeySent hands the user-deposit wallet's private key to the MM.
func (r *Registry) NotifyPrivateKeySent(marketMaker string, payload PrivateKeySentPayload) error {
	return r.sendEnvelope(marketMaker, Envelope{Type: MsgPrivateKeySent, Payload: encodePayload(payload)})
}

// BroadcastQuoteRequest fans payload out to every currently connected MM,
// returning the set of MMs it was actually queued to (spec.md §4.9). A
// caller that exceeds broadcastRateLimit gets an empty result rather than
// blocking, so a single abusive caller can't stall the fan-out for others.
func (r *Registry) BroadcastQuoteRequest(payload QuoteRequestPayload) []string {
	if !r.broadcastLimiter.Allow() {
		return nil
	}

	env := Envelope{Type: MsgQuoteRequest, RequestID: payload.RequestID, Payload: encodePayload(payload)}
	frame, err := json.Marshal(env)
	if err != nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var reached []string
	for name, s := range r.sessions {
		if s.enqueue(frame) {
			reached = append(reached, name)
		}
	}
	return reached
}
