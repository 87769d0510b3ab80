package models

import (
	"crypto/sha256"
	"time"

	"github.com/google/uuid"
)

// Quote is a binding offer from a specific market maker to swap one Lot for
// another before a deadline. Immutable once stored (spec.md §3).
type Quote struct {
	ID             uuid.UUID `json:"id"`
	MarketMakerID  uuid.UUID `json:"market_maker_id"`
	From           Lot       `json:"from"`
	To             Lot       `json:"to"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the quote is no longer valid as of now.
func (q Quote) Expired(now time.Time) bool {
	return now.After(q.ExpiresAt)
}

// ContentHash returns the 32-byte content hash the MM uses to confirm its
// own identity for a quote it issued (spec.md §3), computed over the fields
// that uniquely identify the quote's economic terms.
func (q Quote) ContentHash() [32]byte {
	h := sha256.New()
	h.Write(q.ID[:])
	h.Write(q.MarketMakerID[:])
	h.Write([]byte(q.From.Currency.Chain))
	h.Write([]byte(q.From.Currency.Token.Address))
	h.Write([]byte(q.From.AmountString()))
	h.Write([]byte(q.To.Currency.Chain))
	h.Write([]byte(q.To.Currency.Token.Address))
	h.Write([]byte(q.To.AmountString()))
	expBytes, _ := q.ExpiresAt.UTC().MarshalBinary()
	h.Write(expBytes)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
