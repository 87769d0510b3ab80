package models

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Swap is a live custodial instance created from a Quote once both the user
// and the market maker have been engaged (spec.md §3).
type Swap struct {
	ID            uuid.UUID `json:"id"`
	MarketMakerID uuid.UUID `json:"market_maker_id"`
	Quote         Quote     `json:"quote"`

	UserDepositSalt    [32]byte `json:"-"`
	UserDepositAddress string   `json:"user_deposit_address"`
	MMNonce            [16]byte `json:"-"`

	UserDestinationAddress string `json:"user_destination_address"`
	UserRefundAddress      string `json:"user_refund_address"`

	Status SwapStatus `json:"status"`

	UserDepositStatus *DepositStatus    `json:"user_deposit_status,omitempty"`
	MMDepositStatus   *DepositStatus    `json:"mm_deposit_status,omitempty"`
	SettlementStatus  *SettlementStatus `json:"settlement_status,omitempty"`

	FailureReason *string    `json:"failure_reason,omitempty"`
	FailureAt     *time.Time `json:"failure_at,omitempty"`

	MMNotifiedAt        *time.Time `json:"mm_notified_at,omitempty"`
	MMPrivateKeySentAt  *time.Time `json:"mm_private_key_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeoutAt is the deadline by which the swap must reach
// WaitingMMDepositConfirmed; spec.md §3 defines it as the embedded quote's
// expiry.
func (s *Swap) TimeoutAt() time.Time {
	return s.Quote.ExpiresAt
}

// NonceHex renders MMNonce as the hex string used in API read-projections
// and MM protocol messages.
func (s *Swap) NonceHex() string {
	return hex.EncodeToString(s.MMNonce[:])
}
