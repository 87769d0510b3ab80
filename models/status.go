package models

import (
	"time"

	"github.com/holiman/uint256"
)

// SwapStatus enumerates the states of the swap.Swap aggregate. Legal
// transitions are enforced by package swapfsm, not here; this is the wire
// and persistence representation (spec.md §3, §4.5).
type SwapStatus string

const (
	StatusWaitingUserDepositInitiated SwapStatus = "WaitingUserDepositInitiated"
	StatusWaitingUserDepositConfirmed SwapStatus = "WaitingUserDepositConfirmed"
	StatusWaitingMMDepositInitiated   SwapStatus = "WaitingMMDepositInitiated"
	StatusWaitingMMDepositConfirmed   SwapStatus = "WaitingMMDepositConfirmed"
	StatusSettled                     SwapStatus = "Settled"
	StatusRefundingUser               SwapStatus = "RefundingUser"
	StatusRefundingMM                 SwapStatus = "RefundingMM"
	StatusRefundingBoth               SwapStatus = "RefundingBoth"
	StatusFailed                      SwapStatus = "Failed"
)

// Terminal reports whether s is a terminal status. The only transition out
// of a terminal status is swapfsm.InitiateBothRefunds from Settled.
func (s SwapStatus) Terminal() bool {
	switch s {
	case StatusSettled, StatusFailed, StatusRefundingUser, StatusRefundingMM, StatusRefundingBoth:
		return true
	default:
		return false
	}
}

// DepositStatus records an observed on-chain deposit, for either the user's
// or the MM's side of a swap (spec.md §3 — "same shape for user and MM").
type DepositStatus struct {
	TxHash        string       `json:"tx_hash"`
	Amount        *uint256.Int `json:"amount"`
	DetectedAt    time.Time    `json:"detected_at"`
	Confirmations uint64       `json:"confirmations"`
	LastChecked   time.Time    `json:"last_checked"`
}

// SettlementStatus records the coordinator's own outgoing settlement
// transaction (e.g. sweeping the user-deposit wallet, or an MM refund).
type SettlementStatus struct {
	TxHash      string       `json:"tx_hash"`
	BroadcastAt time.Time    `json:"broadcast_at"`
	Confirmations uint64     `json:"confirmations"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	Fee         *uint256.Int `json:"fee,omitempty"`
}
