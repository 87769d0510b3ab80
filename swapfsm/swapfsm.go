// Package swapfsm implements the guarded state-machine transitions on the
// Swap aggregate (spec.md §4.5, C5). Every exported function takes the
// current *models.Swap and either mutates it in place and returns nil, or
// leaves it untouched and returns an error — usually
// errkind.NewInvalidTransition. Grounded on
// degeri-dcrlnd/contractcourt's guarded resolver-state transitions, adapted
// from HTLC breach/resolve states to swap deposit/settlement states.
package swapfsm

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

func invalidTransition(s *models.Swap, to models.SwapStatus) error {
	return errkind.NewInvalidTransition(string(s.Status), string(to))
}

// UserDepositDetected records a sighting of the user's deposit (possibly
// unconfirmed) while the swap is WaitingUserDepositInitiated, replacing any
// earlier record; Status is left unchanged. spec.md §4.5 drives actual status advancement through
// UserDepositConfirmed once confirmations clear the threshold.
func UserDepositDetected(s *models.Swap, txHash string, amount *uint256.Int, detectedAt time.Time) error {
	if s.Status != models.StatusWaitingUserDepositInitiated {
		return invalidTransition(s, models.StatusWaitingUserDepositInitiated)
	}
	s.UserDepositStatus = &models.DepositStatus{
		TxHash:      txHash,
		Amount:      amount,
		DetectedAt:  detectedAt,
		LastChecked: detectedAt,
	}
	s.UpdatedAt = detectedAt
	return nil
}

// UpdateUserDepositConfirmations refreshes the observed confirmation depth
// without changing Status.
func UpdateUserDepositConfirmations(s *models.Swap, confirmations uint64, checkedAt time.Time) error {
	if s.UserDepositStatus == nil {
		return errkind.ErrMissingData
	}
	s.UserDepositStatus.Confirmations = confirmations
	s.UserDepositStatus.LastChecked = checkedAt
	s.UpdatedAt = checkedAt
	return nil
}

// UserDepositConfirmed transitions WaitingUserDepositInitiated ->
// WaitingUserDepositConfirmed once the deposit has cleared the chain
// adapter's minimum-confirmations threshold.
func UserDepositConfirmed(s *models.Swap, now time.Time) error {
	if s.Status != models.StatusWaitingUserDepositInitiated {
		return invalidTransition(s, models.StatusWaitingUserDepositConfirmed)
	}
	if s.UserDepositStatus == nil {
		return errkind.ErrMissingData
	}
	s.Status = models.StatusWaitingUserDepositConfirmed
	s.UpdatedAt = now
	return nil
}

// MMDepositDetected records the MM's deposit sighting. It requires the
// embedded nonce on the observed transfer to match the swap's MMNonce
// (spec.md §4.5 — "nonce check"), and only fires once the user side has
// already confirmed.
func MMDepositDetected(s *models.Swap, txHash string, amount *uint256.Int, observedNonce [16]byte, detectedAt time.Time) error {
	if s.Status != models.StatusWaitingUserDepositConfirmed {
		return invalidTransition(s, models.StatusWaitingMMDepositInitiated)
	}
	if observedNonce != s.MMNonce {
		return errkind.ErrMarketMakerMismatch
	}
	s.MMDepositStatus = &models.DepositStatus{
		TxHash:      txHash,
		Amount:      amount,
		DetectedAt:  detectedAt,
		LastChecked: detectedAt,
	}
	s.Status = models.StatusWaitingMMDepositInitiated
	s.UpdatedAt = detectedAt
	return nil
}

// UpdateMMDepositConfirmations refreshes the observed MM-deposit
// confirmation depth without changing Status.
func UpdateMMDepositConfirmations(s *models.Swap, confirmations uint64, checkedAt time.Time) error {
	if s.MMDepositStatus == nil {
		return errkind.ErrMissingData
	}
	s.MMDepositStatus.Confirmations = confirmations
	s.MMDepositStatus.LastChecked = checkedAt
	s.UpdatedAt = checkedAt
	return nil
}

// MMDepositConfirmed transitions WaitingMMDepositInitiated ->
// WaitingMMDepositConfirmed once the MM's deposit has cleared the
// confirmation threshold. This is the point at which it becomes safe to
// release the user's deposit-wallet private key to the MM.
func MMDepositConfirmed(s *models.Swap, now time.Time) error {
	if s.Status != models.StatusWaitingMMDepositInitiated {
		return invalidTransition(s, models.StatusWaitingMMDepositConfirmed)
	}
	if s.MMDepositStatus == nil {
		return errkind.ErrMissingData
	}
	s.Status = models.StatusWaitingMMDepositConfirmed
	s.UpdatedAt = now
	return nil
}

// MarkPrivateKeySent records that the user-deposit wallet's private key was
// handed to the MM. Legal only once the MM's deposit has confirmed.
func MarkPrivateKeySent(s *models.Swap, now time.Time) error {
	if s.Status != models.StatusWaitingMMDepositConfirmed {
		return invalidTransition(s, s.Status)
	}
	s.MMPrivateKeySentAt = &now
	s.UpdatedAt = now
	return nil
}

// MarkSettled transitions WaitingMMDepositConfirmed -> Settled, recording
// txHash as the settlement transaction (the monitor passes the MM deposit
// tx hash, right after releasing the private key).
func MarkSettled(s *models.Swap, txHash string, fee *uint256.Int, now time.Time) error {
	if s.Status != models.StatusWaitingMMDepositConfirmed {
		return invalidTransition(s, models.StatusSettled)
	}
	if s.SettlementStatus == nil {
		s.SettlementStatus = &models.SettlementStatus{TxHash: txHash, BroadcastAt: now}
	}
	s.SettlementStatus.Fee = fee
	s.SettlementStatus.CompletedAt = &now
	s.Status = models.StatusSettled
	s.UpdatedAt = now
	return nil
}

// initiateUserRefundFrom are the statuses from which InitiateUserRefund is
// legal: the user deposit may or may not have arrived yet, and the MM
// deposit has not yet confirmed (spec.md §4.5).
var initiateUserRefundFrom = map[models.SwapStatus]bool{
	models.StatusWaitingUserDepositInitiated: true,
	models.StatusWaitingUserDepositConfirmed: true,
	models.StatusWaitingMMDepositInitiated:   true,
}

// InitiateUserRefund transitions to RefundingUser: the user's deposit is
// returned because the MM never delivered theirs. Legal only from the
// statuses preceding MM-deposit confirmation (spec.md §4.5).
func InitiateUserRefund(s *models.Swap, reason string, now time.Time) error {
	if !initiateUserRefundFrom[s.Status] {
		return invalidTransition(s, models.StatusRefundingUser)
	}
	if s.UserDepositStatus == nil {
		return errkind.ErrMissingData
	}
	s.Status = models.StatusRefundingUser
	s.FailureReason = &reason
	s.FailureAt = &now
	s.UpdatedAt = now
	return nil
}

// initiateBothRefundsFrom are the statuses from which InitiateBothRefunds is
// legal: both deposits have arrived, and settlement either hasn't happened
// yet or must be unwound before payout (spec.md §4.5).
var initiateBothRefundsFrom = map[models.SwapStatus]bool{
	models.StatusWaitingMMDepositConfirmed: true,
	models.StatusSettled:                   true,
}

// InitiateBothRefunds transitions to RefundingBoth: both sides deposited but
// settlement cannot proceed (e.g. an irrecoverable chain error), so both
// deposits are returned to their originators.
func InitiateBothRefunds(s *models.Swap, reason string, now time.Time) error {
	if !initiateBothRefundsFrom[s.Status] {
		return invalidTransition(s, models.StatusRefundingBoth)
	}
	if s.UserDepositStatus == nil || s.MMDepositStatus == nil {
		return errkind.ErrMissingData
	}
	s.Status = models.StatusRefundingBoth
	s.FailureReason = &reason
	s.FailureAt = &now
	s.UpdatedAt = now
	return nil
}

// MarkFailed transitions to Failed for swaps that never received any
// deposit before timing out (spec.md §4.5 — the no-deposit timeout branch).
func MarkFailed(s *models.Swap, reason string, now time.Time) error {
	if s.Status.Terminal() {
		return invalidTransition(s, models.StatusFailed)
	}
	s.Status = models.StatusFailed
	s.FailureReason = &reason
	s.FailureAt = &now
	s.UpdatedAt = now
	return nil
}
