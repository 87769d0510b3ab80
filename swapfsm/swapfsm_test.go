package swapfsm

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

func newSwap() *models.Swap {
	return &models.Swap{
		ID:     uuid.New(),
		Status: models.StatusWaitingUserDepositInitiated,
		MMNonce: [16]byte{1, 2, 3},
	}
}

func TestFullHappyPath(t *testing.T) {
	s := newSwap()
	now := time.Now()
	amt := uint256.NewInt(1000)

	require.NoError(t, UserDepositDetected(s, "txuser", amt, now))
	require.NoError(t, UserDepositConfirmed(s, now))
	require.Equal(t, models.StatusWaitingUserDepositConfirmed, s.Status)

	require.NoError(t, MMDepositDetected(s, "txmm", amt, s.MMNonce, now))
	require.Equal(t, models.StatusWaitingMMDepositInitiated, s.Status)

	require.NoError(t, MMDepositConfirmed(s, now))
	require.NoError(t, MarkPrivateKeySent(s, now))
	require.NoError(t, MarkSettled(s, "txsettle", uint256.NewInt(5), now))
	require.Equal(t, models.StatusSettled, s.Status)
	require.True(t, s.Status.Terminal())
}

func TestMMDepositRejectsNonceMismatch(t *testing.T) {
	s := newSwap()
	now := time.Now()
	require.NoError(t, UserDepositDetected(s, "txuser", uint256.NewInt(1), now))
	require.NoError(t, UserDepositConfirmed(s, now))

	err := MMDepositDetected(s, "txmm", uint256.NewInt(1), [16]byte{9, 9, 9}, now)
	require.ErrorIs(t, err, errkind.ErrMarketMakerMismatch)
	require.Equal(t, models.StatusWaitingUserDepositConfirmed, s.Status)
}

func TestIllegalTransitionReturnsInvalidTransition(t *testing.T) {
	s := newSwap()
	err := MMDepositConfirmed(s, time.Now())
	require.Error(t, err)
	require.True(t, errors.Is(err, errkind.ErrInvalidTransition))
}

func TestTerminalStatusRejectsFurtherTransitions(t *testing.T) {
	s := newSwap()
	now := time.Now()
	require.NoError(t, MarkFailed(s, "timeout", now))
	require.True(t, s.Status.Terminal())

	err := MarkFailed(s, "again", now)
	require.ErrorIs(t, err, errkind.ErrInvalidTransition)
}

func TestInitiateUserRefundRequiresDeposit(t *testing.T) {
	s := newSwap()
	err := InitiateUserRefund(s, "mm never deposited", time.Now())
	require.ErrorIs(t, err, errkind.ErrMissingData)
}

func TestInitiateUserRefundRejectedOnceMMDepositConfirmed(t *testing.T) {
	s := newSwap()
	now := time.Now()
	amt := uint256.NewInt(1000)
	require.NoError(t, UserDepositDetected(s, "txuser", amt, now))
	require.NoError(t, UserDepositConfirmed(s, now))
	require.NoError(t, MMDepositDetected(s, "txmm", amt, s.MMNonce, now))
	require.NoError(t, MMDepositConfirmed(s, now))

	err := InitiateUserRefund(s, "too late", now)
	require.ErrorIs(t, err, errkind.ErrInvalidTransition)
	require.Equal(t, models.StatusWaitingMMDepositConfirmed, s.Status)
}

func TestInitiateBothRefundsRejectedBeforeMMDeposit(t *testing.T) {
	s := newSwap()
	now := time.Now()
	require.NoError(t, UserDepositDetected(s, "txuser", uint256.NewInt(1000), now))

	err := InitiateBothRefunds(s, "too early", now)
	require.ErrorIs(t, err, errkind.ErrInvalidTransition)
	require.Equal(t, models.StatusWaitingUserDepositInitiated, s.Status)
}

func TestInitiateBothRefundsAllowedFromSettledPrePayout(t *testing.T) {
	s := newSwap()
	now := time.Now()
	amt := uint256.NewInt(1000)
	require.NoError(t, UserDepositDetected(s, "txuser", amt, now))
	require.NoError(t, UserDepositConfirmed(s, now))
	require.NoError(t, MMDepositDetected(s, "txmm", amt, s.MMNonce, now))
	require.NoError(t, MMDepositConfirmed(s, now))
	require.NoError(t, MarkSettled(s, "txsettle", uint256.NewInt(5), now))

	require.NoError(t, InitiateBothRefunds(s, "payout failed", now))
	require.Equal(t, models.StatusRefundingBoth, s.Status)
}
