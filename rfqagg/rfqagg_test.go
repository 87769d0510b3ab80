package rfqagg

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/otcnet/coordinator/models"
)

func quoteWithAmounts(from, to uint64) models.Quote {
	return models.Quote{
		From: models.Lot{Amount: uint256.NewInt(from)},
		To:   models.Lot{Amount: uint256.NewInt(to)},
	}
}

func TestSelectWinnerExactInputPicksMostOutput(t *testing.T) {
	offers := []offer{
		{quote: quoteWithAmounts(100, 90), sequence: 0},
		{quote: quoteWithAmounts(100, 95), sequence: 1},
		{quote: quoteWithAmounts(100, 92), sequence: 2},
	}
	winner := selectWinner(offers, ExactInput)
	require.Equal(t, uint64(95), winner.To.Amount.Uint64())
}

func TestSelectWinnerExactOutputPicksLeastInput(t *testing.T) {
	offers := []offer{
		{quote: quoteWithAmounts(110, 100), sequence: 0},
		{quote: quoteWithAmounts(105, 100), sequence: 1},
		{quote: quoteWithAmounts(108, 100), sequence: 2},
	}
	winner := selectWinner(offers, ExactOutput)
	require.Equal(t, uint64(105), winner.From.Amount.Uint64())
}

func TestSelectWinnerTiesGoToEarliestArrival(t *testing.T) {
	offers := []offer{
		{quote: quoteWithAmounts(100, 95), sequence: 0},
		{quote: quoteWithAmounts(100, 95), sequence: 1},
	}
	winner := selectWinner(offers, ExactInput)
	require.Equal(t, offers[0].quote.From.Amount.Uint64(), winner.From.Amount.Uint64())
	// Both quotes are amount-identical; the earliest sequence must be the
	// one actually selected, not merely amount-equal.
	best := offers[0]
	for _, o := range offers[1:] {
		require.False(t, better(o, best, ExactInput))
	}
}

func TestOfferDroppedAfterUnsubscribe(t *testing.T) {
	a := New(nil)
	reqID := quoteWithAmounts(1, 1).MarketMakerID // arbitrary uuid.Nil, fine as a key
	inbox := a.subscribe(reqID)
	a.unsubscribe(reqID)

	// Delivering after unsubscribe must not panic and must not be
	// observable on the now-closed channel.
	a.Offer(reqID, quoteWithAmounts(1, 1))
	_, ok := <-inbox
	require.False(t, ok)
}
