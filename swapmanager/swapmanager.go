// Package swapmanager implements swap creation and read projections
// (spec.md §4.8, C8): validating a quote is still live and MM-owned,
// confirming the MM still honors it, deriving the user's deposit wallet,
// and persisting the new swap. Grounded on degeri-dcrlnd's
// fundingmanager (the original's "reserve resources, get peer sign-off,
// then commit" funding-request flow), adapted from channel funding to
// swap creation.
package swapmanager

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/google/uuid"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/models"
	"github.com/otcnet/coordinator/walletkey"
)

// QuoteRepo is the persistence surface swapmanager needs for quotes.
type QuoteRepo interface {
	Get(ctx context.Context, id uuid.UUID) (models.Quote, error)
}

// SwapRepo is the persistence surface swapmanager needs for swaps.
type SwapRepo interface {
	Insert(ctx context.Context, s models.Swap) error
	Get(ctx context.Context, id uuid.UUID) (models.Swap, error)
}

// Manager implements swap creation (spec.md §4.8).
type Manager struct {
	quotes    QuoteRepo
	swaps     SwapRepo
	registry  *mmregistry.Registry
	masterKey []byte
	net       *chaincfg.Params
}

// New builds a Manager. masterKey is the root key-derivation secret
// (spec.md §4.1 — OTC_MASTER_KEY); it is held only long enough to derive
// per-swap wallets and is never persisted.
func New(quotes QuoteRepo, swaps SwapRepo, registry *mmregistry.Registry, masterKey []byte, net *chaincfg.Params) *Manager {
	return &Manager{quotes: quotes, swaps: swaps, registry: registry, masterKey: masterKey, net: net}
}

// CreateSwapRequest is the input to CreateSwap.
type CreateSwapRequest struct {
	QuoteID                uuid.UUID
	CallerMarketMakerID    uuid.UUID
	CallerMarketMakerName  string
	UserDestinationAddress string
	UserRefundAddress      string
}

// CreateSwap implements spec.md §4.8's create_swap flow: looks up the
// quote, checks it hasn't expired and belongs to the calling MM, asks the
// MM to reconfirm it over its live session, then derives a fresh deposit
// wallet and persists the swap.
func (m *Manager) CreateSwap(ctx context.Context, req CreateSwapRequest) (*models.Swap, error) {
	quote, err := m.quotes.Get(ctx, req.QuoteID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if quote.Expired(now) {
		return nil, errkind.ErrQuoteExpired
	}
	if quote.MarketMakerID != req.CallerMarketMakerID {
		return nil, errkind.ErrMarketMakerMismatch
	}
	if !m.registry.IsConnected(req.CallerMarketMakerName) {
		return nil, errkind.ErrMarketMakerNotConnected
	}

	resp, err := m.registry.ValidateQuote(ctx, req.CallerMarketMakerName, mmregistry.ValidateQuotePayload{
		Quote:       quote,
		ContentHash: fmt.Sprintf("%x", quote.ContentHash()),
	})
	if err != nil {
		return nil, err
	}
	if !resp.Accepted {
		return nil, errkind.ErrMarketMakerRejected
	}

	var salt [32]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("%w: salt: %s", errkind.ErrWalletDerivation, err)
	}
	var nonce [16]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: nonce: %s", errkind.ErrWalletDerivation, err)
	}

	wallet, err := walletkey.Derive(m.masterKey, salt, quote.From.Currency.Chain, m.net)
	if err != nil {
		return nil, err
	}
	defer wallet.Close()

	swap := models.Swap{
		ID:                     uuid.New(),
		MarketMakerID:          quote.MarketMakerID,
		Quote:                  quote,
		UserDepositSalt:        salt,
		UserDepositAddress:     wallet.Address(),
		MMNonce:                nonce,
		UserDestinationAddress: req.UserDestinationAddress,
		UserRefundAddress:      req.UserRefundAddress,
		Status:                 models.StatusWaitingUserDepositInitiated,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if err := m.swaps.Insert(ctx, swap); err != nil {
		return nil, err
	}

	notifiedAt := time.Now()
	if err := m.registry.NotifySwapCreated(req.CallerMarketMakerName, mmregistry.SwapCreatedPayload{
		SwapID:             swap.ID,
		UserDepositAddress: swap.UserDepositAddress,
		MMNonce:            swap.NonceHex(),
	}); err == nil {
		swap.MMNotifiedAt = &notifiedAt
	}

	return &swap, nil
}

// GetSwap returns the read projection of a swap by ID (spec.md §4.8 —
// get_swap). models.Swap's json tags already omit the fields sensitive
// enough to exclude from this projection (UserDepositSalt, MMNonce).
func (m *Manager) GetSwap(ctx context.Context, id uuid.UUID) (*models.Swap, error) {
	s, err := m.swaps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
