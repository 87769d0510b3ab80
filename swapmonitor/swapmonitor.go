// Package swapmonitor implements the periodic monitoring loop (spec.md
// §4.7, C7) that drives every live swap's state machine forward: polling
// chain adapters for deposit sightings and confirmation depth, advancing
// swapfsm transitions, and failing/refunding swaps that blow past their
// quote's expiry. Grounded on degeri-dcrlnd's chainntnfs notification
// dispatcher (a periodic scan driving state transitions off confirmation
// depth) adapted from a single-chain block-notification fanout to a
// multi-chain polling loop.
package swapmonitor

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/slog"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/otcnet/coordinator/chainadapter"
	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/metrics"
	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/models"
	"github.com/otcnet/coordinator/otcauth"
	"github.com/otcnet/coordinator/swapfsm"
	"github.com/otcnet/coordinator/walletkey"
)

// maxConcurrentSwaps bounds how many swaps are processed in parallel within
// a single tick (spec.md §4.7 — "sequential per tick with optional bounded
// parallelism across distinct swaps").
const maxConcurrentSwaps = 8

// rpcPollRateLimit caps how many chain-RPC polls (GetTxStatus/
// SearchForTransfer calls, combined) the monitor issues per second across
// all swaps, so a backlog of live swaps can't hammer a node.
const rpcPollRateLimit = 50

// SwapRepo is the persistence surface the monitor needs.
type SwapRepo interface {
	ListByStatus(ctx context.Context, status models.SwapStatus) ([]models.Swap, error)
	Transition(ctx context.Context, id uuid.UUID, mutate func(*models.Swap) error) (models.Swap, error)
}

// liveStatuses are the non-terminal statuses the monitor polls every tick.
var liveStatuses = []models.SwapStatus{
	models.StatusWaitingUserDepositInitiated,
	models.StatusWaitingUserDepositConfirmed,
	models.StatusWaitingMMDepositInitiated,
	models.StatusWaitingMMDepositConfirmed,
}

// Monitor drives the tick loop.
type Monitor struct {
	swaps     SwapRepo
	chains    *chainadapter.Registry
	registry  *mmregistry.Registry
	whitelist *otcauth.Whitelist
	masterKey []byte
	net       *chaincfg.Params
	log       slog.Logger

	rpcLimiter *rate.Limiter
}

// New builds a Monitor. The tick interval is chains.MinInterval() (spec.md
// §4.7 — "interval = min of estimated_block_time across registered
// chains"). masterKey and net are only ever used to re-derive a swap's
// user-deposit wallet at the moment its private key must be handed to the
// MM (spec.md §4.1, §4.7).
func New(swaps SwapRepo, chains *chainadapter.Registry, registry *mmregistry.Registry, whitelist *otcauth.Whitelist, masterKey []byte, net *chaincfg.Params, log slog.Logger) *Monitor {
	return &Monitor{
		swaps:      swaps,
		chains:     chains,
		registry:   registry,
		whitelist:  whitelist,
		masterKey:  masterKey,
		net:        net,
		log:        log,
		rpcLimiter: rate.NewLimiter(rate.Limit(rpcPollRateLimit), rpcPollRateLimit),
	}
}

// Run ticks until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.chains.MinInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.MonitorTickDuration.Observe(time.Since(start).Seconds()) }()

	var swaps []models.Swap
	for _, status := range liveStatuses {
		batch, err := m.swaps.ListByStatus(ctx, status)
		if err != nil {
			m.log.Errorf("swapmonitor: list %s: %v", status, err)
			continue
		}
		metrics.SwapsByStatus.WithLabelValues(string(status)).Set(float64(len(batch)))
		swaps = append(swaps, batch...)
	}
	if len(swaps) == 0 {
		return
	}

	sem := make(chan struct{}, maxConcurrentSwaps)
	var wg sync.WaitGroup
	for _, s := range swaps {
		s := s
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := m.processSwap(ctx, s); err != nil {
				m.log.Warnf("swapmonitor: swap %s: %v", s.ID, err)
			}
		}()
	}
	wg.Wait()
}

func (m *Monitor) processSwap(ctx context.Context, s models.Swap) error {
	now := time.Now()

	if now.After(s.TimeoutAt()) {
		return m.handleTimeout(ctx, s, now)
	}

	if err := m.rpcLimiter.Wait(ctx); err != nil {
		return err
	}

	switch s.Status {
	case models.StatusWaitingUserDepositInitiated:
		return m.pollUserDeposit(ctx, s, now)
	case models.StatusWaitingUserDepositConfirmed:
		return m.pollMMDeposit(ctx, s, now)
	case models.StatusWaitingMMDepositInitiated:
		return m.pollMMDepositConfirmations(ctx, s, now)
	case models.StatusWaitingMMDepositConfirmed:
		// mm_deposit_confirmed and settlement commit atomically inside
		// pollMMDepositConfirmations's Transition, so a swap never
		// persists here in practice; this case only guards against an
		// unexpected sighting.
		return nil
	}
	return nil
}

// handleTimeout fails or refunds a swap that has blown past its quote's
// expiry without reaching settlement (spec.md §4.7 timeout branch).
func (m *Monitor) handleTimeout(ctx context.Context, s models.Swap, now time.Time) error {
	_, err := m.swaps.Transition(ctx, s.ID, func(sw *models.Swap) error {
		switch {
		case sw.UserDepositStatus == nil:
			return swapfsm.MarkFailed(sw, "quote expired before user deposit arrived", now)
		case sw.MMDepositStatus == nil:
			return swapfsm.InitiateUserRefund(sw, "quote expired before mm deposit arrived", now)
		default:
			return swapfsm.InitiateBothRefunds(sw, "quote expired before settlement", now)
		}
	})
	return err
}

func (m *Monitor) pollUserDeposit(ctx context.Context, s models.Swap, now time.Time) error {
	adapter, err := m.chains.Get(s.Quote.From.Currency.Chain)
	if err != nil {
		return err
	}

	transfer, err := adapter.SearchForTransfer(ctx, chainadapter.SearchRequest{
		ToAddress: s.UserDepositAddress,
		Expected:  s.Quote.From,
	})
	if err != nil {
		return err
	}
	if transfer == nil {
		return nil
	}

	_, err = m.swaps.Transition(ctx, s.ID, func(sw *models.Swap) error {
		if err := swapfsm.UserDepositDetected(sw, transfer.TxHash, transfer.Amount, transfer.DetectedAt); err != nil {
			return err
		}
		if err := swapfsm.UpdateUserDepositConfirmations(sw, transfer.Confirmations, now); err != nil {
			return err
		}
		if transfer.Confirmations >= adapter.MinimumConfirmations() {
			return swapfsm.UserDepositConfirmed(sw, now)
		}
		return nil
	})
	return err
}

func (m *Monitor) pollMMDeposit(ctx context.Context, s models.Swap, now time.Time) error {
	adapter, err := m.chains.Get(s.Quote.To.Currency.Chain)
	if err != nil {
		return err
	}

	mmAddress := s.UserDestinationAddress
	nonce := s.MMNonce
	transfer, err := adapter.SearchForTransfer(ctx, chainadapter.SearchRequest{
		ToAddress:     mmAddress,
		Expected:      s.Quote.To,
		EmbeddedNonce: &nonce,
	})
	if err != nil {
		return err
	}
	if transfer == nil {
		return nil
	}

	_, err = m.swaps.Transition(ctx, s.ID, func(sw *models.Swap) error {
		return swapfsm.MMDepositDetected(sw, transfer.TxHash, transfer.Amount, sw.MMNonce, transfer.DetectedAt)
	})
	return err
}

func (m *Monitor) pollMMDepositConfirmations(ctx context.Context, s models.Swap, now time.Time) error {
	adapter, err := m.chains.Get(s.Quote.To.Currency.Chain)
	if err != nil {
		return err
	}
	if s.MMDepositStatus == nil {
		return nil
	}

	status, err := adapter.GetTxStatus(ctx, s.MMDepositStatus.TxHash)
	if err != nil {
		return err
	}
	if !status.Found {
		return nil
	}

	_, err = m.swaps.Transition(ctx, s.ID, func(sw *models.Swap) error {
		if err := swapfsm.UpdateMMDepositConfirmations(sw, status.Confirmations, now); err != nil {
			return err
		}
		if status.Confirmations < adapter.MinimumConfirmations() {
			return nil
		}
		if err := swapfsm.MMDepositConfirmed(sw, now); err != nil {
			return err
		}
		return m.settle(sw, now)
	})
	return err
}

// settle releases the user-deposit wallet's private key to the owning MM
// and records the settlement, once the MM's own deposit has confirmed
// (spec.md §4.7's WaitingMMDepositConfirmed branch). Called with sw already
// locked under the enclosing Transition.
func (m *Monitor) settle(sw *models.Swap, now time.Time) error {
	wallet, err := walletkey.Derive(m.masterKey, sw.UserDepositSalt, sw.Quote.From.Currency.Chain, m.net)
	if err != nil {
		return err
	}
	defer wallet.Close()

	privKey, err := wallet.PrivateKeyBytes()
	if err != nil {
		return err
	}

	mm, ok := m.whitelist.ByID(sw.MarketMakerID)
	if !ok {
		return errkind.ErrMarketMakerNotConnected
	}

	if err := m.registry.NotifyPrivateKeySent(mm.MarketMaker, mmregistry.PrivateKeySentPayload{
		SwapID:     sw.ID,
		PrivateKey: hex.EncodeToString(privKey),
	}); err != nil {
		return err
	}

	if err := swapfsm.MarkPrivateKeySent(sw, now); err != nil {
		return err
	}
	return swapfsm.MarkSettled(sw, sw.MMDepositStatus.TxHash, nil, now)
}
