// Package evmbroadcast implements the single-writer, nonce-safe EVM
// transaction broadcaster (spec.md §4.3, C3): a bounded queue drained by
// exactly one goroutine so that nonce assignment never races, with
// automatic gas-bump retry on nonce-too-low/underpriced rejections.
// Grounded on degeri-dcrlnd's sweeper (sweep.TxPublisher single-writer
// broadcast loop) and htlcswitch's bounded mailbox queue sizing, using
// go-ethereum's ethclient/types for transaction construction exactly as
// Jason-chen-taiwan-arcSignv2's ethereum broadcaster does.
package evmbroadcast

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/metrics"
)

// queueCapacity bounds the number of outstanding broadcast requests (spec.md
// §4.3 — "bounded queue, capacity ~128").
const queueCapacity = 128

// maxGasBumpRetries caps how many times a single request is resubmitted
// with a bumped gas price before it is classified as permanently failed
// (spec.md §4.3).
const maxGasBumpRetries = 10

// gasBumpNumerator/gasBumpDenominator implement the +10% gas bump spec.md
// §4.3 specifies on each retry.
const (
	gasBumpNumerator   = 110
	gasBumpDenominator = 100
)

// Client is the subset of an Ethereum node's RPC surface the broadcaster
// needs to simulate, send, and confirm a transaction.
type Client interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Request is a single outgoing transfer to broadcast.
type Request struct {
	ID       string
	Signer   types.Signer
	From     common.Address
	PrivKey  Signer
	To       common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	ChainID  *big.Int
}

// Signer produces an ECDSA signature over a transaction's signing hash. An
// interface so the broadcaster never needs the raw private key in scope
// outside walletkey.
type Signer interface {
	SignHash(hash []byte) ([]byte, error)
}

// Outcome reports the terminal state of a broadcast request, published on
// the broadcaster's status topic (spec.md §4.3 — "status-topic broadcast").
type Outcome struct {
	RequestID string
	TxHash    string
	Success   bool
	Err       error
}

// Broadcaster serializes all outgoing transactions for one EVM chain
// through a single consumer goroutine.
type Broadcaster struct {
	client Client
	log    slog.Logger

	queue chan Request

	subMu sync.Mutex
	subs  []chan Outcome

	stop chan struct{}
	done chan struct{}
}

// New builds a Broadcaster. Call Run to start its consumer loop.
func New(client Client, log slog.Logger) *Broadcaster {
	return &Broadcaster{
		client: client,
		log:    log,
		queue:  make(chan Request, queueCapacity),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Enqueue submits req for broadcast. It never blocks: a full queue is
// reported as ErrEnqueueFailed rather than applying backpressure, per
// spec.md §4.3.
func (b *Broadcaster) Enqueue(req Request) error {
	select {
	case b.queue <- req:
		metrics.BroadcastQueueDepth.Set(float64(len(b.queue)))
		return nil
	default:
		return fmt.Errorf("%w: broadcast queue full", errkind.ErrEnqueueFailed)
	}
}

// Subscribe returns a channel that receives every Outcome this broadcaster
// produces from now on.
func (b *Broadcaster) Subscribe() <-chan Outcome {
	ch := make(chan Outcome, 32)
	b.subMu.Lock()
	b.subs = append(b.subs, ch)
	b.subMu.Unlock()
	return ch
}

func (b *Broadcaster) publish(o Outcome) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- o:
		default:
		}
	}
}

// Run drains the queue on the calling goroutine until ctx is done. There
// must be exactly one Run call per Broadcaster — that single-goroutine
// invariant is what makes nonce assignment race-free.
func (b *Broadcaster) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stop:
			return
		case req := <-b.queue:
			metrics.BroadcastQueueDepth.Set(float64(len(b.queue)))
			outcome := b.process(ctx, req)
			if outcome.Success {
				metrics.BroadcastOutcomes.WithLabelValues("success").Inc()
			} else {
				metrics.BroadcastOutcomes.WithLabelValues("failure").Inc()
			}
			b.publish(outcome)
		}
	}
}

// Stop signals Run to return after the current request finishes.
func (b *Broadcaster) Stop() {
	close(b.stop)
	<-b.done
}

func (b *Broadcaster) process(ctx context.Context, req Request) Outcome {
	nonce, err := b.client.PendingNonceAt(ctx, req.From)
	if err != nil {
		return Outcome{RequestID: req.ID, Success: false, Err: fmt.Errorf("%w: %s", errkind.ErrChainRPC, err)}
	}

	gasPrice, err := b.client.SuggestGasPrice(ctx)
	if err != nil {
		return Outcome{RequestID: req.ID, Success: false, Err: fmt.Errorf("%w: %s", errkind.ErrChainRPC, err)}
	}

	var lastErr error
	for attempt := 0; attempt <= maxGasBumpRetries; attempt++ {
		tx := types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &req.To,
			Value:    req.Value,
			Gas:      req.GasLimit,
			GasPrice: gasPrice,
			Data:     req.Data,
		})

		signedTx, err := signTx(req.Signer, tx, req.PrivKey)
		if err != nil {
			return Outcome{RequestID: req.ID, Success: false, Err: fmt.Errorf("%w: sign: %s", errkind.ErrWalletDerivation, err)}
		}

		err = b.client.SendTransaction(ctx, signedTx)
		if err == nil {
			b.log.Debugf("evmbroadcast: sent %s nonce=%d attempt=%d", signedTx.Hash().Hex(), nonce, attempt)
			return Outcome{RequestID: req.ID, TxHash: signedTx.Hash().Hex(), Success: true}
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}
		if strings.Contains(strings.ToLower(err.Error()), "nonce too low") {
			fresh, nerr := b.client.PendingNonceAt(ctx, req.From)
			if nerr != nil {
				return Outcome{RequestID: req.ID, Success: false, Err: fmt.Errorf("%w: %s", errkind.ErrChainRPC, nerr)}
			}
			nonce = fresh
		}

		b.log.Warnf("evmbroadcast: retrying %s after %s (attempt %d)", req.ID, err, attempt)
		gasPrice = bumpGasPrice(gasPrice)
	}

	return Outcome{RequestID: req.ID, Success: false, Err: fmt.Errorf("%w: %s", errkind.ErrChainRPC, lastErr)}
}

func signTx(signer types.Signer, tx *types.Transaction, key Signer) (*types.Transaction, error) {
	h := signer.Hash(tx)
	sig, err := key.SignHash(h[:])
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(signer, sig)
}

func bumpGasPrice(price *big.Int) *big.Int {
	bumped := new(big.Int).Mul(price, big.NewInt(gasBumpNumerator))
	return bumped.Div(bumped, big.NewInt(gasBumpDenominator))
}

// isRetryable classifies node-rejection errors that a retry can resolve:
// stale nonce snapshots (the nonce is re-fetched before the retry) and
// underpriced replacements (resolved by the gas bump) (spec.md §4.3).
func isRetryable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "replacement transaction underpriced") ||
		strings.Contains(msg, "underpriced") ||
		errors.Is(err, errkind.ErrChainRPC)
}
