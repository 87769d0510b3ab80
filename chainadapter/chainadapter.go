// Package chainadapter defines the polymorphic chain-capability interface
// (spec.md §4.2, C2) that the Bitcoin and EVM variants implement, plus the
// registry that looks them up by chain at a single dynamic-dispatch
// boundary (spec.md §9 — "avoid virtual inheritance; tagged union or an
// interface with dynamic dispatch only at the registry lookup boundary").
//
// Grounded on Jason-chen-taiwan-arcSignv2/src/chainadapter/adapter.go's
// ChainAdapter interface shape, narrowed to the operations spec.md
// actually requires of the coordinator (no Build/Sign/Broadcast here —
// those belong to walletkey and evmbroadcast).
package chainadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

// TxStatus is the result of a GetTxStatus call: either the transaction is
// not yet visible, or it is confirmed with a given depth. Mempool-only
// (0 confirmations) counts as NotFound for flow purposes (spec.md §4.2).
type TxStatus struct {
	Found         bool
	Confirmations uint64
}

// NotFound is the zero-value TxStatus.
var NotFound = TxStatus{}

// Confirmed builds a found TxStatus with the given depth. A depth of zero
// is normalized to NotFound per spec.md §4.2.
func Confirmed(confirmations uint64) TxStatus {
	if confirmations == 0 {
		return NotFound
	}
	return TxStatus{Found: true, Confirmations: confirmations}
}

// TransferInfo describes a matched incoming transfer, as returned by
// SearchForTransfer.
type TransferInfo struct {
	TxHash        string
	Amount        *uint256.Int
	DetectedAt    time.Time
	Confirmations uint64
}

// SearchRequest parametrizes SearchForTransfer (spec.md §4.2).
type SearchRequest struct {
	ToAddress      string
	Expected       models.Lot
	EmbeddedNonce  *[16]byte // nil means "no nonce constraint"
	FromBlock      *uint64
}

// Adapter is the per-chain capability set spec.md §4.2 requires of the
// coordinator. Implementations MUST re-validate any untrusted indexer hint
// against an authoritative node RPC before returning it (spec.md §4.2
// contract): confirmations must not exceed the node's view, the nonce must
// actually be present in the raw tx bytes, and the amount/recipient must
// match a real output.
type Adapter interface {
	// ChainID returns the chain this adapter serves.
	ChainID() models.Chain

	// MinimumConfirmations is the number of confirmations required before
	// a deposit on this chain is considered final (spec.md §4.2
	// constants: Bitcoin 2, EVM 4).
	MinimumConfirmations() uint64

	// EstimatedBlockTime is this chain's average block interval (spec.md
	// §4.2 constants: Bitcoin 600s, EVM 12s).
	EstimatedBlockTime() time.Duration

	// ValidateAddress reports whether addr is a well-formed address on
	// this chain.
	ValidateAddress(addr string) bool

	// GetTxStatus returns the confirmation status of txHash.
	GetTxStatus(ctx context.Context, txHash string) (TxStatus, error)

	// SearchForTransfer returns the most-confirmed transfer matching req,
	// or nil if none is found. See the Adapter doc comment for the
	// re-validation contract.
	SearchForTransfer(ctx context.Context, req SearchRequest) (*TransferInfo, error)
}

// Registry resolves an Adapter by chain. It is the only place dynamic
// dispatch across chains happens (spec.md §9).
type Registry struct {
	adapters map[models.Chain]Adapter
}

// NewRegistry builds a Registry from the given adapters, keyed by their own
// ChainID().
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Chain]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ChainID()] = a
	}
	return r
}

// Get returns the adapter for chain, or ErrChainNotSupported.
func (r *Registry) Get(chain models.Chain) (Adapter, error) {
	a, ok := r.adapters[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errkind.ErrChainNotSupported, chain)
	}
	return a, nil
}

// MinInterval returns the minimum EstimatedBlockTime across all registered
// adapters — the tick interval the monitoring loop (C7) uses (spec.md
// §4.7: "Interval = min of estimated_block_time across registered
// chains").
func (r *Registry) MinInterval() time.Duration {
	var min time.Duration
	for _, a := range r.adapters {
		bt := a.EstimatedBlockTime()
		if min == 0 || bt < min {
			min = bt
		}
	}
	if min == 0 {
		min = 12 * time.Second
	}
	return min
}
