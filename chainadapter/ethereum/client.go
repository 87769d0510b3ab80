// Package ethereum implements the EVM chain adapter (spec.md §4.2),
// combining an authoritative go-ethereum JSON-RPC connection with an
// untrusted token-transfer indexer hint, grounded on
// original_source/crates/otc-chains/src/ethereum.rs and
// Jason-chen-taiwan-arcSignv2/src/chainadapter/ethereum.
package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// NodeRPC is the subset of an Ethereum JSON-RPC node's surface the adapter
// needs, narrowed to an interface (mirroring chainadapter/bitcoin.NodeRPC)
// so tests can fake it without a live node. Its method set matches
// *ethclient.Client so that type can be wired in directly.
type NodeRPC interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// DialNodeRPC connects to an Ethereum JSON-RPC endpoint and returns it as a
// NodeRPC; *ethclient.Client's method set already satisfies the interface.
func DialNodeRPC(ctx context.Context, url string) (NodeRPC, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ethereum: dial %s: %w", url, err)
	}
	return c, nil
}
