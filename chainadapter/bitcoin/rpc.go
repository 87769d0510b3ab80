// Package bitcoin implements the Bitcoin chain adapter (spec.md §4.2),
// combining an authoritative Bitcoin Core RPC connection with an untrusted
// Esplora hinting client, grounded on
// original_source/crates/otc-chains/src/bitcoin.rs and
// Jason-chen-taiwan-arcSignv2/src/chainadapter/bitcoin.
package bitcoin

import (
	"context"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// NodeRPC is the subset of Bitcoin Core's RPC surface the adapter needs.
// Narrowed to an interface so tests can fake it without a live node,
// mirroring how arcsign's rpc.Client wraps btcd's rpcclient behind an
// interface for its mock_client.go test double.
type NodeRPC interface {
	GetRawTransactionVerbose(ctx context.Context, txid *chainhash.Hash) (*btcjson.TxRawResult, error)
	SendRawTransaction(ctx context.Context, txHex string) (*chainhash.Hash, error)
	GetBlockCount(ctx context.Context) (int64, error)
}
