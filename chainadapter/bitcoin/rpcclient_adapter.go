package bitcoin

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// RPCClient adapts a real *rpcclient.Client (btcd's Bitcoin Core RPC client,
// which predates context.Context) to the NodeRPC interface this package's
// Adapter depends on.
type RPCClient struct {
	client *rpcclient.Client
}

// NewRPCClient dials host using basic-auth credentials, disabling TLS
// (matching a local bitcoind over an SSH tunnel or docker-compose network,
// the common coordinator deployment topology).
func NewRPCClient(host, user, pass string) (*RPCClient, error) {
	cfg := &rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	c, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("bitcoin: dial rpc: %w", err)
	}
	return &RPCClient{client: c}, nil
}

func (r *RPCClient) GetRawTransactionVerbose(_ context.Context, txid *chainhash.Hash) (*btcjson.TxRawResult, error) {
	return r.client.GetRawTransactionVerbose(txid)
}

func (r *RPCClient) SendRawTransaction(_ context.Context, txHex string) (*chainhash.Hash, error) {
	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return nil, fmt.Errorf("bitcoin: decode raw tx: %w", err)
	}
	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("bitcoin: deserialize raw tx: %w", err)
	}
	return r.client.SendRawTransaction(&tx, false)
}

func (r *RPCClient) GetBlockCount(_ context.Context) (int64, error) {
	return r.client.GetBlockCount()
}

// Shutdown releases the underlying RPC connection.
func (r *RPCClient) Shutdown() { r.client.Shutdown() }
