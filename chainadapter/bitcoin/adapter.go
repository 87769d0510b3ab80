package bitcoin

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/holiman/uint256"

	"github.com/otcnet/coordinator/chainadapter"
	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

const (
	minConfirmations   = 2
	estimatedBlockTime = 600 * time.Second
)

// Adapter implements chainadapter.Adapter for Bitcoin, combining an
// authoritative NodeRPC with an untrusted EsploraClient hint source
// (spec.md §4.2).
type Adapter struct {
	rpc     NodeRPC
	esplora *EsploraClient
	net     *chaincfg.Params
}

// New builds a Bitcoin chain adapter.
func New(rpc NodeRPC, esplora *EsploraClient, net *chaincfg.Params) *Adapter {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	return &Adapter{rpc: rpc, esplora: esplora, net: net}
}

var _ chainadapter.Adapter = (*Adapter)(nil)

// ChainID implements chainadapter.Adapter.
func (a *Adapter) ChainID() models.Chain { return models.ChainBitcoin }

// MinimumConfirmations implements chainadapter.Adapter.
func (a *Adapter) MinimumConfirmations() uint64 { return minConfirmations }

// EstimatedBlockTime implements chainadapter.Adapter.
func (a *Adapter) EstimatedBlockTime() time.Duration { return estimatedBlockTime }

// ValidateAddress implements chainadapter.Adapter.
func (a *Adapter) ValidateAddress(addr string) bool {
	decoded, err := btcutil.DecodeAddress(addr, a.net)
	if err != nil {
		return false
	}
	return decoded.IsForNet(a.net)
}

// GetTxStatus implements chainadapter.Adapter.
func (a *Adapter) GetTxStatus(ctx context.Context, txHash string) (chainadapter.TxStatus, error) {
	h, err := chainhash.NewHashFromStr(txHash)
	if err != nil {
		return chainadapter.NotFound, fmt.Errorf("%w: %s", errkind.ErrInvalidData, err)
	}
	tx, err := a.rpc.GetRawTransactionVerbose(ctx, h)
	if err != nil {
		// Not found is not a chain-RPC failure worth retrying specially;
		// the caller treats it as "keep waiting".
		return chainadapter.NotFound, nil
	}
	return chainadapter.Confirmed(uint64(tx.Confirmations)), nil
}

// SearchForTransfer implements chainadapter.Adapter. It asks Esplora for a
// hint, then fully re-validates the hint against the node RPC before
// trusting any of its fields, per spec.md §4.2's contract and
// original_source/crates/otc-chains/src/bitcoin.rs's search_for_transfer.
func (a *Adapter) SearchForTransfer(ctx context.Context, req chainadapter.SearchRequest) (*chainadapter.TransferInfo, error) {
	if req.Expected.Currency.Chain != models.ChainBitcoin || req.Expected.Currency.Token.Kind != models.TokenNative {
		return nil, fmt.Errorf("%w: bitcoin adapter only supports native BTC", errkind.ErrInvalidCurrency)
	}

	hint, err := a.transferHint(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: esplora hint: %s", errkind.ErrChainRPC, err)
	}
	if hint == nil {
		return nil, nil
	}

	h, err := chainhash.NewHashFromStr(hint.TxHash)
	if err != nil {
		return nil, nil
	}
	tx, err := a.rpc.GetRawTransactionVerbose(ctx, h)
	if err != nil {
		// The node doesn't know about this tx (yet, or at all) — don't
		// trust the hint.
		return nil, nil
	}

	// The hint must not claim more confirmations than the authoritative
	// node sees; an outdated (lower) hint is fine.
	if hint.Confirmations > uint64(tx.Confirmations) {
		return nil, nil
	}

	if req.EmbeddedNonce != nil {
		nonceHex := hex.EncodeToString(req.EmbeddedNonce[:])
		if !strings.Contains(tx.Hex, nonceHex) {
			return nil, nil
		}
	}

	if !a.hasValidOutput(tx, req.ToAddress, req.Expected.Amount) {
		return nil, nil
	}

	return &chainadapter.TransferInfo{
		TxHash:        hint.TxHash,
		Amount:        hint.Amount,
		DetectedAt:    hint.DetectedAt,
		Confirmations: uint64(tx.Confirmations),
	}, nil
}

func (a *Adapter) hasValidOutput(tx *btcjson.TxRawResult, toAddress string, minAmount *uint256.Int) bool {
	minSats, _ := minAmount.Uint64()
	for _, out := range tx.Vout {
		scriptBytes, err := hex.DecodeString(out.ScriptPubKey.Hex)
		if err != nil {
			continue
		}
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(scriptBytes, a.net)
		if err != nil || len(addrs) == 0 {
			continue
		}
		if addrs[0].EncodeAddress() != toAddress {
			continue
		}
		valueSats, err := btcutil.NewAmount(out.Value)
		if err != nil {
			continue
		}
		if uint64(valueSats) >= minSats {
			return true
		}
	}
	return false
}
