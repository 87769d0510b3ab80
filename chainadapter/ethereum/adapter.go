package ethereum

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/otcnet/coordinator/chainadapter"
	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

const (
	minConfirmations   = 4
	estimatedBlockTime = 12 * time.Second
)

// Adapter implements chainadapter.Adapter for EVM chains, combining an
// authoritative NodeRPC with an untrusted Indexer hint source (spec.md
// §4.2).
type Adapter struct {
	rpc     NodeRPC
	indexer Indexer
}

// New builds an EVM chain adapter.
func New(rpc NodeRPC, indexer Indexer) *Adapter {
	return &Adapter{rpc: rpc, indexer: indexer}
}

var _ chainadapter.Adapter = (*Adapter)(nil)

// ChainID implements chainadapter.Adapter.
func (a *Adapter) ChainID() models.Chain { return models.ChainEthereum }

// MinimumConfirmations implements chainadapter.Adapter.
func (a *Adapter) MinimumConfirmations() uint64 { return minConfirmations }

// EstimatedBlockTime implements chainadapter.Adapter.
func (a *Adapter) EstimatedBlockTime() time.Duration { return estimatedBlockTime }

// ValidateAddress implements chainadapter.Adapter.
func (a *Adapter) ValidateAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

// GetTxStatus implements chainadapter.Adapter.
func (a *Adapter) GetTxStatus(ctx context.Context, txHash string) (chainadapter.TxStatus, error) {
	if !common.IsHexAddress(txHash) && len(txHash) != 66 {
		return chainadapter.NotFound, fmt.Errorf("%w: %s", errkind.ErrInvalidData, txHash)
	}
	receipt, err := a.rpc.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return chainadapter.NotFound, nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return chainadapter.NotFound, nil
	}
	tip, err := a.rpc.BlockNumber(ctx)
	if err != nil {
		return chainadapter.NotFound, fmt.Errorf("%w: %s", errkind.ErrChainRPC, err)
	}
	if tip < receipt.BlockNumber.Uint64() {
		return chainadapter.NotFound, nil
	}
	confirmations := tip - receipt.BlockNumber.Uint64() + 1
	return chainadapter.Confirmed(confirmations), nil
}

// SearchForTransfer implements chainadapter.Adapter. It asks the indexer for
// a hint, then fully re-validates against the node RPC — receipt success,
// confirmation depth, and (if requested) the embedded nonce present in the
// raw transaction input — before trusting any of it, per spec.md §4.2 and
// original_source/crates/otc-chains/src/ethereum.rs's search_for_transfer.
func (a *Adapter) SearchForTransfer(ctx context.Context, req chainadapter.SearchRequest) (*chainadapter.TransferInfo, error) {
	if req.Expected.Currency.Chain != models.ChainEthereum {
		return nil, fmt.Errorf("%w: ethereum adapter only supports ethereum currencies", errkind.ErrInvalidCurrency)
	}

	tokenAddress := ""
	if req.Expected.Currency.Token.Kind == models.TokenAddress {
		tokenAddress = req.Expected.Currency.Token.Address
	}

	hints, err := a.indexer.TransfersTo(ctx, req.ToAddress, tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: indexer hint: %s", errkind.ErrChainRPC, err)
	}

	var best *chainadapter.TransferInfo
	for _, hint := range hints {
		if hint.Amount == nil || hint.Amount.Lt(req.Expected.Amount) {
			continue
		}

		txHash := common.HexToHash(hint.TxHash)
		receipt, err := a.rpc.TransactionReceipt(ctx, txHash)
		if err != nil || receipt.Status != types.ReceiptStatusSuccessful {
			continue
		}

		if req.EmbeddedNonce != nil {
			tx, _, err := a.rpc.TransactionByHash(ctx, txHash)
			if err != nil {
				continue
			}
			raw, err := tx.MarshalBinary()
			if err != nil {
				continue
			}
			nonceHex := hex.EncodeToString(req.EmbeddedNonce[:])
			if !strings.Contains(hex.EncodeToString(raw), nonceHex) {
				continue
			}
		}

		tip, err := a.rpc.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errkind.ErrChainRPC, err)
		}
		if tip < receipt.BlockNumber.Uint64() {
			continue
		}

		confirmations := tip - receipt.BlockNumber.Uint64() + 1
		if best != nil && confirmations <= best.Confirmations {
			continue
		}
		best = &chainadapter.TransferInfo{
			TxHash:        hint.TxHash,
			Amount:        hint.Amount,
			DetectedAt:    time.Now(),
			Confirmations: confirmations,
		}
	}

	return best, nil
}
