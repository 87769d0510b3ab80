package bitcoin

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"github.com/otcnet/coordinator/chainadapter"
)

// transferInfoHint is the untrusted candidate produced from Esplora before
// it is re-validated against NodeRPC in SearchForTransfer.
type transferInfoHint struct {
	TxHash        string
	Amount        *uint256.Int
	DetectedAt    time.Time
	Confirmations uint64
}

// transferHint asks Esplora for UTXOs paid to req.ToAddress and returns the
// most-confirmed candidate satisfying the expected amount and (if present)
// the embedded nonce, mirroring
// original_source/crates/otc-chains/src/bitcoin.rs's get_transfer_hint: it
// never trusts the hint on its own, only uses it to avoid a full node scan.
func (a *Adapter) transferHint(ctx context.Context, req chainadapter.SearchRequest) (*transferInfoHint, error) {
	utxos, err := a.esplora.AddressUTXOs(ctx, req.ToAddress)
	if err != nil {
		return nil, err
	}

	minSats, _ := req.Expected.Amount.Uint64()

	var candidates []transferInfoHint
	for _, u := range utxos {
		if u.Value < minSats {
			continue
		}
		if req.EmbeddedNonce != nil {
			ok, err := a.txContainsNonce(ctx, u.TxID, req.EmbeddedNonce)
			if err != nil || !ok {
				continue
			}
		}
		var confirmations uint64
		if u.Status.Confirmed {
			confirmations = 1 // lower bound; authoritative depth comes from NodeRPC
		}
		candidates = append(candidates, transferInfoHint{
			TxHash:        u.TxID,
			Amount:        new(uint256.Int).SetUint64(u.Value),
			DetectedAt:    time.Now(),
			Confirmations: confirmations,
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confirmations > candidates[j].Confirmations
	})
	return &candidates[0], nil
}

func (a *Adapter) txContainsNonce(ctx context.Context, txid string, nonce *[16]byte) (bool, error) {
	rawHex, err := a.esplora.RawTxHex(ctx, txid)
	if err != nil {
		return false, err
	}
	return strings.Contains(rawHex, hex.EncodeToString(nonce[:])), nil
}
