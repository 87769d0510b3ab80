package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/holiman/uint256"
)

// TransferHint is a single untrusted candidate transfer as reported by a
// token-indexer service. Every field is re-validated against NodeRPC before
// the adapter returns it (spec.md §4.2).
type TransferHint struct {
	TxHash string
	Amount *uint256.Int
}

// UnmarshalJSON decodes the wire amount string into a uint256.
func (h *TransferHint) UnmarshalJSON(data []byte) error {
	var wire struct {
		TxHash string `json:"tx_hash"`
		Amount string `json:"amount"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	amt, err := uint256.FromDecimal(wire.Amount)
	if err != nil {
		return fmt.Errorf("indexer: bad amount %q: %w", wire.Amount, err)
	}
	h.TxHash = wire.TxHash
	h.Amount = amt
	return nil
}

// Indexer looks up candidate incoming transfers to an address for a given
// token. Implementations are untrusted hint sources; the adapter always
// re-validates the result against a node before acting on it.
type Indexer interface {
	TransfersTo(ctx context.Context, address, tokenAddress string) ([]TransferHint, error)
}

// HTTPIndexer is a minimal REST client for a generic ERC-20/native transfer
// indexer, implemented directly on net/http + encoding/json for the same
// reason chainadapter/bitcoin.EsploraClient is: no indexer client library
// appears anywhere in the retrieval pack (documented in DESIGN.md).
type HTTPIndexer struct {
	baseURL string
	http    *http.Client
}

// NewHTTPIndexer builds an indexer client against baseURL.
func NewHTTPIndexer(baseURL string) *HTTPIndexer {
	return &HTTPIndexer{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// TransfersTo implements Indexer. tokenAddress is empty for native ETH.
func (c *HTTPIndexer) TransfersTo(ctx context.Context, address, tokenAddress string) ([]TransferHint, error) {
	path := fmt.Sprintf("/transfers?to=%s&token=%s", address, tokenAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer: GET %s: status %d", path, resp.StatusCode)
	}
	var hints []TransferHint
	if err := json.NewDecoder(resp.Body).Decode(&hints); err != nil {
		return nil, err
	}
	return hints, nil
}
