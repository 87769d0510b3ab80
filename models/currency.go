// Package models defines the data types shared across the swap coordinator:
// currencies, lots, quotes, swaps, and their embedded status records.
package models

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/otcnet/coordinator/errkind"
)

// Chain identifies a blockchain the coordinator knows how to custody funds
// on.
type Chain string

const (
	ChainBitcoin  Chain = "bitcoin"
	ChainEthereum Chain = "ethereum"
)

// String implements fmt.Stringer.
func (c Chain) String() string {
	return string(c)
}

// Valid reports whether c is one of the supported chains.
func (c Chain) Valid() bool {
	switch c {
	case ChainBitcoin, ChainEthereum:
		return true
	default:
		return false
	}
}

// TokenKind distinguishes a chain's native asset from an on-chain token
// contract.
type TokenKind string

const (
	TokenNative  TokenKind = "Native"
	TokenAddress TokenKind = "Address"
)

// Token identifies an asset on a chain: either the chain's native coin, or
// a contract address (e.g. an ERC-20 token). It marshals to the wire/DB JSON
// shape `{"type":"Native"}` or `{"type":"Address","data":"0x..."}` per
// spec.md §4.4.
type Token struct {
	Kind    TokenKind
	Address string // only set when Kind == TokenAddress
}

// NativeToken returns the native-asset Token.
func NativeToken() Token { return Token{Kind: TokenNative} }

// AddressToken returns a contract-address Token.
func AddressToken(addr string) Token { return Token{Kind: TokenAddress, Address: addr} }

type tokenWire struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (t Token) MarshalJSON() ([]byte, error) {
	w := tokenWire{Type: string(t.Kind)}
	if t.Kind == TokenAddress {
		w.Data = t.Address
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Token) UnmarshalJSON(b []byte) error {
	var w tokenWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	switch TokenKind(w.Type) {
	case TokenNative:
		*t = NativeToken()
	case TokenAddress:
		*t = AddressToken(w.Data)
	default:
		return fmt.Errorf("models: unknown token type %q", w.Type)
	}
	return nil
}

// Currency is a (chain, token, decimals) triple identifying an asset.
type Currency struct {
	Chain    Chain  `json:"chain"`
	Token    Token  `json:"token"`
	Decimals uint8  `json:"decimals"`
}

// Equal reports whether c and other identify the same asset.
func (c Currency) Equal(other Currency) bool {
	return c.Chain == other.Chain &&
		c.Token.Kind == other.Token.Kind &&
		c.Token.Address == other.Token.Address &&
		c.Decimals == other.Decimals
}

// Lot is an amount of a Currency, denominated in the smallest unit of that
// asset (satoshis, wei, token base units).
type Lot struct {
	Currency Currency     `json:"currency"`
	Amount   *uint256.Int `json:"amount"`
}

// AmountString renders Amount as a decimal string, the representation used
// for persistence (spec.md §4.4: "U256 amounts are stored as decimal
// strings").
func (l Lot) AmountString() string {
	if l.Amount == nil {
		return "0"
	}
	return l.Amount.Dec()
}

// ParseAmount parses a decimal string into a *uint256.Int, rejecting
// anything that doesn't round-trip — the InvalidData conversion helper
// spec.md §4.4 requires.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q: %s", errkind.ErrInvalidData, s, err)
	}
	return v, nil
}
