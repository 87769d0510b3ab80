// Package walletkey implements deterministic per-swap wallet derivation
// (spec.md §4.1, C1). Given a process-wide master key and a per-swap salt,
// it derives a chain-specific keypair and address via HKDF-SHA256. The
// derivation is pure: the same (masterKey, salt, chain) triple always
// yields the same wallet.
package walletkey

import (
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"

	"github.com/otcnet/coordinator/errkind"
	"github.com/otcnet/coordinator/models"
)

// hkdfInfo returns the per-chain HKDF "info" label spec.md §4.1 requires.
func hkdfInfo(chain models.Chain) (string, error) {
	switch chain {
	case models.ChainBitcoin:
		return "bitcoin-wallet", nil
	case models.ChainEthereum:
		return "ethereum-wallet", nil
	default:
		return "", fmt.Errorf("%w: %s", errkind.ErrChainNotSupported, chain)
	}
}

// Wallet holds a derived keypair for exactly one swap's custody duration.
// It never serializes its private key, refuses naive copying via its
// unexported fields, and must be zeroized with Close once the coordinator
// is done with it — grounded in arcsign's crypto.ClearBytes secure-wipe
// helper (Jason-chen-taiwan-arcSignv2/internal/services/crypto/memory.go).
type Wallet struct {
	chain      models.Chain
	privScalar [32]byte
	address    string
	closed     bool
}

// Chain returns the chain this wallet's address is valid on.
func (w *Wallet) Chain() models.Chain { return w.chain }

// Address returns the derived custody address.
func (w *Wallet) Address() string { return w.address }

// PrivateKeyBytes returns a copy of the raw 32-byte private scalar. Callers
// receiving this are responsible for handing it to the MM (spec.md §4.7's
// SwapComplete message) and then discarding it; it is never logged.
func (w *Wallet) PrivateKeyBytes() ([]byte, error) {
	if w.closed {
		return nil, fmt.Errorf("walletkey: wallet already closed")
	}
	out := make([]byte, 32)
	copy(out, w.privScalar[:])
	return out, nil
}

// Close zeroizes the wallet's private key material. Safe to call more than
// once.
func (w *Wallet) Close() {
	for i := range w.privScalar {
		w.privScalar[i] = 0
	}
	w.closed = true
	runtime.KeepAlive(w)
}

// String never includes key material, satisfying fmt.Stringer safely even
// if a Wallet ends up in a log.Printf by accident.
func (w *Wallet) String() string {
	return fmt.Sprintf("Wallet{chain=%s address=%s}", w.chain, w.address)
}

// GoString mirrors String so %#v formatting can't leak the scalar either.
func (w *Wallet) GoString() string { return w.String() }

// Network selects which Bitcoin network addresses are derived for.
type Network = *chaincfg.Params

// Derive computes the deterministic wallet for (masterKey, salt, chain),
// per spec.md §4.1: k = HKDF-SHA256(ikm=masterKey, salt=salt, info=<chain
// label>); k is interpreted as a secp256k1 scalar for both chains. net is
// only consulted for Bitcoin address encoding.
func Derive(masterKey []byte, salt [32]byte, chain models.Chain, net Network) (*Wallet, error) {
	if len(masterKey) < 32 {
		return nil, fmt.Errorf("%w: master key must be >= 32 bytes", errkind.ErrWalletDerivation)
	}
	info, err := hkdfInfo(chain)
	if err != nil {
		return nil, err
	}

	reader := hkdf.New(sha256.New, masterKey, salt[:], []byte(info))
	var scalar [32]byte
	if _, err := io.ReadFull(reader, scalar[:]); err != nil {
		return nil, fmt.Errorf("%w: hkdf expand: %s", errkind.ErrWalletDerivation, err)
	}

	priv, pub := btcec.PrivKeyFromBytes(scalar[:])
	if priv == nil {
		return nil, fmt.Errorf("%w: scalar out of range, retry with a new salt", errkind.ErrWalletDerivation)
	}

	var address string
	switch chain {
	case models.ChainBitcoin:
		address, err = p2wpkhAddress(pub, net)
	case models.ChainEthereum:
		address = evmAddress(pub)
	default:
		err = fmt.Errorf("%w: %s", errkind.ErrChainNotSupported, chain)
	}
	if err != nil {
		return nil, err
	}

	w := &Wallet{chain: chain, address: address}
	copy(w.privScalar[:], scalar[:])
	runtime.SetFinalizer(w, (*Wallet).Close)
	return w, nil
}

// p2wpkhAddress mirrors arcsign's bitcoin.pubKeyToP2WPKHAddress
// (Jason-chen-taiwan-arcSignv2/src/chainadapter/bitcoin/derive.go).
func p2wpkhAddress(pub *btcec.PublicKey, net Network) (string, error) {
	if net == nil {
		net = &chaincfg.MainNetParams
	}
	witnessProg := btcutil.Hash160(pub.SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(witnessProg, net)
	if err != nil {
		return "", fmt.Errorf("%w: p2wpkh encode: %s", errkind.ErrWalletDerivation, err)
	}
	return addr.EncodeAddress(), nil
}

// evmAddress mirrors arcsign's ethereum.pubKeyToChecksummedAddress
// (Jason-chen-taiwan-arcSignv2/src/chainadapter/ethereum/derive.go).
func evmAddress(pub *btcec.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()
	hash := ethcrypto.Keccak256(uncompressed[1:])
	return ethcommon.BytesToAddress(hash[12:]).Hex()
}
