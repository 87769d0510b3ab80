package walletkey

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otcnet/coordinator/models"
)

func randMasterKey(t *testing.T) []byte {
	t.Helper()
	b := make([]byte, 64)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func TestDeriveIsPure(t *testing.T) {
	master := randMasterKey(t)
	var salt [32]byte
	_, err := rand.Read(salt[:])
	require.NoError(t, err)

	for _, chain := range []models.Chain{models.ChainBitcoin, models.ChainEthereum} {
		w1, err := Derive(master, salt, chain, nil)
		require.NoError(t, err)
		w2, err := Derive(master, salt, chain, nil)
		require.NoError(t, err)

		require.Equal(t, w1.Address(), w2.Address())

		k1, err := w1.PrivateKeyBytes()
		require.NoError(t, err)
		k2, err := w2.PrivateKeyBytes()
		require.NoError(t, err)
		require.Equal(t, k1, k2)
	}
}

func TestDeriveDifferentSaltsDiffer(t *testing.T) {
	master := randMasterKey(t)
	var saltA, saltB [32]byte
	_, err := rand.Read(saltA[:])
	require.NoError(t, err)
	_, err = rand.Read(saltB[:])
	require.NoError(t, err)

	wa, err := Derive(master, saltA, models.ChainBitcoin, nil)
	require.NoError(t, err)
	wb, err := Derive(master, saltB, models.ChainBitcoin, nil)
	require.NoError(t, err)

	require.NotEqual(t, wa.Address(), wb.Address())
}

func TestDeriveRejectsShortMasterKey(t *testing.T) {
	var salt [32]byte
	_, err := Derive(make([]byte, 16), salt, models.ChainBitcoin, nil)
	require.Error(t, err)
}

func TestCloseZeroesKey(t *testing.T) {
	master := randMasterKey(t)
	var salt [32]byte
	w, err := Derive(master, salt, models.ChainEthereum, nil)
	require.NoError(t, err)

	w.Close()
	_, err = w.PrivateKeyBytes()
	require.Error(t, err)
}

func TestStringNeverLeaksKey(t *testing.T) {
	master := randMasterKey(t)
	var salt [32]byte
	w, err := Derive(master, salt, models.ChainBitcoin, nil)
	require.NoError(t, err)

	key, err := w.PrivateKeyBytes()
	require.NoError(t, err)

	require.NotContains(t, w.String(), string(key))
}
