package otcauth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPHCRoundTrip(t *testing.T) {
	phc, err := HashPHC("super-secret-mm-key")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(phc, "$argon2id$"))

	ok, err := VerifyPHC("super-secret-mm-key", phc)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPHC("wrong-key", phc)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLoadWhitelistAuthenticates(t *testing.T) {
	phc, err := HashPHC("mm-one-key")
	require.NoError(t, err)

	id := uuid.New()
	entries := []whitelistEntry{{ID: id, MarketMaker: "mm-one", Hash: phc}}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "whitelist.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	w, err := LoadWhitelist(path)
	require.NoError(t, err)

	key, err := w.Authenticate(id, "mm-one-key")
	require.NoError(t, err)
	require.Equal(t, "mm-one", key.MarketMaker)

	_, err = w.Authenticate(id, "wrong")
	require.Error(t, err)

	_, err = w.Authenticate(uuid.New(), "mm-one-key")
	require.Error(t, err)

	entry, ok := w.ByMarketMaker("mm-one")
	require.True(t, ok)
	require.Equal(t, id, entry.ID)
}
