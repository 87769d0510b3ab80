package swapmonitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/otcnet/coordinator/chainadapter"
	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/models"
	"github.com/otcnet/coordinator/otcauth"
)

var testMasterKey = make([]byte, 32)

// dialMM spins up a test server handing the accepted connection to
// registry.Register under marketMaker, returning the client-side conn.
func dialMM(t *testing.T, r *mmregistry.Registry, marketMaker string) (*websocket.Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		r.Register(marketMaker, conn)
	}))

	url := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	return client, func() {
		client.Close()
		srv.Close()
	}
}

// newTestWhitelist writes a single-entry whitelist file and loads it,
// mirroring otcauth_test.go's LoadWhitelist fixture pattern.
func newTestWhitelist(t *testing.T, id uuid.UUID, marketMaker, rawKey string) *otcauth.Whitelist {
	t.Helper()
	phc, err := otcauth.HashPHC(rawKey)
	require.NoError(t, err)

	entries := []map[string]string{{"id": id.String(), "market_maker": marketMaker, "hash": phc}}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "whitelist.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	w, err := otcauth.LoadWhitelist(path)
	require.NoError(t, err)
	return w
}

type fakeAdapter struct {
	chain         models.Chain
	minConfs      uint64
	blockTime     time.Duration
	transfer      *chainadapter.TransferInfo
	status        chainadapter.TxStatus
}

func (a *fakeAdapter) ChainID() models.Chain                { return a.chain }
func (a *fakeAdapter) MinimumConfirmations() uint64          { return a.minConfs }
func (a *fakeAdapter) EstimatedBlockTime() time.Duration     { return a.blockTime }
func (a *fakeAdapter) ValidateAddress(addr string) bool      { return true }
func (a *fakeAdapter) GetTxStatus(ctx context.Context, txHash string) (chainadapter.TxStatus, error) {
	return a.status, nil
}
func (a *fakeAdapter) SearchForTransfer(ctx context.Context, req chainadapter.SearchRequest) (*chainadapter.TransferInfo, error) {
	return a.transfer, nil
}

type fakeRepo struct {
	mu    sync.Mutex
	swaps map[uuid.UUID]models.Swap
}

func newFakeRepo(swaps ...models.Swap) *fakeRepo {
	m := make(map[uuid.UUID]models.Swap)
	for _, s := range swaps {
		m[s.ID] = s
	}
	return &fakeRepo{swaps: m}
}

func (r *fakeRepo) ListByStatus(ctx context.Context, status models.SwapStatus) ([]models.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Swap
	for _, s := range r.swaps {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) Transition(ctx context.Context, id uuid.UUID, mutate func(*models.Swap) error) (models.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.swaps[id]
	if err := mutate(&s); err != nil {
		return models.Swap{}, err
	}
	r.swaps[id] = s
	return s, nil
}

func baseSwap(status models.SwapStatus) models.Swap {
	return models.Swap{
		ID:     uuid.New(),
		Status: status,
		Quote: models.Quote{
			From:      models.Lot{Currency: models.Currency{Chain: models.ChainBitcoin}, Amount: uint256.NewInt(1000)},
			To:        models.Lot{Currency: models.Currency{Chain: models.ChainEthereum}, Amount: uint256.NewInt(1)},
			ExpiresAt: time.Now().Add(time.Hour),
		},
		UserDepositAddress:     "bc1quser",
		UserDestinationAddress: "0xdead",
	}
}

func TestPollUserDepositAdvancesOnConfirmation(t *testing.T) {
	s := baseSwap(models.StatusWaitingUserDepositInitiated)
	repo := newFakeRepo(s)

	btc := &fakeAdapter{
		chain: models.ChainBitcoin, minConfs: 2, blockTime: 10 * time.Minute,
		transfer: &chainadapter.TransferInfo{TxHash: "txuser", Amount: uint256.NewInt(1000), Confirmations: 3},
	}
	eth := &fakeAdapter{chain: models.ChainEthereum, minConfs: 4, blockTime: 12 * time.Second}

	m := New(repo, chainadapter.NewRegistry(btc, eth), mmregistry.NewRegistry(), &otcauth.Whitelist{}, testMasterKey, &chaincfg.MainNetParams, slog.Disabled)
	require.NoError(t, m.processSwap(context.Background(), s))

	updated := repo.swaps[s.ID]
	require.Equal(t, models.StatusWaitingUserDepositConfirmed, updated.Status)
}

func TestTimeoutFailsSwapWithNoDeposit(t *testing.T) {
	s := baseSwap(models.StatusWaitingUserDepositInitiated)
	s.Quote.ExpiresAt = time.Now().Add(-time.Minute)
	repo := newFakeRepo(s)

	btc := &fakeAdapter{chain: models.ChainBitcoin, minConfs: 2, blockTime: 10 * time.Minute}
	eth := &fakeAdapter{chain: models.ChainEthereum, minConfs: 4, blockTime: 12 * time.Second}
	m := New(repo, chainadapter.NewRegistry(btc, eth), mmregistry.NewRegistry(), &otcauth.Whitelist{}, testMasterKey, &chaincfg.MainNetParams, slog.Disabled)

	require.NoError(t, m.processSwap(context.Background(), s))
	require.Equal(t, models.StatusFailed, repo.swaps[s.ID].Status)
}

func TestTimeoutRefundsUserWhenOnlyUserDeposited(t *testing.T) {
	s := baseSwap(models.StatusWaitingUserDepositConfirmed)
	s.Quote.ExpiresAt = time.Now().Add(-time.Minute)
	s.UserDepositStatus = &models.DepositStatus{TxHash: "txuser"}
	repo := newFakeRepo(s)

	btc := &fakeAdapter{chain: models.ChainBitcoin, minConfs: 2, blockTime: 10 * time.Minute}
	eth := &fakeAdapter{chain: models.ChainEthereum, minConfs: 4, blockTime: 12 * time.Second}
	m := New(repo, chainadapter.NewRegistry(btc, eth), mmregistry.NewRegistry(), &otcauth.Whitelist{}, testMasterKey, &chaincfg.MainNetParams, slog.Disabled)

	require.NoError(t, m.processSwap(context.Background(), s))
	require.Equal(t, models.StatusRefundingUser, repo.swaps[s.ID].Status)
}

func TestMMDepositConfirmationSettlesAndReleasesPrivateKey(t *testing.T) {
	mmID := uuid.New()
	s := baseSwap(models.StatusWaitingMMDepositInitiated)
	s.MarketMakerID = mmID
	s.MMDepositStatus = &models.DepositStatus{TxHash: "txmm"}
	repo := newFakeRepo(s)

	registry := mmregistry.NewRegistry()
	client, cleanup := dialMM(t, registry, "mm-one")
	defer cleanup()

	whitelist := newTestWhitelist(t, mmID, "mm-one", "mm-one-key")

	btc := &fakeAdapter{chain: models.ChainBitcoin, minConfs: 2, blockTime: 10 * time.Minute}
	eth := &fakeAdapter{
		chain: models.ChainEthereum, minConfs: 4, blockTime: 12 * time.Second,
		status: chainadapter.Confirmed(4),
	}

	m := New(repo, chainadapter.NewRegistry(btc, eth), registry, whitelist, testMasterKey, &chaincfg.MainNetParams, slog.Disabled)
	require.NoError(t, m.processSwap(context.Background(), s))

	updated := repo.swaps[s.ID]
	require.Equal(t, models.StatusSettled, updated.Status)
	require.NotNil(t, updated.MMPrivateKeySentAt)
	require.NotNil(t, updated.SettlementStatus)
	require.Equal(t, "txmm", updated.SettlementStatus.TxHash)

	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	var env mmregistry.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, mmregistry.MsgPrivateKeySent, env.Type)

	var payload mmregistry.PrivateKeySentPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	require.Equal(t, s.ID, payload.SwapID)
	require.NotEmpty(t, payload.PrivateKey)
}
