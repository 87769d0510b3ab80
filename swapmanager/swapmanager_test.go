package swapmanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/otcnet/coordinator/mmregistry"
	"github.com/otcnet/coordinator/models"
)

type fakeQuoteRepo struct {
	quotes map[uuid.UUID]models.Quote
}

func (f *fakeQuoteRepo) Get(ctx context.Context, id uuid.UUID) (models.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return models.Quote{}, errNotFound
	}
	return q, nil
}

type fakeSwapRepo struct {
	swaps map[uuid.UUID]models.Swap
}

func (f *fakeSwapRepo) Insert(ctx context.Context, s models.Swap) error {
	if f.swaps == nil {
		f.swaps = make(map[uuid.UUID]models.Swap)
	}
	f.swaps[s.ID] = s
	return nil
}

func (f *fakeSwapRepo) Get(ctx context.Context, id uuid.UUID) (models.Swap, error) {
	s, ok := f.swaps[id]
	if !ok {
		return models.Swap{}, errNotFound
	}
	return s, nil
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errNotFound = sentinelErr("not found")

func dialMM(t *testing.T, r *mmregistry.Registry, name string) (*websocket.Conn, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		r.Register(name, conn)
	}))
	url := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	return client, func() { client.Close(); srv.Close() }
}

func TestCreateSwapHappyPath(t *testing.T) {
	registry := mmregistry.NewRegistry()
	client, cleanup := dialMM(t, registry, "mm-one")
	defer cleanup()

	mmID := uuid.New()
	quoteID := uuid.New()
	quote := models.Quote{
		ID:            quoteID,
		MarketMakerID: mmID,
		From: models.Lot{
			Currency: models.Currency{Chain: models.ChainBitcoin, Token: models.NativeToken(), Decimals: 8},
			Amount:   uint256.NewInt(100000),
		},
		To: models.Lot{
			Currency: models.Currency{Chain: models.ChainEthereum, Token: models.NativeToken(), Decimals: 18},
			Amount:   uint256.NewInt(1),
		},
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}

	quotes := &fakeQuoteRepo{quotes: map[uuid.UUID]models.Quote{quoteID: quote}}
	swaps := &fakeSwapRepo{}
	master := make([]byte, 32)
	mgr := New(quotes, swaps, registry, master, nil)

	done := make(chan *models.Swap, 1)
	errCh := make(chan error, 1)
	go func() {
		s, err := mgr.CreateSwap(context.Background(), CreateSwapRequest{
			QuoteID:               quoteID,
			CallerMarketMakerID:   mmID,
			CallerMarketMakerName: "mm-one",
			UserDestinationAddress: "0xabc",
			UserRefundAddress:      "bc1qrefund",
		})
		done <- s
		errCh <- err
	}()

	// Respond to the validate_quote request the manager sends.
	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	var env struct {
		Type      string    `json:"type"`
		RequestID uuid.UUID `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, "validate_quote", env.Type)

	registry.HandleValidationResponse(env.RequestID, mmregistry.ValidationResponsePayload{Accepted: true})

	select {
	case s := <-done:
		require.NoError(t, <-errCh)
		require.NotNil(t, s)
		require.Equal(t, models.StatusWaitingUserDepositInitiated, s.Status)
		require.NotEmpty(t, s.UserDepositAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for CreateSwap")
	}
}

func TestCreateSwapRejectsExpiredQuote(t *testing.T) {
	registry := mmregistry.NewRegistry()
	mmID := uuid.New()
	quoteID := uuid.New()
	quote := models.Quote{
		ID:            quoteID,
		MarketMakerID: mmID,
		ExpiresAt:     time.Now().Add(-time.Minute),
	}
	quotes := &fakeQuoteRepo{quotes: map[uuid.UUID]models.Quote{quoteID: quote}}
	mgr := New(quotes, &fakeSwapRepo{}, registry, make([]byte, 32), nil)

	_, err := mgr.CreateSwap(context.Background(), CreateSwapRequest{
		QuoteID: quoteID, CallerMarketMakerID: mmID, CallerMarketMakerName: "mm-one",
	})
	require.Error(t, err)
}

func TestCreateSwapRejectsMismatchedMarketMaker(t *testing.T) {
	registry := mmregistry.NewRegistry()
	quoteID := uuid.New()
	quote := models.Quote{
		ID:            quoteID,
		MarketMakerID: uuid.New(),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	quotes := &fakeQuoteRepo{quotes: map[uuid.UUID]models.Quote{quoteID: quote}}
	mgr := New(quotes, &fakeSwapRepo{}, registry, make([]byte, 32), nil)

	_, err := mgr.CreateSwap(context.Background(), CreateSwapRequest{
		QuoteID: quoteID, CallerMarketMakerID: uuid.New(), CallerMarketMakerName: "mm-one",
	})
	require.Error(t, err)
}
