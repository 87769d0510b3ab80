package mmregistry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dial spins up a test server that hands every accepted connection to
// registry.Register under marketMaker, and returns the client-side
// *websocket.Conn plus a cleanup func.
func dial(t *testing.T, r *Registry, marketMaker string) (*websocket.Conn, func()) {
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

	// Give the server-side goroutine a moment to register the session.
	time.Sleep(20 * time.Millisecond)

	return client, func() {
		client.Close()
		srv.Close()
	}
}

func TestRegisterAndIsConnected(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.IsConnected("mm-one"))

	_, cleanup := dial(t, r, "mm-one")
	defer cleanup()

	require.True(t, r.IsConnected("mm-one"))
	require.Contains(t, r.ConnectedMarketMakers(), "mm-one")
}

func TestBroadcastQuoteRequestReachesClient(t *testing.T) {
	r := NewRegistry()
	client, cleanup := dial(t, r, "mm-one")
	defer cleanup()

	reqID := uuid.New()
	reached := r.BroadcastQuoteRequest(QuoteRequestPayload{RequestID: reqID})
	require.Equal(t, []string{"mm-one"}, reached)

	_, raw, err := client.ReadMessage()
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, MsgQuoteRequest, env.Type)
	require.Equal(t, reqID, env.RequestID)
}

func TestValidateQuoteTimesOutWithoutResponse(t *testing.T) {
	r := NewRegistry()
	_, cleanup := dial(t, r, "mm-one")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	_, err := r.ValidateQuote(ctx, "mm-one", ValidateQuotePayload{})
	require.Error(t, err)
}

func TestValidateQuoteReceivesResponse(t *testing.T) {
	r := NewRegistry()
	client, cleanup := dial(t, r, "mm-one")
	defer cleanup()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := r.ValidateQuote(context.Background(), "mm-one", ValidateQuotePayload{})
		require.NoError(t, err)
		require.True(t, resp.Accepted)
	}()

	_, raw, err := client.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, MsgValidateQuote, env.Type)

	r.HandleValidationResponse(env.RequestID, ValidationResponsePayload{Accepted: true})

	<-done
}

func TestValidateQuoteFailsWhenMMNotConnected(t *testing.T) {
	r := NewRegistry()
	_, err := r.ValidateQuote(context.Background(), "ghost", ValidateQuotePayload{})
	require.Error(t, err)
}
