package evmbroadcast

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct{}

func (fakeSigner) SignHash(hash []byte) ([]byte, error) {
	sig := make([]byte, 65)
	copy(sig, hash)
	return sig, nil
}

type fakeClient struct {
	nonce       uint64
	gasPrice    *big.Int
	sendErrs    []error
	sent        []*types.Transaction
	receiptErr  error
}

func (f *fakeClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}

func (f *fakeClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	idx := len(f.sent) - 1
	if idx < len(f.sendErrs) {
		return f.sendErrs[idx]
	}
	return nil
}

func (f *fakeClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return nil, f.receiptErr
}

func TestBroadcastSucceedsFirstTry(t *testing.T) {
	client := &fakeClient{nonce: 3, gasPrice: big.NewInt(1_000_000_000)}
	b := New(client, slog.Disabled)

	go b.Run(context.Background())
	defer b.Stop()

	outcomes := b.Subscribe()
	to := common.HexToAddress("0x000000000000000000000000000000000000aa")
	require.NoError(t, b.Enqueue(Request{
		ID: "req-1", Signer: types.NewEIP155Signer(big.NewInt(1)),
		From: common.HexToAddress("0x00000000000000000000000000000000000001"),
		PrivKey: fakeSigner{}, To: to, Value: big.NewInt(0), GasLimit: 21000,
	}))

	select {
	case o := <-outcomes:
		require.True(t, o.Success)
		require.Equal(t, "req-1", o.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
	require.Len(t, client.sent, 1)
}

func TestBroadcastRetriesOnUnderpriced(t *testing.T) {
	client := &fakeClient{
		nonce:    5,
		gasPrice: big.NewInt(1_000_000_000),
		sendErrs: []error{errors.New("replacement transaction underpriced"), nil},
	}
	b := New(client, slog.Disabled)

	go b.Run(context.Background())
	defer b.Stop()

	outcomes := b.Subscribe()
	to := common.HexToAddress("0x000000000000000000000000000000000000bb")
	require.NoError(t, b.Enqueue(Request{
		ID: "req-2", Signer: types.NewEIP155Signer(big.NewInt(1)),
		From: common.HexToAddress("0x00000000000000000000000000000000000001"),
		PrivKey: fakeSigner{}, To: to, Value: big.NewInt(0), GasLimit: 21000,
	}))

	select {
	case o := <-outcomes:
		require.True(t, o.Success)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
	require.Len(t, client.sent, 2)
}

func TestEnqueueFailsWhenQueueFull(t *testing.T) {
	client := &fakeClient{nonce: 1, gasPrice: big.NewInt(1)}
	b := New(client, slog.Disabled)
	// No Run() consumer: the queue fills and Enqueue must report failure
	// instead of blocking.
	for i := 0; i < queueCapacity; i++ {
		require.NoError(t, b.Enqueue(Request{ID: "x"}))
	}
	require.Error(t, b.Enqueue(Request{ID: "overflow"}))
}
