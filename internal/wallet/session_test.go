package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChain struct{ id int64 }

func (c staticChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(c.id), nil }

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

func TestSessionConnectAndSign(t *testing.T) {
	key := newKey(t)
	want := crypto.PubkeyToAddress(key.PublicKey)
	s := NewSession(NewKeyProvider(func() (*ecdsa.PrivateKey, error) { return key, nil }), staticChain{146}, zerolog.Nop())
	ctx := context.Background()

	_, ok := s.ActiveAccount(ctx)
	assert.False(t, ok, "eth_accounts must be empty before connecting")

	_, err := s.SigningHandle(ctx, nil)
	require.ErrorIs(t, err, ErrNotConnected)

	got, err := s.RequestConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	active, ok := s.ActiveAccount(ctx)
	require.True(t, ok)
	assert.Equal(t, want, active)

	opts, err := s.SigningHandle(ctx, big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, want, opts.From)
	assert.Equal(t, int64(5), opts.Value.Int64())

	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(1), Gas: 21000, To: &common.Address{}})
	signed, err := opts.Signer(want, tx)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(146)), signed)
	require.NoError(t, err)
	assert.Equal(t, want, sender)

	_, err = opts.Signer(common.HexToAddress("0x01"), tx)
	assert.Error(t, err)
}

func TestSessionConnectDenied(t *testing.T) {
	s := NewSession(NewKeyProvider(func() (*ecdsa.PrivateKey, error) {
		return nil, ErrUserRejected
	}), staticChain{1}, zerolog.Nop())

	_, err := s.RequestConnection(context.Background())
	require.ErrorIs(t, err, ErrUserRejected)

	_, ok := s.ActiveAccount(context.Background())
	assert.False(t, ok)
}

func TestSessionMissingProvider(t *testing.T) {
	s := NewSession(missingProvider{}, staticChain{1}, zerolog.Nop())

	_, err := s.RequestConnection(context.Background())
	require.ErrorIs(t, err, ErrProviderMissing)

	_, ok := s.ActiveAccount(context.Background())
	assert.False(t, ok)
}

func TestSessionBegin(t *testing.T) {
	s := NewSession(missingProvider{}, staticChain{1}, zerolog.Nop())

	release, err := s.Begin()
	require.NoError(t, err)

	_, err = s.Begin()
	require.ErrorIs(t, err, ErrActionInFlight)

	release()

	release, err = s.Begin()
	require.NoError(t, err)
	release()
}

type codedError struct{ code int }

func (e codedError) Error() string  { return "signer said no" }
func (e codedError) ErrorCode() int { return e.code }

var _ rpc.Error = codedError{}

func TestClassifySignerError(t *testing.T) {
	assert.ErrorIs(t, classifySignerError(codedError{code: userRejectedCode}), ErrUserRejected)
	assert.ErrorIs(t, classifySignerError(errors.New("Request denied")), ErrUserRejected)

	other := errors.New("dial tcp: connection refused")
	assert.NotErrorIs(t, classifySignerError(other), ErrUserRejected)
	assert.NotErrorIs(t, classifySignerError(codedError{code: -32000}), ErrUserRejected)
}
