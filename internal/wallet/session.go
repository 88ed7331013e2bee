package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

var ErrActionInFlight = errors.New("another action is already in progress")

// ChainIDSource resolves the chain id used for replay-protected signing.
type ChainIDSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Session is the connected identity every flow acts as. One state-changing
// action may run at a time.
type Session struct {
	provider Provider
	chain    ChainIDSource
	logger   zerolog.Logger

	mu      sync.Mutex
	account common.Address
	chainID *big.Int

	inFlight sync.Mutex
}

func NewSession(provider Provider, chain ChainIDSource, logger zerolog.Logger) *Session {
	return &Session{
		provider: provider,
		chain:    chain,
		logger:   logger.With().Str("component", "wallet").Logger(),
	}
}

// ActiveAccount returns the connected account without prompting. The zero
// address with ok=false means nothing is connected.
func (s *Session) ActiveAccount(ctx context.Context) (common.Address, bool) {
	s.mu.Lock()
	if s.account != (common.Address{}) {
		defer s.mu.Unlock()
		return s.account, true
	}
	s.mu.Unlock()

	accs, err := s.provider.Accounts(ctx)
	if err != nil {
		s.logger.Debug().Err(err).Msg("eth_accounts failed")
		return common.Address{}, false
	}
	if len(accs) == 0 {
		return common.Address{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = accs[0]
	return s.account, true
}

// RequestConnection asks the provider for access and adopts its first account.
func (s *Session) RequestConnection(ctx context.Context) (common.Address, error) {
	accs, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("connection request failed")
		return common.Address{}, err
	}
	if len(accs) == 0 {
		return common.Address{}, fmt.Errorf("%w: no accounts returned", ErrUserRejected)
	}

	s.mu.Lock()
	s.account = accs[0]
	s.mu.Unlock()

	s.logger.Info().Str("account", accs[0].Hex()).Msg("wallet connected")
	return accs[0], nil
}

// SigningHandle returns transact options bound to the connected account.
// value is attached for payable calls and may be nil.
func (s *Session) SigningHandle(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	account, ok := s.ActiveAccount(ctx)
	if !ok {
		return nil, ErrNotConnected
	}

	chainID, err := s.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}

	return &bind.TransactOpts{
		From:    account,
		Context: ctx,
		Value:   value,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != account {
				return nil, bind.ErrNotAuthorized
			}
			return s.provider.SignTx(ctx, addr, tx, chainID)
		},
	}, nil
}

// Begin claims the session for one state-changing action. The returned
// release func must be called when the action finishes.
func (s *Session) Begin() (func(), error) {
	if !s.inFlight.TryLock() {
		return nil, ErrActionInFlight
	}
	return s.inFlight.Unlock, nil
}

func (s *Session) resolveChainID(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chainID != nil {
		return s.chainID, nil
	}
	id, err := s.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	s.chainID = id
	return id, nil
}
