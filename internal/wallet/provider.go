package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"deadlock-challenge/internal/config"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

var (
	ErrProviderMissing = errors.New("no wallet provider configured")
	ErrUserRejected    = errors.New("request rejected by user")
	ErrNotConnected    = errors.New("wallet not connected")
)

// userRejectedCode is the EIP-1193 code for a declined request.
const userRejectedCode = 4001

// Provider is the external key custodian. Accounts never prompts;
// RequestAccounts may, and fails with ErrUserRejected when declined.
type Provider interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	SignTx(ctx context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// NewProvider picks the provider from configuration. With nothing configured
// it returns a provider whose every call fails with ErrProviderMissing.
func NewProvider(cfg *config.Config, logger zerolog.Logger) (Provider, error) {
	switch {
	case cfg.WalletPrivateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.WalletPrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid WALLET_PRIVATE_KEY: %w", err)
		}
		logger.Info().Str("provider", "key").Msg("wallet provider configured")
		return NewKeyProvider(func() (*ecdsa.PrivateKey, error) { return key, nil }), nil

	case cfg.WalletKeystore != "":
		path, passphrase := cfg.WalletKeystore, cfg.WalletPassphrase
		logger.Info().Str("provider", "keystore").Str("path", path).Msg("wallet provider configured")
		return NewKeyProvider(func() (*ecdsa.PrivateKey, error) {
			blob, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read keystore: %w", err)
			}
			k, err := keystore.DecryptKey(blob, passphrase)
			if err != nil {
				if errors.Is(err, keystore.ErrDecrypt) {
					return nil, fmt.Errorf("%w: keystore passphrase refused", ErrUserRejected)
				}
				return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
			}
			return k.PrivateKey, nil
		}), nil

	case cfg.ClefURL != "":
		logger.Info().Str("provider", "clef").Str("url", cfg.ClefURL).Msg("wallet provider configured")
		return &ClefProvider{endpoint: cfg.ClefURL}, nil

	default:
		logger.Warn().Msg("no wallet provider configured; signing actions will fail")
		return missingProvider{}, nil
	}
}

// KeyProvider holds a single local key. The key is unlocked on the first
// RequestAccounts; until then Accounts is empty.
type KeyProvider struct {
	unlock func() (*ecdsa.PrivateKey, error)

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

func NewKeyProvider(unlock func() (*ecdsa.PrivateKey, error)) *KeyProvider {
	return &KeyProvider{unlock: unlock}
}

func (p *KeyProvider) Accounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == nil {
		return nil, nil
	}
	return []common.Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
}

func (p *KeyProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == nil {
		key, err := p.unlock()
		if err != nil {
			return nil, err
		}
		p.key = key
	}
	return []common.Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
}

func (p *KeyProvider) SignTx(_ context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()

	if key == nil {
		return nil, ErrNotConnected
	}
	if crypto.PubkeyToAddress(key.PublicKey) != from {
		return nil, fmt.Errorf("no key for account %s", from.Hex())
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

// ClefProvider delegates custody and approval to an external clef signer.
type ClefProvider struct {
	endpoint string

	mu     sync.Mutex
	signer *external.ExternalSigner
}

func (p *ClefProvider) dial() (*external.ExternalSigner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signer != nil {
		return p.signer, nil
	}
	s, err := external.NewExternalSigner(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to reach signer at %s: %w", p.endpoint, err)
	}
	p.signer = s
	return s, nil
}

func (p *ClefProvider) Accounts(context.Context) ([]common.Address, error) {
	p.mu.Lock()
	s := p.signer
	p.mu.Unlock()
	if s == nil {
		return nil, nil
	}
	return addresses(s.Accounts()), nil
}

func (p *ClefProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	s, err := p.dial()
	if err != nil {
		return nil, err
	}
	accs := addresses(s.Accounts())
	if len(accs) == 0 {
		return nil, fmt.Errorf("%w: signer exposed no accounts", ErrUserRejected)
	}
	return accs, nil
}

func (p *ClefProvider) SignTx(_ context.Context, from common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	s, err := p.dial()
	if err != nil {
		return nil, err
	}
	signed, err := s.SignTx(accounts.Account{Address: from}, tx, chainID)
	if err != nil {
		return nil, classifySignerError(err)
	}
	return signed, nil
}

func classifySignerError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "request denied") {
		return fmt.Errorf("%w: %v", ErrUserRejected, err)
	}
	return err
}

func addresses(accs []accounts.Account) []common.Address {
	out := make([]common.Address, len(accs))
	for i, a := range accs {
		out[i] = a.Address
	}
	return out
}

type missingProvider struct{}

func (missingProvider) Accounts(context.Context) ([]common.Address, error) {
	return nil, ErrProviderMissing
}

func (missingProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return nil, ErrProviderMissing
}

func (missingProvider) SignTx(context.Context, common.Address, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, ErrProviderMissing
}
