package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"deadlock-challenge/internal/api"
	"deadlock-challenge/internal/domain"
	"deadlock-challenge/internal/ledger"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrWrongStatus          = errors.New("challenge has wrong status")
	ErrMatchAPI             = api.ErrMatchAPI
	ErrIncompleteData       = api.ErrIncompleteData
	ErrIncompleteTeams      = errors.New("incomplete teams in reported match")
	ErrTiming               = errors.New("match timing invalid")
	ErrPlayerNotFound       = errors.New("player not found in reported match")
	ErrTeamMismatch         = errors.New("team assignment mismatch")
	ErrAmbiguousOrientation = errors.New("both team orientations match")
)

// ChallengeSource is the read side of the ledger.
type ChallengeSource interface {
	ChallengeCounter(ctx context.Context) (uint64, error)
	GetChallenge(ctx context.Context, id uint64) (*domain.Challenge, error)
}

// ChallengeLedger is the full ledger surface the flows use.
type ChallengeLedger interface {
	ChallengeSource
	CreateChallenge(opts *bind.TransactOpts, matchID uint64, team domain.Team, requiredStartTime uint64) (*types.Transaction, error)
	AcceptChallenge(opts *bind.TransactOpts, challengeID uint64, team domain.Team) (*types.Transaction, error)
	VerifyMatchOutcomeAndPay(opts *bind.TransactOpts, p ledger.PayoutParams) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
	ChallengeIDFromReceipt(receipt *types.Receipt) (uint64, error)
}

type MatchSource interface {
	GetMatchReport(ctx context.Context, matchID uint64) (*domain.MatchReport, error)
}

// Session is the caller's wallet identity, passed explicitly into each flow.
type Session interface {
	ActiveAccount(ctx context.Context) (common.Address, bool)
	SigningHandle(ctx context.Context, value *big.Int) (*bind.TransactOpts, error)
	Begin() (func(), error)
}

var (
	_ ChallengeLedger = (*ledger.Ledger)(nil)
	_ MatchSource     = (*api.DeadlockClient)(nil)
)

// ParseID parses a positive decimal identifier.
func ParseID(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", ErrInvalidInput, field, s)
	}
	return v, nil
}

// ParseOptionalID treats an empty string as 0.
func ParseOptionalID(field, s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be numeric, got %q", ErrInvalidInput, field, s)
	}
	return v, nil
}

// ParseTeam requires exactly six distinct positive numeric player ids.
func ParseTeam(ids []string) (domain.Team, error) {
	var team domain.Team
	if len(ids) != len(team) {
		return team, fmt.Errorf("%w: exactly %d player ids required, got %d", ErrInvalidInput, len(team), len(ids))
	}

	seen := make(map[domain.PlayerID]bool, len(ids))
	for i, s := range ids {
		v, err := ParseID(fmt.Sprintf("player %d", i+1), s)
		if err != nil {
			return team, err
		}
		id := domain.PlayerID(v)
		if seen[id] {
			return team, fmt.Errorf("%w: player id %d repeated", ErrInvalidInput, id)
		}
		seen[id] = true
		team[i] = id
	}
	return team, nil
}
