package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"deadlock-challenge/internal/config"
	"deadlock-challenge/internal/domain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

var ErrEventNotFound = errors.New("ChallengeCreated event not found in receipt")

// Backend is what the ledger needs from a chain connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Ledger talks to the deployed challenge contract. It never caches state.
type Ledger struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
	backend  Backend
	logger   zerolog.Logger
}

// PayoutParams carries verifyMatchOutcomeAndPay's arguments.
type PayoutParams struct {
	ChallengeID      uint64
	MatchID          uint64
	StartTime        int64
	WinningTeamIndex uint8
	Team0            domain.Team
	Team1            domain.Team
}

// challengeTuple mirrors the getChallenge return struct.
type challengeTuple struct {
	Id                *big.Int
	Captain1          common.Address
	Captain2          common.Address
	MatchIdPredefined *big.Int
	ChallengingTeam   [6]*big.Int
	AcceptingTeam     [6]*big.Int
	RequiredStartTime *big.Int
	CreationTime      *big.Int
	AcceptTime        *big.Int
	Status            uint8
	AmountStaked      *big.Int
	WinningTeamIndex  uint8
	PaidMatchId       *big.Int
}

type challengeCreatedEvent struct {
	ChallengeId       *big.Int
	Captain1          common.Address
	MatchIdPredefined *big.Int
	ChallengingTeam   [6]*big.Int
	Stake             *big.Int
}

func New(address common.Address, backend Backend, logger zerolog.Logger) (*Ledger, error) {
	parsed, err := abi.JSON(strings.NewReader(challengeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse challenge ABI: %w", err)
	}

	return &Ledger{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		backend:  backend,
		logger:   logger.With().Str("component", "ledger").Str("contract", address.Hex()).Logger(),
	}, nil
}

// Dial opens the JSON-RPC connection and closes it with the app.
func Dial(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (*ethclient.Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", cfg.RPCURL, err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Debug().Msg("closing rpc client")
			client.Close()
			return nil
		},
	})
	return client, nil
}

func NewFromConfig(cfg *config.Config, client *ethclient.Client, logger zerolog.Logger) (*Ledger, error) {
	return New(cfg.ContractAddress, client, logger)
}

func (l *Ledger) Address() common.Address {
	return l.address
}

func (l *Ledger) ChainID(ctx context.Context) (*big.Int, error) {
	return l.backend.ChainID(ctx)
}

func (l *Ledger) ChallengeCounter(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "challengeCounter"); err != nil {
		return 0, fmt.Errorf("failed to read challengeCounter: %w", err)
	}

	counter := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !counter.IsUint64() {
		return 0, fmt.Errorf("challengeCounter %s out of range", counter)
	}
	return counter.Uint64(), nil
}

// GetChallenge returns the ledger's record for id. A challenge that does not
// exist comes back zero-valued (ID 0); callers decide what that means.
func (l *Ledger) GetChallenge(ctx context.Context, id uint64) (*domain.Challenge, error) {
	var out []interface{}
	if err := l.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getChallenge", new(big.Int).SetUint64(id)); err != nil {
		return nil, fmt.Errorf("failed to read challenge %d: %w", id, err)
	}

	raw := *abi.ConvertType(out[0], new(challengeTuple)).(*challengeTuple)
	return raw.toDomain()
}

func (l *Ledger) CreateChallenge(opts *bind.TransactOpts, matchID uint64, team domain.Team, requiredStartTime uint64) (*types.Transaction, error) {
	tx, err := l.contract.Transact(opts, "createChallenge",
		new(big.Int).SetUint64(matchID),
		teamToBig(team),
		new(big.Int).SetUint64(requiredStartTime),
	)
	if err != nil {
		return nil, ClassifyError(err)
	}
	l.logger.Info().Str("tx_hash", tx.Hash().Hex()).Uint64("match_id", matchID).Msg("createChallenge submitted")
	return tx, nil
}

func (l *Ledger) AcceptChallenge(opts *bind.TransactOpts, challengeID uint64, team domain.Team) (*types.Transaction, error) {
	tx, err := l.contract.Transact(opts, "acceptChallenge",
		new(big.Int).SetUint64(challengeID),
		teamToBig(team),
	)
	if err != nil {
		return nil, ClassifyError(err)
	}
	l.logger.Info().Str("tx_hash", tx.Hash().Hex()).Uint64("challenge_id", challengeID).Msg("acceptChallenge submitted")
	return tx, nil
}

func (l *Ledger) VerifyMatchOutcomeAndPay(opts *bind.TransactOpts, p PayoutParams) (*types.Transaction, error) {
	tx, err := l.contract.Transact(opts, "verifyMatchOutcomeAndPay",
		new(big.Int).SetUint64(p.ChallengeID),
		new(big.Int).SetUint64(p.MatchID),
		big.NewInt(p.StartTime),
		p.WinningTeamIndex,
		teamToBig(p.Team0),
		teamToBig(p.Team1),
	)
	if err != nil {
		return nil, ClassifyError(err)
	}
	l.logger.Info().
		Str("tx_hash", tx.Hash().Hex()).
		Uint64("challenge_id", p.ChallengeID).
		Uint64("match_id", p.MatchID).
		Msg("verifyMatchOutcomeAndPay submitted")
	return tx, nil
}

// WaitMined blocks until tx has one confirmation. A mined-but-failed
// transaction yields ErrTxReverted.
func (l *Ledger) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, l.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxReverted, tx.Hash().Hex())
	}
	return receipt, nil
}

// ChallengeIDFromReceipt recovers the id assigned by createChallenge from the
// ChallengeCreated event.
func (l *Ledger) ChallengeIDFromReceipt(receipt *types.Receipt) (uint64, error) {
	event := l.abi.Events["ChallengeCreated"]
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != l.address || len(lg.Topics) == 0 || lg.Topics[0] != event.ID {
			continue
		}
		var ev challengeCreatedEvent
		if err := l.contract.UnpackLog(&ev, "ChallengeCreated", *lg); err != nil {
			return 0, fmt.Errorf("failed to unpack ChallengeCreated: %w", err)
		}
		if ev.ChallengeId == nil || !ev.ChallengeId.IsUint64() {
			return 0, fmt.Errorf("ChallengeCreated id out of range")
		}
		return ev.ChallengeId.Uint64(), nil
	}
	return 0, ErrEventNotFound
}

func (t challengeTuple) toDomain() (*domain.Challenge, error) {
	c := &domain.Challenge{
		Captain1:         t.Captain1,
		Captain2:         t.Captain2,
		Status:           domain.Status(t.Status),
		AmountStaked:     orZero(t.AmountStaked),
		WinningTeamIndex: t.WinningTeamIndex,
	}

	var err error
	fields := []struct {
		name string
		src  *big.Int
		dst  *uint64
	}{
		{"id", t.Id, &c.ID},
		{"matchIdPredefined", t.MatchIdPredefined, &c.MatchIDPredefined},
		{"paidMatchId", t.PaidMatchId, &c.PaidMatchID},
	}
	for _, f := range fields {
		if *f.dst, err = toUint64(f.name, f.src); err != nil {
			return nil, err
		}
	}

	times := []struct {
		name string
		src  *big.Int
		dst  *int64
	}{
		{"requiredStartTime", t.RequiredStartTime, &c.RequiredStartTime},
		{"creationTime", t.CreationTime, &c.CreationTime},
		{"acceptTime", t.AcceptTime, &c.AcceptTime},
	}
	for _, f := range times {
		v := orZero(f.src)
		if !v.IsInt64() {
			return nil, fmt.Errorf("%s %s out of range", f.name, v)
		}
		*f.dst = v.Int64()
	}

	if c.ChallengingTeam, err = teamFromBig("challengingTeam", t.ChallengingTeam); err != nil {
		return nil, err
	}
	if c.AcceptingTeam, err = teamFromBig("acceptingTeam", t.AcceptingTeam); err != nil {
		return nil, err
	}
	return c, nil
}

func teamToBig(t domain.Team) [6]*big.Int {
	var out [6]*big.Int
	for i, id := range t {
		out[i] = new(big.Int).SetUint64(uint64(id))
	}
	return out
}

func teamFromBig(name string, in [6]*big.Int) (domain.Team, error) {
	var t domain.Team
	for i, v := range in {
		id, err := toUint64(name, v)
		if err != nil {
			return t, err
		}
		t[i] = domain.PlayerID(id)
	}
	return t, nil
}

func toUint64(name string, v *big.Int) (uint64, error) {
	v = orZero(v)
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s %s out of range", name, v)
	}
	return v.Uint64(), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
