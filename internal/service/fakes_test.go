package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"deadlock-challenge/internal/domain"
	"deadlock-challenge/internal/ledger"
	"deadlock-challenge/internal/service"
	"deadlock-challenge/internal/wallet"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	creator  = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	acceptor = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

// fakeLedger keeps challenges in memory and applies the same state
// transitions the contract does.
type fakeLedger struct {
	mu sync.Mutex

	now        int64
	counter    uint64
	challenges map[uint64]*domain.Challenge
	failGet    map[uint64]bool
	txIDs      map[common.Hash]uint64
	noEvent    bool
	nonce      uint64

	stakes  []*big.Int
	payouts []ledger.PayoutParams
	sent    int
}

var _ service.ChallengeLedger = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		now:        1_700_000_000,
		challenges: map[uint64]*domain.Challenge{},
		failGet:    map[uint64]bool{},
		txIDs:      map[common.Hash]uint64{},
	}
}

func (f *fakeLedger) put(c domain.Challenge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.challenges[c.ID] = &c
	if c.ID > f.counter {
		f.counter = c.ID
	}
}

func (f *fakeLedger) ChallengeCounter(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter, nil
}

func (f *fakeLedger) GetChallenge(_ context.Context, id uint64) (*domain.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet[id] {
		return nil, fmt.Errorf("rpc unavailable for #%d", id)
	}
	c, ok := f.challenges[id]
	if !ok {
		return &domain.Challenge{}, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeLedger) newTx() *types.Transaction {
	f.nonce++
	f.sent++
	return types.NewTx(&types.LegacyTx{Nonce: f.nonce, GasPrice: big.NewInt(1), Gas: 21000})
}

func (f *fakeLedger) CreateChallenge(opts *bind.TransactOpts, matchID uint64, team domain.Team, requiredStartTime uint64) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if opts.Value == nil || opts.Value.Cmp(new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))) != 0 {
		return nil, ledger.ErrWrongStake
	}
	f.counter++
	f.challenges[f.counter] = &domain.Challenge{
		ID:                f.counter,
		Captain1:          opts.From,
		MatchIDPredefined: matchID,
		ChallengingTeam:   team,
		RequiredStartTime: int64(requiredStartTime),
		CreationTime:      f.now,
		Status:            domain.StatusCreated,
		AmountStaked:      opts.Value,
	}
	f.stakes = append(f.stakes, opts.Value)
	tx := f.newTx()
	f.txIDs[tx.Hash()] = f.counter
	return tx, nil
}

func (f *fakeLedger) AcceptChallenge(opts *bind.TransactOpts, id uint64, team domain.Team) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.challenges[id]
	if !ok || c.Status != domain.StatusCreated {
		return nil, &ledger.RevertError{Reason: "Challenge not in Created state", Code: ledger.ErrChallengeNotOpen}
	}
	if c.Captain1 == opts.From {
		return nil, &ledger.RevertError{Reason: "Creator cannot accept own challenge", Code: ledger.ErrSelfAccept}
	}
	c.Captain2 = opts.From
	c.AcceptingTeam = team
	c.AcceptTime = f.now + 10
	c.Status = domain.StatusAccepted
	f.stakes = append(f.stakes, opts.Value)
	return f.newTx(), nil
}

func (f *fakeLedger) VerifyMatchOutcomeAndPay(_ *bind.TransactOpts, p ledger.PayoutParams) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payouts = append(f.payouts, p)
	if c, ok := f.challenges[p.ChallengeID]; ok {
		c.Status = domain.StatusPaid
		c.WinningTeamIndex = p.WinningTeamIndex
		c.PaidMatchID = p.MatchID
	}
	return f.newTx(), nil
}

func (f *fakeLedger) WaitMined(_ context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return &types.Receipt{TxHash: tx.Hash(), Status: types.ReceiptStatusSuccessful}, nil
}

func (f *fakeLedger) ChallengeIDFromReceipt(receipt *types.Receipt) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.txIDs[receipt.TxHash]
	if f.noEvent || !ok {
		return 0, ledger.ErrEventNotFound
	}
	return id, nil
}

func (f *fakeLedger) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

// deadlineLedger records the deadline each read was issued with.
type deadlineLedger struct {
	*fakeLedger

	mu        sync.Mutex
	counterDL time.Time
	readDLs   []time.Time
}

func (d *deadlineLedger) ChallengeCounter(ctx context.Context) (uint64, error) {
	d.counterDL, _ = ctx.Deadline()
	time.Sleep(2 * time.Millisecond)
	return d.fakeLedger.ChallengeCounter(ctx)
}

func (d *deadlineLedger) GetChallenge(ctx context.Context, id uint64) (*domain.Challenge, error) {
	dl, ok := ctx.Deadline()
	d.mu.Lock()
	if ok {
		d.readDLs = append(d.readDLs, dl)
	}
	d.mu.Unlock()
	time.Sleep(time.Millisecond)
	return d.fakeLedger.GetChallenge(ctx, id)
}

type fakeMatches struct {
	report *domain.MatchReport
	err    error
	calls  int
}

func (m *fakeMatches) GetMatchReport(_ context.Context, matchID uint64) (*domain.MatchReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r := *m.report
	r.MatchID = matchID
	return &r, nil
}

type fakeSession struct {
	account common.Address
	busy    bool
}

func (s *fakeSession) ActiveAccount(context.Context) (common.Address, bool) {
	return s.account, s.account != (common.Address{})
}

func (s *fakeSession) SigningHandle(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if s.account == (common.Address{}) {
		return nil, wallet.ErrNotConnected
	}
	return &bind.TransactOpts{From: s.account, Value: value, Context: ctx}, nil
}

func (s *fakeSession) Begin() (func(), error) {
	if s.busy {
		return nil, wallet.ErrActionInFlight
	}
	s.busy = true
	return func() { s.busy = false }, nil
}

func ids(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%d", i))
	}
	return out
}

func team(from int) domain.Team {
	var t domain.Team
	for i := range t {
		t[i] = domain.PlayerID(from + i)
	}
	return t
}

func players(from, n int) []domain.PlayerID {
	out := make([]domain.PlayerID, n)
	for i := range out {
		out[i] = domain.PlayerID(from + i)
	}
	return out
}

func report(start int64, winner int, team0, team1 []domain.PlayerID) *domain.MatchReport {
	r := &domain.MatchReport{StartTime: start, WinningTeam: &winner}
	for _, id := range team0 {
		r.Players = append(r.Players, domain.ReportPlayer{AccountID: id, Team: 0})
	}
	for _, id := range team1 {
		r.Players = append(r.Players, domain.ReportPlayer{AccountID: id, Team: 1})
	}
	return r
}

var errBoom = errors.New("boom")
