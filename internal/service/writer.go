package service

import (
	"context"
	"fmt"

	"deadlock-challenge/internal/constants"
	"deadlock-challenge/internal/ledger"
	"deadlock-challenge/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type IDSource string

const (
	IDFromEvent   IDSource = "event"
	IDFromCounter IDSource = "counter"
	IDUnknown     IDSource = "unknown"
)

type CreateRequest struct {
	PlayerIDs []string
	MatchID   string // optional, empty means unconstrained
}

type CreateResult struct {
	ChallengeID uint64
	IDSource    IDSource
	MatchID     uint64
	TxHash      common.Hash
}

type AcceptRequest struct {
	ChallengeID string
	PlayerIDs   []string
}

type AcceptResult struct {
	ChallengeID uint64
	TxHash      common.Hash
}

type ChallengeWriter struct {
	ledger ChallengeLedger
	logger zerolog.Logger
}

func NewChallengeWriter(ledger ChallengeLedger, logger zerolog.Logger) *ChallengeWriter {
	return &ChallengeWriter{ledger: ledger, logger: logger}
}

// Create submits createChallenge with the fixed stake and an unconstrained
// required start time, then recovers the new id from the receipt. When the
// event is absent it falls back to the post-transaction counter, which can be
// off under concurrent creations.
func (w *ChallengeWriter) Create(ctx context.Context, sess Session, req CreateRequest) (*CreateResult, error) {
	team, err := ParseTeam(req.PlayerIDs)
	if err != nil {
		return nil, err
	}
	matchID, err := ParseOptionalID("match id", req.MatchID)
	if err != nil {
		return nil, err
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	opts, err := sess.SigningHandle(ctx, constants.StakeWei())
	if err != nil {
		return nil, err
	}

	log := w.logger.With().Str("account", opts.From.Hex()).Uint64("match_id", matchID).Logger()
	log.Debug().Msg("creating challenge")

	tx, err := w.ledger.CreateChallenge(opts, matchID, team, 0)
	if err != nil {
		log.Error().Err(err).Msg("createChallenge rejected")
		return nil, err
	}

	receipt, err := w.ledger.WaitMined(ctx, tx)
	if err != nil {
		log.Error().Err(err).Str("tx_hash", tx.Hash().Hex()).Msg("createChallenge not confirmed")
		return nil, err
	}

	result := &CreateResult{MatchID: matchID, TxHash: tx.Hash()}

	id, err := w.ledger.ChallengeIDFromReceipt(receipt)
	switch {
	case err == nil:
		result.ChallengeID, result.IDSource = id, IDFromEvent
	default:
		log.Warn().Err(err).Msg("ChallengeCreated not parsed, falling back to counter")
		counter, cerr := w.ledger.ChallengeCounter(ctx)
		if cerr != nil {
			log.Warn().Err(cerr).Msg("counter fallback failed")
			result.IDSource = IDUnknown
		} else {
			result.ChallengeID, result.IDSource = counter, IDFromCounter
		}
	}

	log.Info().
		Str("tx_hash", tx.Hash().Hex()).
		Uint64("challenge_id", result.ChallengeID).
		Str("id_source", string(result.IDSource)).
		Msg("challenge created")
	return result, nil
}

// Accept submits acceptChallenge with the fixed stake. The creator may not
// accept their own challenge; that is checked against a fresh read before
// anything is signed.
func (w *ChallengeWriter) Accept(ctx context.Context, sess Session, req AcceptRequest) (*AcceptResult, error) {
	challengeID, err := ParseID("challenge id", req.ChallengeID)
	if err != nil {
		return nil, err
	}
	team, err := ParseTeam(req.PlayerIDs)
	if err != nil {
		return nil, err
	}

	account, ok := sess.ActiveAccount(ctx)
	if !ok {
		return nil, wallet.ErrNotConnected
	}

	release, err := sess.Begin()
	if err != nil {
		return nil, err
	}
	defer release()

	log := w.logger.With().Str("account", account.Hex()).Uint64("challenge_id", challengeID).Logger()

	readCtx, cancel := context.WithTimeout(ctx, constants.LedgerReadTimeout)
	c, err := w.ledger.GetChallenge(readCtx, challengeID)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("failed to read challenge")
		return nil, fmt.Errorf("failed to read challenge #%d: %w", challengeID, err)
	}
	if c.ID == 0 {
		return nil, fmt.Errorf("%w: #%d", ErrChallengeNotFound, challengeID)
	}
	if c.Captain1 == account {
		log.Warn().Msg("creator tried to accept own challenge")
		return nil, fmt.Errorf("%w: #%d", ledger.ErrSelfAccept, challengeID)
	}

	opts, err := sess.SigningHandle(ctx, constants.StakeWei())
	if err != nil {
		return nil, err
	}

	tx, err := w.ledger.AcceptChallenge(opts, challengeID, team)
	if err != nil {
		log.Error().Err(err).Msg("acceptChallenge rejected")
		return nil, err
	}

	if _, err := w.ledger.WaitMined(ctx, tx); err != nil {
		log.Error().Err(err).Str("tx_hash", tx.Hash().Hex()).Msg("acceptChallenge not confirmed")
		return nil, err
	}

	log.Info().Str("tx_hash", tx.Hash().Hex()).Msg("challenge accepted")
	return &AcceptResult{ChallengeID: challengeID, TxHash: tx.Hash()}, nil
}
