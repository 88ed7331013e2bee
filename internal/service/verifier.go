package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deadlock-challenge/internal/config"
	"deadlock-challenge/internal/constants"
	"deadlock-challenge/internal/domain"
	"deadlock-challenge/internal/ledger"
	"deadlock-challenge/internal/matcher"
	"deadlock-challenge/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type VerifyRequest struct {
	ChallengeID string
	MatchID     string
}

type VerifyResult struct {
	ChallengeID      uint64
	MatchID          uint64
	StartTime        int64
	WinningTeamIndex uint8
	Orientation      matcher.Orientation
	Ambiguous        bool
	Team0            domain.Team
	Team1            domain.Team
	TxHash           common.Hash
}

type MatchVerifier struct {
	ledger  ChallengeLedger
	matches MatchSource
	loc     *time.Location
	policy  config.OrientationPolicy
	logger  zerolog.Logger
}

func NewMatchVerifier(ledger ChallengeLedger, matches MatchSource, cfg *config.Config, logger zerolog.Logger) *MatchVerifier {
	return &MatchVerifier{
		ledger:  ledger,
		matches: matches,
		loc:     cfg.DisplayLocation,
		policy:  cfg.AmbiguousOrientation,
		logger:  logger,
	}
}

// Verify checks a played match against an accepted challenge and, when every
// gate passes, submits the payout. Gates run in order and the first failure
// aborts with nothing submitted.
func (v *MatchVerifier) Verify(ctx context.Context, sess Session, req VerifyRequest) (*VerifyResult, error) {
	challengeID, err := ParseID("challenge id", req.ChallengeID)
	if err != nil {
		return nil, err
	}
	matchID, err := ParseID("match id", req.MatchID)
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

	log := v.logger.With().
		Str("account", account.Hex()).
		Uint64("challenge_id", challengeID).
		Uint64("match_id", matchID).
		Logger()

	c, err := v.readChallenge(ctx, challengeID)
	if err != nil {
		log.Warn().Err(err).Msg("challenge gate failed")
		return nil, err
	}

	report, err := v.readReport(ctx, matchID)
	if err != nil {
		log.Warn().Err(err).Msg("match report gate failed")
		return nil, err
	}

	team0, team1, err := partition(report)
	if err != nil {
		log.Warn().Err(err).Msg("roster gate failed")
		return nil, err
	}

	if err := v.checkTiming(report.StartTime, c); err != nil {
		log.Warn().Err(err).Msg("timing gate failed")
		return nil, err
	}

	rec, err := v.reconcile(c, team0, team1)
	if err != nil {
		log.Warn().Err(err).Msg("team gate failed")
		return nil, err
	}

	params := ledger.PayoutParams{
		ChallengeID:      challengeID,
		MatchID:          matchID,
		StartTime:        report.StartTime,
		WinningTeamIndex: uint8(*report.WinningTeam),
		Team0:            team0,
		Team1:            team1,
	}

	opts, err := sess.SigningHandle(ctx, nil)
	if err != nil {
		return nil, err
	}

	tx, err := v.ledger.VerifyMatchOutcomeAndPay(opts, params)
	if err != nil {
		log.Error().Err(err).Msg("verifyMatchOutcomeAndPay rejected")
		return nil, err
	}

	if _, err := v.ledger.WaitMined(ctx, tx); err != nil {
		log.Error().Err(err).Str("tx_hash", tx.Hash().Hex()).Msg("verifyMatchOutcomeAndPay not confirmed")
		return nil, err
	}

	log.Info().
		Str("tx_hash", tx.Hash().Hex()).
		Str("orientation", string(rec.Orientation)).
		Uint8("winning_team", params.WinningTeamIndex).
		Msg("match verified and paid")

	return &VerifyResult{
		ChallengeID:      challengeID,
		MatchID:          matchID,
		StartTime:        report.StartTime,
		WinningTeamIndex: params.WinningTeamIndex,
		Orientation:      rec.Orientation,
		Ambiguous:        rec.Ambiguous,
		Team0:            team0,
		Team1:            team1,
		TxHash:           tx.Hash(),
	}, nil
}

func (v *MatchVerifier) readChallenge(ctx context.Context, id uint64) (*domain.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.LedgerReadTimeout)
	defer cancel()

	c, err := v.ledger.GetChallenge(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge #%d: %w", id, err)
	}
	if c.ID == 0 {
		return nil, fmt.Errorf("%w: #%d", ErrChallengeNotFound, id)
	}
	if c.Status != domain.StatusAccepted {
		return nil, fmt.Errorf("%w: #%d is %s, expected %s", ErrWrongStatus, id, c.Status, domain.StatusAccepted)
	}
	return c, nil
}

func (v *MatchVerifier) readReport(ctx context.Context, matchID uint64) (*domain.MatchReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	report, err := v.matches.GetMatchReport(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(report.Players) < constants.MatchPlayerSize {
		return nil, fmt.Errorf("%w: %d players reported, need %d", ErrIncompleteData, len(report.Players), constants.MatchPlayerSize)
	}
	if report.WinningTeam == nil {
		return nil, fmt.Errorf("%w: winning team missing", ErrIncompleteData)
	}
	if w := *report.WinningTeam; w != 0 && w != 1 {
		return nil, fmt.Errorf("%w: winning team %d out of range", ErrIncompleteData, w)
	}
	if report.StartTime <= 0 {
		return nil, fmt.Errorf("%w: start time missing", ErrIncompleteData)
	}
	return report, nil
}

// partition splits the report by team flag in report order. Each side must
// hold exactly six distinct ids; a repeated id within a side counts once.
func partition(report *domain.MatchReport) (domain.Team, domain.Team, error) {
	var sides [2][]domain.PlayerID
	seen := [2]map[domain.PlayerID]bool{{}, {}}
	for _, p := range report.Players {
		if p.Team != 0 && p.Team != 1 {
			continue
		}
		if seen[p.Team][p.AccountID] {
			continue
		}
		seen[p.Team][p.AccountID] = true
		sides[p.Team] = append(sides[p.Team], p.AccountID)
	}

	var team0, team1 domain.Team
	if len(sides[0]) != constants.TeamSize || len(sides[1]) != constants.TeamSize {
		return team0, team1, fmt.Errorf("%w: team 0 has %d distinct players, team 1 has %d, need %d each",
			ErrIncompleteTeams, len(sides[0]), len(sides[1]), constants.TeamSize)
	}
	copy(team0[:], sides[0])
	copy(team1[:], sides[1])
	return team0, team1, nil
}

func (v *MatchVerifier) checkTiming(start int64, c *domain.Challenge) error {
	if matcher.TimingValid(start, c.AcceptTime, c.RequiredStartTime) {
		return nil
	}
	if start < c.AcceptTime {
		return fmt.Errorf("%w: match started %s, before the challenge was accepted at %s",
			ErrTiming, FormatTime(start, v.loc), FormatTime(c.AcceptTime, v.loc))
	}
	return fmt.Errorf("%w: match started %s, before the required start time %s",
		ErrTiming, FormatTime(start, v.loc), FormatTime(c.RequiredStartTime, v.loc))
}

func (v *MatchVerifier) reconcile(c *domain.Challenge, team0, team1 domain.Team) (matcher.Reconciliation, error) {
	api0, api1 := matcher.TeamRoster(team0), matcher.TeamRoster(team1)
	rec := matcher.ReconcileTeams(c.ChallengingTeam, c.AcceptingTeam, api0, api1)
	if !rec.Matched {
		if missing := matcher.MissingPlayers(c.ChallengingTeam, c.AcceptingTeam, api0, api1); len(missing) > 0 {
			return rec, fmt.Errorf("%w: %s", ErrPlayerNotFound, joinIDs(missing))
		}
		return rec, ErrTeamMismatch
	}
	if rec.Ambiguous {
		v.logger.Warn().Uint64("challenge_id", c.ID).Str("policy", string(v.policy)).Msg("both orientations match")
		if v.policy == config.OrientationReject {
			return rec, ErrAmbiguousOrientation
		}
	}
	return rec, nil
}

func joinIDs(ids []domain.PlayerID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
