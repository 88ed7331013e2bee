package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deadlock-challenge/internal/config"
	"deadlock-challenge/internal/domain"
	"deadlock-challenge/internal/ledger"
	"deadlock-challenge/internal/middleware"
	"deadlock-challenge/internal/repository"
	"deadlock-challenge/internal/service"
	"deadlock-challenge/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Session is the wallet identity the server acts as.
type Session interface {
	service.Session
	RequestConnection(ctx context.Context) (common.Address, error)
}

// Journal is where flow outcomes are appended.
type Journal interface {
	Record(ctx context.Context, a *domain.Activity) error
	List(ctx context.Context, limit int) ([]domain.Activity, error)
}

type ConnectRequest struct{}

type ConnectResponse struct {
	Account string `json:"account,omitempty"`
	Status  Status `json:"status"`
}

type SessionRequest struct{}

type SessionResponse struct {
	Account string `json:"account"`
}

type CreateChallengeRequest struct {
	PlayerIDs []string `json:"player_ids"`
	MatchID   string   `json:"match_id,omitempty"`
}

type CreateChallengeResponse struct {
	ChallengeID uint64 `json:"challenge_id,omitempty"`
	IDSource    string `json:"id_source,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	Status      Status `json:"status"`
}

type ListOpenChallengesRequest struct{}

type ChallengeView struct {
	ID              uint64   `json:"id"`
	Captain1        string   `json:"captain1"`
	ChallengingTeam []uint64 `json:"challenging_team"`
	MatchID         uint64   `json:"match_id,omitempty"`
	CreatedAt       string   `json:"created_at"`
	Stake           string   `json:"stake"`
}

type ListOpenChallengesResponse struct {
	State      string          `json:"state,omitempty"`
	Total      uint64          `json:"total"`
	Skipped    int             `json:"skipped,omitempty"`
	Challenges []ChallengeView `json:"challenges"`
	Status     Status          `json:"status"`
}

type AcceptChallengeRequest struct {
	ChallengeID string   `json:"challenge_id"`
	PlayerIDs   []string `json:"player_ids"`
}

type AcceptChallengeResponse struct {
	TxHash    string                      `json:"tx_hash,omitempty"`
	Status    Status                      `json:"status"`
	Refreshed *ListOpenChallengesResponse `json:"refreshed,omitempty"`
}

type VerifyMatchRequest struct {
	ChallengeID string `json:"challenge_id"`
	MatchID     string `json:"match_id"`
}

type VerifyMatchResponse struct {
	TxHash      string   `json:"tx_hash,omitempty"`
	Orientation string   `json:"orientation,omitempty"`
	WinningTeam *uint8   `json:"winning_team,omitempty"`
	Team0       []uint64 `json:"team0,omitempty"`
	Team1       []uint64 `json:"team1,omitempty"`
	Status      Status   `json:"status"`
}

type ListActivityRequest struct {
	Limit int `json:"limit"`
}

type ActivityView struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	ChallengeID uint64 `json:"challenge_id,omitempty"`
	MatchID     uint64 `json:"match_id,omitempty"`
	Account     string `json:"account,omitempty"`
	TxHash      string `json:"tx_hash,omitempty"`
	Outcome     string `json:"outcome"`
	Message     string `json:"message,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ListActivityResponse struct {
	Entries []ActivityView `json:"entries"`
}

// ChallengeServer renders the three flows plus wallet connection. Every flow
// outcome, good or bad, comes back as a Status; a returned error means the
// call itself could not be served. State-changing flows outlive a dropped
// caller: once signed, a transaction is waited for regardless.
type ChallengeServer struct {
	session  Session
	reader   *service.ChallengeReader
	writer   *service.ChallengeWriter
	verifier *service.MatchVerifier
	journal  Journal
	loc      *time.Location
	logger   zerolog.Logger
}

func NewChallengeServer(
	session *wallet.Session,
	reader *service.ChallengeReader,
	writer *service.ChallengeWriter,
	verifier *service.MatchVerifier,
	journal *repository.ActivityRepository,
	cfg *config.Config,
	logger zerolog.Logger,
) *ChallengeServer {
	return newChallengeServer(session, reader, writer, verifier, journal, cfg.DisplayLocation, logger)
}

func newChallengeServer(session Session, reader *service.ChallengeReader, writer *service.ChallengeWriter, verifier *service.MatchVerifier, journal Journal, loc *time.Location, logger zerolog.Logger) *ChallengeServer {
	if loc == nil {
		loc = time.UTC
	}
	return &ChallengeServer{
		session:  session,
		reader:   reader,
		writer:   writer,
		verifier: verifier,
		journal:  journal,
		loc:      loc,
		logger:   logger,
	}
}

func (s *ChallengeServer) Connect(ctx context.Context, _ *ConnectRequest) (*ConnectResponse, error) {
	account, err := s.session.RequestConnection(ctx)
	if err != nil {
		st := renderError(err)
		s.record(ctx, domain.Activity{Kind: domain.ActivityConnect}, st)
		return &ConnectResponse{Status: st}, nil
	}

	st := success("Connected as %s.", account.Hex())
	s.record(ctx, domain.Activity{Kind: domain.ActivityConnect, Account: account.Hex()}, st)
	return &ConnectResponse{Account: account.Hex(), Status: st}, nil
}

func (s *ChallengeServer) Session(ctx context.Context, _ *SessionRequest) (*SessionResponse, error) {
	account, ok := s.session.ActiveAccount(ctx)
	if !ok {
		return &SessionResponse{}, nil
	}
	return &SessionResponse{Account: account.Hex()}, nil
}

func (s *ChallengeServer) CreateChallenge(ctx context.Context, req *CreateChallengeRequest) (*CreateChallengeResponse, error) {
	ctx = context.WithoutCancel(ctx)
	res, err := s.writer.Create(ctx, s.session, service.CreateRequest{PlayerIDs: req.PlayerIDs, MatchID: req.MatchID})
	act := domain.Activity{Kind: domain.ActivityCreate, Account: s.account(ctx)}
	if err != nil {
		st := renderError(err)
		s.record(ctx, act, st)
		return &CreateChallengeResponse{Status: st}, nil
	}

	var st Status
	if res.IDSource == service.IDUnknown {
		st = success("Challenge created. Tx: %s", service.ShortHash(res.TxHash))
	} else {
		st = success("Challenge #%d created. Tx: %s", res.ChallengeID, service.ShortHash(res.TxHash))
	}

	act.ChallengeID, act.MatchID, act.TxHash = res.ChallengeID, res.MatchID, res.TxHash.Hex()
	s.record(ctx, act, st)

	return &CreateChallengeResponse{
		ChallengeID: res.ChallengeID,
		IDSource:    string(res.IDSource),
		TxHash:      res.TxHash.Hex(),
		Status:      st,
	}, nil
}

func (s *ChallengeServer) ListOpenChallenges(ctx context.Context, _ *ListOpenChallengesRequest) (*ListOpenChallengesResponse, error) {
	out, err := s.reader.ListOpen(ctx)
	if err != nil {
		return &ListOpenChallengesResponse{
			Challenges: []ChallengeView{},
			Status:     Status{Kind: StatusError, Message: "Failed to load challenges: " + err.Error()},
		}, nil
	}

	resp := &ListOpenChallengesResponse{
		State:      string(out.State),
		Total:      out.Total,
		Skipped:    out.Skipped,
		Challenges: make([]ChallengeView, 0, len(out.Challenges)),
	}
	for _, c := range out.Challenges {
		resp.Challenges = append(resp.Challenges, s.challengeView(c))
	}

	switch out.State {
	case service.ListEmpty:
		resp.Status = info("No challenges created yet.")
	case service.ListNoneOpen:
		resp.Status = info("No open challenges right now.")
	default:
		resp.Status = success("%d open of %d total.", len(resp.Challenges), out.Total)
	}
	return resp, nil
}

// AcceptChallenge reloads the open list after the accept is mined, and also
// when the ledger says the challenge was taken in the meantime.
func (s *ChallengeServer) AcceptChallenge(ctx context.Context, req *AcceptChallengeRequest) (*AcceptChallengeResponse, error) {
	ctx = context.WithoutCancel(ctx)
	res, err := s.writer.Accept(ctx, s.session, service.AcceptRequest{ChallengeID: req.ChallengeID, PlayerIDs: req.PlayerIDs})
	act := domain.Activity{Kind: domain.ActivityAccept, Account: s.account(ctx)}
	if id, perr := service.ParseID("challenge id", req.ChallengeID); perr == nil {
		act.ChallengeID = id
	}

	if err != nil {
		st := renderError(err)
		resp := &AcceptChallengeResponse{Status: st}
		if errors.Is(err, ledger.ErrChallengeNotOpen) {
			st.Message = fmt.Sprintf("Challenge #%d is no longer open.", act.ChallengeID)
			resp.Status = st
			resp.Refreshed, _ = s.ListOpenChallenges(ctx, &ListOpenChallengesRequest{})
		}
		s.record(ctx, act, st)
		return resp, nil
	}

	st := success("Challenge #%d accepted. Tx: %s", res.ChallengeID, service.ShortHash(res.TxHash))
	act.TxHash = res.TxHash.Hex()
	s.record(ctx, act, st)
	resp := &AcceptChallengeResponse{TxHash: res.TxHash.Hex(), Status: st}
	resp.Refreshed, _ = s.ListOpenChallenges(ctx, &ListOpenChallengesRequest{})
	return resp, nil
}

func (s *ChallengeServer) VerifyMatch(ctx context.Context, req *VerifyMatchRequest) (*VerifyMatchResponse, error) {
	ctx = context.WithoutCancel(ctx)
	res, err := s.verifier.Verify(ctx, s.session, service.VerifyRequest{ChallengeID: req.ChallengeID, MatchID: req.MatchID})
	act := domain.Activity{Kind: domain.ActivityVerify, Account: s.account(ctx)}
	if id, perr := service.ParseID("challenge id", req.ChallengeID); perr == nil {
		act.ChallengeID = id
	}
	if id, perr := service.ParseID("match id", req.MatchID); perr == nil {
		act.MatchID = id
	}

	if err != nil {
		st := renderError(err)
		s.record(ctx, act, st)
		return &VerifyMatchResponse{Status: st}, nil
	}

	st := success("Match verified and payout processed. Tx: %s", service.ShortHash(res.TxHash))
	act.TxHash = res.TxHash.Hex()
	s.record(ctx, act, st)

	winner := res.WinningTeamIndex
	return &VerifyMatchResponse{
		TxHash:      res.TxHash.Hex(),
		Orientation: string(res.Orientation),
		WinningTeam: &winner,
		Team0:       teamView(res.Team0),
		Team1:       teamView(res.Team1),
		Status:      st,
	}, nil
}

func (s *ChallengeServer) ListActivity(ctx context.Context, req *ListActivityRequest) (*ListActivityResponse, error) {
	entries, err := s.journal.List(ctx, req.Limit)
	if err != nil {
		return nil, err
	}

	resp := &ListActivityResponse{Entries: make([]ActivityView, 0, len(entries))}
	for _, a := range entries {
		resp.Entries = append(resp.Entries, ActivityView{
			ID:          a.ID,
			Kind:        string(a.Kind),
			ChallengeID: a.ChallengeID,
			MatchID:     a.MatchID,
			Account:     a.Account,
			TxHash:      a.TxHash,
			Outcome:     a.Outcome,
			Message:     a.Message,
			CreatedAt:   service.FormatTime(a.CreatedAt.Unix(), s.loc),
		})
	}
	return resp, nil
}

func (s *ChallengeServer) account(ctx context.Context) string {
	if a, ok := s.session.ActiveAccount(ctx); ok {
		return a.Hex()
	}
	return ""
}

// record appends to the journal. A journal failure never changes the outcome
// the caller sees.
func (s *ChallengeServer) record(ctx context.Context, a domain.Activity, st Status) {
	a.Outcome, a.Message = string(st.Kind), st.Message

	log := middleware.Logger(ctx, s.logger)
	if err := s.journal.Record(ctx, &a); err != nil {
		log.Warn().Err(err).Str("kind", string(a.Kind)).Msg("failed to journal activity")
		return
	}
	log.Debug().Str("kind", string(a.Kind)).Str("outcome", a.Outcome).Str("activity_id", a.ID).Msg("activity journaled")
}

func (s *ChallengeServer) challengeView(c domain.Challenge) ChallengeView {
	return ChallengeView{
		ID:              c.ID,
		Captain1:        c.Captain1.Hex(),
		ChallengingTeam: teamView(c.ChallengingTeam),
		MatchID:         c.MatchIDPredefined,
		CreatedAt:       service.FormatTime(c.CreationTime, s.loc),
		Stake:           service.FormatUnits(c.AmountStaked) + " S",
	}
}

func teamView(t domain.Team) []uint64 {
	out := make([]uint64, len(t))
	for i, id := range t {
		out[i] = uint64(id)
	}
	return out
}
