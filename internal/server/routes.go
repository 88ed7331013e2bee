package server

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const ServicePath = "/challenge.v1.ChallengeService/"

const (
	ConnectProcedure            = ServicePath + "Connect"
	SessionProcedure            = ServicePath + "Session"
	CreateChallengeProcedure    = ServicePath + "CreateChallenge"
	ListOpenChallengesProcedure = ServicePath + "ListOpenChallenges"
	AcceptChallengeProcedure    = ServicePath + "AcceptChallenge"
	VerifyMatchProcedure        = ServicePath + "VerifyMatch"
	ListActivityProcedure       = ServicePath + "ListActivity"
)

// Handler mounts every procedure and returns the path prefix to serve it on.
func (s *ChallengeServer) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	unary(mux, ConnectProcedure, s.Connect, opts)
	unary(mux, SessionProcedure, s.Session, opts)
	unary(mux, CreateChallengeProcedure, s.CreateChallenge, opts)
	unary(mux, ListOpenChallengesProcedure, s.ListOpenChallenges, opts)
	unary(mux, AcceptChallengeProcedure, s.AcceptChallenge, opts)
	unary(mux, VerifyMatchProcedure, s.VerifyMatch, opts)
	unary(mux, ListActivityProcedure, s.ListActivity, opts)
	return ServicePath, mux
}

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, err)
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	))
}

// Client calls a ChallengeServer over HTTP.
type Client struct {
	connect         *connect.Client[ConnectRequest, ConnectResponse]
	session         *connect.Client[SessionRequest, SessionResponse]
	createChallenge *connect.Client[CreateChallengeRequest, CreateChallengeResponse]
	listOpen        *connect.Client[ListOpenChallengesRequest, ListOpenChallengesResponse]
	acceptChallenge *connect.Client[AcceptChallengeRequest, AcceptChallengeResponse]
	verifyMatch     *connect.Client[VerifyMatchRequest, VerifyMatchResponse]
	listActivity    *connect.Client[ListActivityRequest, ListActivityResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &Client{
		connect:         connect.NewClient[ConnectRequest, ConnectResponse](httpClient, baseURL+ConnectProcedure, opts...),
		session:         connect.NewClient[SessionRequest, SessionResponse](httpClient, baseURL+SessionProcedure, opts...),
		createChallenge: connect.NewClient[CreateChallengeRequest, CreateChallengeResponse](httpClient, baseURL+CreateChallengeProcedure, opts...),
		listOpen:        connect.NewClient[ListOpenChallengesRequest, ListOpenChallengesResponse](httpClient, baseURL+ListOpenChallengesProcedure, opts...),
		acceptChallenge: connect.NewClient[AcceptChallengeRequest, AcceptChallengeResponse](httpClient, baseURL+AcceptChallengeProcedure, opts...),
		verifyMatch:     connect.NewClient[VerifyMatchRequest, VerifyMatchResponse](httpClient, baseURL+VerifyMatchProcedure, opts...),
		listActivity:    connect.NewClient[ListActivityRequest, ListActivityResponse](httpClient, baseURL+ListActivityProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *Client) Connect(ctx context.Context, req *ConnectRequest) (*ConnectResponse, error) {
	return call(ctx, c.connect, req)
}

func (c *Client) Session(ctx context.Context, req *SessionRequest) (*SessionResponse, error) {
	return call(ctx, c.session, req)
}

func (c *Client) CreateChallenge(ctx context.Context, req *CreateChallengeRequest) (*CreateChallengeResponse, error) {
	return call(ctx, c.createChallenge, req)
}

func (c *Client) ListOpenChallenges(ctx context.Context, req *ListOpenChallengesRequest) (*ListOpenChallengesResponse, error) {
	return call(ctx, c.listOpen, req)
}

func (c *Client) AcceptChallenge(ctx context.Context, req *AcceptChallengeRequest) (*AcceptChallengeResponse, error) {
	return call(ctx, c.acceptChallenge, req)
}

func (c *Client) VerifyMatch(ctx context.Context, req *VerifyMatchRequest) (*VerifyMatchResponse, error) {
	return call(ctx, c.verifyMatch, req)
}

func (c *Client) ListActivity(ctx context.Context, req *ListActivityRequest) (*ListActivityResponse, error) {
	return call(ctx, c.listActivity, req)
}

// API is satisfied by both the in-process server and the HTTP client.
type API interface {
	Connect(ctx context.Context, req *ConnectRequest) (*ConnectResponse, error)
	Session(ctx context.Context, req *SessionRequest) (*SessionResponse, error)
	CreateChallenge(ctx context.Context, req *CreateChallengeRequest) (*CreateChallengeResponse, error)
	ListOpenChallenges(ctx context.Context, req *ListOpenChallengesRequest) (*ListOpenChallengesResponse, error)
	AcceptChallenge(ctx context.Context, req *AcceptChallengeRequest) (*AcceptChallengeResponse, error)
	VerifyMatch(ctx context.Context, req *VerifyMatchRequest) (*VerifyMatchResponse, error)
	ListActivity(ctx context.Context, req *ListActivityRequest) (*ListActivityResponse, error)
}

var (
	_ API = (*ChallengeServer)(nil)
	_ API = (*Client)(nil)
)
