package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"deadlock-challenge/internal/config"
	"deadlock-challenge/internal/domain"

	"github.com/valyala/fasthttp"
)

var (
	ErrMatchAPI       = errors.New("match API error")
	ErrIncompleteData = errors.New("incomplete match data")
)

// DeadlockClient reads match metadata from the external match service.
type DeadlockClient struct {
	baseURL string
	client  *fasthttp.Client
}

func NewDeadlockClient(cfg *config.Config) *DeadlockClient {
	return newDeadlockClient(cfg.MatchAPIURL, &fasthttp.Client{
		MaxConnsPerHost:     16,
		ReadTimeout:         10 * time.Second,
		WriteTimeout:        10 * time.Second,
		MaxIdleConnDuration: 1 * time.Minute,
	})
}

func newDeadlockClient(baseURL string, client *fasthttp.Client) *DeadlockClient {
	return &DeadlockClient{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// GetMatchReport fetches /v1/matches/{id}/metadata and normalizes it. It fails
// with ErrMatchAPI on transport or status errors and ErrIncompleteData when the
// winner or a parseable start time is missing.
func (c *DeadlockClient) GetMatchReport(ctx context.Context, matchID uint64) (*domain.MatchReport, error) {
	url := fmt.Sprintf("%s/v1/matches/%d/metadata", c.baseURL, matchID)
	resp, err := doRequest[MatchMetadataResponse](ctx, c, url)
	if err != nil {
		return nil, err
	}
	return resp.toReport(matchID)
}

func doRequest[T any](ctx context.Context, client *DeadlockClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMatchAPI, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMatchAPI, err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrMatchAPI, resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", ErrMatchAPI, err)
	}
	return &result, nil
}

type MatchMetadataResponse struct {
	MatchInfo *MatchInfo `json:"match_info"`
}

type MatchInfo struct {
	MatchID     uint64          `json:"match_id"`
	StartTime   json.RawMessage `json:"start_time"`
	WinningTeam *int            `json:"winning_team"`
	Players     []MatchPlayer   `json:"players"`
}

type MatchPlayer struct {
	AccountID uint64 `json:"account_id"`
	Team      *int   `json:"team"`
}

func (r *MatchMetadataResponse) toReport(matchID uint64) (*domain.MatchReport, error) {
	info := r.MatchInfo
	if info == nil {
		return nil, fmt.Errorf("%w: match_info missing", ErrIncompleteData)
	}
	if info.WinningTeam == nil {
		return nil, fmt.Errorf("%w: winning_team missing", ErrIncompleteData)
	}

	start, err := ParseStartTime(info.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompleteData, err)
	}

	report := &domain.MatchReport{
		MatchID:     matchID,
		StartTime:   start,
		WinningTeam: info.WinningTeam,
		Players:     make([]domain.ReportPlayer, 0, len(info.Players)),
	}
	for _, p := range info.Players {
		if p.AccountID == 0 || p.Team == nil {
			continue
		}
		report.Players = append(report.Players, domain.ReportPlayer{
			AccountID: domain.PlayerID(p.AccountID),
			Team:      *p.Team,
		})
	}
	return report, nil
}

// ParseStartTime accepts unix seconds as a JSON number or numeric string, or
// an RFC 3339 timestamp string. Zero and negative values are rejected.
func ParseStartTime(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("start_time missing")
	}

	var unix int64
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("start_time %s unparseable", raw)
		}
		unix = int64(f)
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("start_time %s unparseable", raw)
		}
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			unix = v
		} else if t, err := time.Parse(time.RFC3339, s); err == nil {
			unix = t.Unix()
		} else {
			return 0, fmt.Errorf("start_time %q unparseable", s)
		}
	}

	if unix <= 0 {
		return 0, fmt.Errorf("start_time %d out of range", unix)
	}
	return unix, nil
}
