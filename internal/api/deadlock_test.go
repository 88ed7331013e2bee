package api

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"deadlock-challenge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *DeadlockClient {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	})

	return newDeadlockClient("http://deadlock.test/", &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	})
}

func TestGetMatchReport(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{
			"match_info": {
				"match_id": 4242,
				"start_time": 1700000500,
				"winning_team": 1,
				"players": [
					{"account_id": 1, "team": 0},
					{"account_id": 7, "team": 1},
					{"account_id": 0, "team": 0},
					{"account_id": 8}
				]
			}
		}`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	report, err := client.GetMatchReport(ctx, 4242)
	require.NoError(t, err)

	assert.Equal(t, "/v1/matches/4242/metadata", gotPath)
	assert.Equal(t, uint64(4242), report.MatchID)
	assert.Equal(t, int64(1700000500), report.StartTime)
	require.NotNil(t, report.WinningTeam)
	assert.Equal(t, 1, *report.WinningTeam)
	assert.Equal(t, []domain.ReportPlayer{{AccountID: 1, Team: 0}, {AccountID: 7, Team: 1}}, report.Players)
}

func TestGetMatchReportStatusError(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	})

	_, err := client.GetMatchReport(context.Background(), 1)
	require.ErrorIs(t, err, ErrMatchAPI)
	assert.Contains(t, err.Error(), "404")
}

func TestGetMatchReportMissingWinner(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"match_info": {"start_time": 1700000500, "players": []}}`)
	})

	_, err := client.GetMatchReport(context.Background(), 1)
	require.ErrorIs(t, err, ErrIncompleteData)
}

func TestGetMatchReportMissingMatchInfo(t *testing.T) {
	client := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{}`)
	})

	_, err := client.GetMatchReport(context.Background(), 1)
	require.ErrorIs(t, err, ErrIncompleteData)
}

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`1700000000`, 1700000000, false},
		{`"1700000000"`, 1700000000, false},
		{`"2023-11-14T22:13:20Z"`, 1700000000, false},
		{`1700000000.9`, 1700000000, false},
		{`0`, 0, true},
		{`-5`, 0, true},
		{`null`, 0, true},
		{``, 0, true},
		{`"yesterday"`, 0, true},
		{`{}`, 0, true},
	}

	for _, tc := range tests {
		got, err := ParseStartTime(json.RawMessage(tc.raw))
		if tc.wantErr {
			assert.Error(t, err, "raw=%s", tc.raw)
			continue
		}
		require.NoError(t, err, "raw=%s", tc.raw)
		assert.Equal(t, tc.want, got, "raw=%s", tc.raw)
	}
}
