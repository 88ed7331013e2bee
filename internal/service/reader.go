package service

import (
	"context"
	"fmt"

	"deadlock-challenge/internal/constants"
	"deadlock-challenge/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type ListState string

const (
	// ListEmpty: the ledger has never created a challenge.
	ListEmpty ListState = "empty"
	// ListNoneOpen: challenges exist but none is open.
	ListNoneOpen ListState = "none_open"
	ListOK       ListState = "ok"
)

type OpenChallenges struct {
	Total      uint64
	State      ListState
	Challenges []domain.Challenge // newest first
	Skipped    int                // per-item reads that failed
}

type ChallengeReader struct {
	ledger ChallengeSource
	logger zerolog.Logger
}

func NewChallengeReader(ledger ChallengeSource, logger zerolog.Logger) *ChallengeReader {
	return &ChallengeReader{ledger: ledger, logger: logger}
}

// ListOpen reads every challenge from the counter down to 1 and keeps the ones
// still in Created. A failed counter read fails the call; a failed item read
// only drops that item.
func (r *ChallengeReader) ListOpen(ctx context.Context) (*OpenChallenges, error) {
	counterCtx, cancel := context.WithTimeout(ctx, constants.LedgerReadTimeout)
	total, err := r.ledger.ChallengeCounter(counterCtx)
	cancel()
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read challenge counter")
		return nil, fmt.Errorf("failed to read challenge counter: %w", err)
	}

	if total == 0 {
		r.logger.Info().Msg("no challenges created yet")
		return &OpenChallenges{State: ListEmpty}, nil
	}

	r.logger.Debug().Uint64("total", total).Msg("loading challenges")

	// slot i holds challenge total-i, so the result is already newest first
	results := make([]*domain.Challenge, total)
	failed := make([]bool, total)

	g := new(errgroup.Group)
	g.SetLimit(constants.ListFetchConcurrency)
	for i := uint64(0); i < total; i++ {
		id := total - i
		g.Go(func() error {
			// each read gets its own deadline, queued reads don't inherit a spent one
			readCtx, cancel := context.WithTimeout(ctx, constants.LedgerReadTimeout)
			defer cancel()
			c, err := r.ledger.GetChallenge(readCtx, id)
			if err != nil {
				r.logger.Warn().Err(err).Uint64("challenge_id", id).Msg("failed to load challenge, skipping")
				failed[i] = true
				return nil
			}
			results[i] = c
			return nil
		})
	}
	_ = g.Wait()

	out := &OpenChallenges{Total: total, Challenges: []domain.Challenge{}}
	for i, c := range results {
		if failed[i] {
			out.Skipped++
			continue
		}
		if c != nil && c.IsOpen() {
			out.Challenges = append(out.Challenges, *c)
		}
	}

	out.State = ListOK
	if len(out.Challenges) == 0 {
		out.State = ListNoneOpen
	}

	r.logger.Info().
		Uint64("total", total).
		Int("open", len(out.Challenges)).
		Int("skipped", out.Skipped).
		Msg("open challenges loaded")
	return out, nil
}
